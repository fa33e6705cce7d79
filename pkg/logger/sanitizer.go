// Package logger holds redaction helpers for values that end up in logs.
package logger

import (
	"regexp"
	"strings"
)

// Sensitive field patterns to filter from logs
var (
	passwordPattern = regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+[^\s]+`)
	tokenPattern    = regexp.MustCompile(`(?i)(token|jwt|bearer)[\s:=]+[^\s]+`)
	secretPattern   = regexp.MustCompile(`(?i)(secret|private[_-]?key)[\s:=]+[^\s]+`)
	emailPattern    = regexp.MustCompile(`^([a-zA-Z0-9._%+-]+)@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})$`)
)

const redactedPlaceholder = "[REDACTED]"

// SanitizeLogMessage removes credentials that leaked into free text,
// such as an upstream error echoing the request.
func SanitizeLogMessage(message string) string {
	message = passwordPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = tokenPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = secretPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	return message
}

// MaskIdentifier keeps enough of a login identifier to correlate attempts
// without logging it in full: "editor@holding.uz" becomes "e***@holding.uz",
// "operator" becomes "o***".
func MaskIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ""
	}
	if m := emailPattern.FindStringSubmatch(identifier); m != nil {
		return m[1][:1] + "***@" + m[2]
	}
	return identifier[:1] + "***"
}

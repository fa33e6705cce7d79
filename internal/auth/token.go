package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var unverifiedParser = jwt.NewParser()

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens and JWTs without exp never expire here; the backend is
// the authority and signals rejection separately.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

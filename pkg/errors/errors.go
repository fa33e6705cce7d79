package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is()
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnavailable        = errors.New("service unavailable")
	ErrBadRequest         = errors.New("bad request")
	ErrNotFound           = errors.New("resource not found")
	ErrInternalServer     = errors.New("internal server error")
)

// AppError carries a stable code and a caller-facing message
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Detailed renders the message together with the wrapped cause, for logs
func (e *AppError) Detailed() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Constructors
func Unauthenticated(msg string) *AppError {
	return &AppError{Code: "UNAUTHENTICATED", Message: msg, Err: ErrUnauthenticated}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Err: ErrForbidden}
}

func InvalidCredentials(msg string) *AppError {
	if msg == "" {
		msg = "invalid identifier or password"
	}
	return &AppError{Code: "INVALID_CREDENTIALS", Message: msg, Err: ErrInvalidCredentials}
}

func Unavailable(msg string, err error) *AppError {
	return &AppError{Code: "UNAVAILABLE", Message: msg, Err: errors.Join(ErrUnavailable, err)}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func NotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Err: ErrNotFound}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: errors.Join(ErrInternalServer, err)}
}

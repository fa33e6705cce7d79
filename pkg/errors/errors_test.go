package errors_test

import (
	"errors"
	"fmt"
	"testing"

	apperrors "holding-admin/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapsSentinel(t *testing.T) {
	err := fmt.Errorf("login: %w", apperrors.InvalidCredentials("account locked"))

	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
	assert.False(t, errors.Is(err, apperrors.ErrUnavailable))
	assert.Equal(t, "login: account locked", err.Error())
}

func TestInvalidCredentialsDefaultMessage(t *testing.T) {
	assert.Equal(t, "invalid identifier or password", apperrors.InvalidCredentials("").Error())
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := apperrors.Unavailable("identity service unreachable", cause)

	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "identity service unreachable", err.Error())
	assert.Contains(t, err.Detailed(), "connection refused")

	var appErr *apperrors.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UNAVAILABLE", appErr.Code)
}

package identity

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"holding-admin/internal/auth"
	"holding-admin/internal/rbac"
	apperrors "holding-admin/pkg/errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		LoginURL:           url,
		Timeout:            2 * time.Second,
		BreakerMaxFailures: 2,
		BreakerOpenTimeout: time.Minute,
		Logger:             zerolog.Nop(),
	})
}

func TestAuthenticateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "editor@holding.uz", body["identifier"])
		assert.Equal(t, "s3cret", body["password"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"abc","user":{"id":"9","role":"moderator","permissions":{"news":"write","recipes":"read"}}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Authenticate(context.Background(), auth.Credentials{
		Identifier: "editor@holding.uz",
		Password:   "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Token)
	assert.Equal(t, rbac.Role("moderator"), res.Actor.Role)
	assert.Equal(t, rbac.LevelWrite, res.Actor.Permissions["news"])
	assert.Equal(t, rbac.LevelRead, res.Actor.Permissions["recipes"])
}

func TestAuthenticateFailureMessages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"error field", http.StatusUnauthorized, `{"error":"Invalid email or password"}`, apperrors.ErrInvalidCredentials, "Invalid email or password"},
		{"message field", http.StatusForbidden, `{"message":"Account disabled"}`, apperrors.ErrInvalidCredentials, "Account disabled"},
		{"plain text", http.StatusBadRequest, `identifier is required`, apperrors.ErrBadRequest, "identifier is required"},
		{"empty body", http.StatusUnauthorized, ``, apperrors.ErrInvalidCredentials, msgLoginRejected},
		{"html body", http.StatusUnauthorized, `<html>nope</html>`, apperrors.ErrInvalidCredentials, msgLoginRejected},
		{"throttled", http.StatusTooManyRequests, `{"error":"Too many attempts"}`, apperrors.ErrUnavailable, "Too many attempts"},
		{"server error", http.StatusBadGateway, `{"error":"upstream down"}`, apperrors.ErrUnavailable, "upstream down"},
		{"malformed success", http.StatusOK, `{"token":`, apperrors.ErrUnavailable, msgMalformedAnswer},
		{"success without user", http.StatusOK, `{"token":"t"}`, apperrors.ErrUnavailable, msgMalformedAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Authenticate(context.Background(), auth.Credentials{Identifier: "x", Password: "y"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestRejectionsDoNotOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad password"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := client.Authenticate(context.Background(), auth.Credentials{Identifier: "x", Password: "y"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}
	assert.Equal(t, int32(5), hits.Load())
}

func TestServerFailuresOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 2; i++ {
		_, err := client.Authenticate(context.Background(), auth.Credentials{Identifier: "x", Password: "y"})
		assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	}

	_, err := client.Authenticate(context.Background(), auth.Credentials{Identifier: "x", Password: "y"})
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, msgCircuitOpen, err.Error())
	assert.Equal(t, int32(2), hits.Load(), "open breaker short-circuits the request")
}

func TestAuthenticateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Authenticate(context.Background(), auth.Credentials{Identifier: "x", Password: "y"})
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, msgUnreachable, err.Error())
}

// Package identity talks to the external login endpoint.
package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"holding-admin/internal/auth"
	"holding-admin/internal/metrics"
	"holding-admin/internal/rbac"
	apperrors "holding-admin/pkg/errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	breakerName      = "identity-login"
	maxResponseBytes = 1 << 20

	msgUnreachable     = "identity service is unreachable"
	msgCircuitOpen     = "identity service is temporarily unavailable, try again shortly"
	msgMalformedAnswer = "identity service returned a malformed response"
	msgLoginRejected   = "login rejected by identity service"
)

// Config configures a Client.
type Config struct {
	LoginURL           string
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
	Logger             zerolog.Logger
	HTTPClient         *http.Client
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *rbac.Actor `json:"user"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// rejection is a non-2xx answer. It passes through the breaker as a
// success so that wrong passwords never open the circuit.
type rejection struct {
	status  int
	message string
}

// Client implements auth.Authenticator over HTTP.
type Client struct {
	loginURL string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[*loginOutcome]
	logger   zerolog.Logger
}

type loginOutcome struct {
	result    *auth.LoginResult
	rejection *rejection
}

var _ auth.Authenticator = (*Client)(nil)

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	maxFailures := uint32(5)
	if cfg.BreakerMaxFailures > 0 {
		maxFailures = uint32(cfg.BreakerMaxFailures)
	}

	logger := cfg.Logger
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*loginOutcome](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("identity: circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Client{
		loginURL: cfg.LoginURL,
		http:     httpClient,
		cb:       cb,
		logger:   logger,
	}
}

// Authenticate posts the credentials and returns the issued session.
// Rejections carry the service's own message as the error text.
func (c *Client) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.LoginResult, error) {
	body, err := json.Marshal(loginRequest{Identifier: creds.Identifier, Password: creds.Password})
	if err != nil {
		return nil, apperrors.InternalServer("encode login request", err)
	}

	outcome, err := c.cb.Execute(func() (*loginOutcome, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			return nil, apperrors.Unavailable(msgCircuitOpen, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Unavailable(msgUnreachable, err)
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()

	if outcome.rejection != nil {
		return nil, rejectionError(outcome.rejection)
	}
	return outcome.result, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*loginOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, apperrors.Unavailable(extractMessage(raw, msgUnreachable), fmt.Errorf("identity: status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &loginOutcome{rejection: &rejection{
			status:  resp.StatusCode,
			message: extractMessage(raw, msgLoginRejected),
		}}, nil
	}

	var decoded loginResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, apperrors.Unavailable(msgMalformedAnswer, err)
	}
	if decoded.Token == "" || decoded.User == nil {
		return nil, apperrors.Unavailable(msgMalformedAnswer, nil)
	}

	return &loginOutcome{result: &auth.LoginResult{Token: decoded.Token, Actor: decoded.User}}, nil
}

func rejectionError(r *rejection) error {
	switch r.status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return apperrors.InvalidCredentials(r.message)
	case http.StatusTooManyRequests:
		return apperrors.Unavailable(r.message, nil)
	default:
		return apperrors.BadRequest(r.message)
	}
}

// extractMessage pulls the human-readable error out of a failure body.
func extractMessage(raw []byte, fallback string) string {
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := strings.TrimSpace(body.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(body.Message); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return fallback
}

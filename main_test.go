package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"holding-admin/internal/config"
	"holding-admin/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeTrackingKV struct {
	*session.MemoryKV
	closed atomic.Int32
}

func (k *closeTrackingKV) Close() error {
	k.closed.Add(1)
	return k.MemoryKV.Close()
}

func useTrackedKV(t *testing.T) *closeTrackingKV {
	t.Helper()
	kv := &closeTrackingKV{MemoryKV: session.NewMemoryKV(time.Hour)}
	original := openSessionKV
	openSessionKV = func(context.Context, *config.Config) (session.KV, error) {
		return kv, nil
	}
	t.Cleanup(func() { openSessionKV = original })
	return kv
}

func runConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: "0", ShutdownTimeout: time.Second},
		Identity: config.IdentityConfig{LoginURL: "http://identity.invalid/login", Timeout: time.Second},
		Session: config.SessionConfig{
			Backend:    config.SessionBackendMemory,
			TTL:        time.Hour,
			CookieName: "cms_sid",
		},
		App: config.AppConfig{
			Locales:       []string{"en"},
			DefaultLocale: "en",
			AdminMinRole:  "moderator",
		},
	}
}

func TestRunClosesStoreWhenServerCannotBeBuilt(t *testing.T) {
	kv := useTrackedKV(t)
	cfg := runConfig()
	cfg.App.AdminMinRole = "superuser"

	err := run(context.Background(), cfg, zerolog.Nop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_MIN_ROLE")
	assert.Equal(t, int32(1), kv.closed.Load())
}

func TestRunClosesStoreWhenServerFails(t *testing.T) {
	kv := useTrackedKV(t)
	cfg := runConfig()
	cfg.Server.Port = "not-a-port"

	err := run(context.Background(), cfg, zerolog.Nop())

	require.Error(t, err)
	assert.Equal(t, int32(1), kv.closed.Load())
}

func TestRunShutsDownWhenContextEnds(t *testing.T) {
	kv := useTrackedKV(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, run(ctx, runConfig(), zerolog.Nop()))
	assert.Equal(t, int32(1), kv.closed.Load())
}

func TestRunReportsStoreOpenFailure(t *testing.T) {
	original := openSessionKV
	openSessionKV = func(context.Context, *config.Config) (session.KV, error) {
		return nil, errors.New("badger: lock held")
	}
	t.Cleanup(func() { openSessionKV = original })

	err := run(context.Background(), runConfig(), zerolog.Nop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "badger: lock held")
}

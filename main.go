package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"holding-admin/internal/audit"
	"holding-admin/internal/config"
	"holding-admin/internal/http"
	"holding-admin/internal/identity"
	"holding-admin/internal/logging"
	"holding-admin/internal/rbac"
	"holding-admin/internal/rbac/presets"
	"holding-admin/internal/session"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	envFilePath      = ".env"
	serverAddrPrefix = ":"
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// openSessionKV is replaced in tests.
var openSessionKV = func(ctx context.Context, cfg *config.Config) (session.KV, error) {
	return session.Open(ctx, cfg)
}

func main() {
	envErr := godotenv.Load(envFilePath)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if envErr != nil {
		logger.Warn().Msg(".env file not found, using environment variables")
	}
	logger.Info().Str("session_backend", cfg.Session.Backend).Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(logger.WithContext(context.Background()), shutdownSignals...)
	err = run(ctx, cfg, logger)
	stop()

	if err != nil {
		logger.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("Server exited gracefully")
}

// run serves until ctx is done or the server fails. The session store is
// closed on every return path.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	kv, err := openSessionKV(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open session store (%s): %w", cfg.Session.Backend, err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close session store")
		}
	}()

	identityClient := identity.NewClient(identity.Config{
		LoginURL:           cfg.Identity.LoginURL,
		Timeout:            cfg.Identity.Timeout,
		BreakerMaxFailures: cfg.Identity.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.Identity.BreakerOpenTimeout,
		Logger:             logger.With().Str("component", "identity").Logger(),
	})

	serverDeps := &http.ServerDependencies{
		Config:        cfg,
		SessionKV:     kv,
		Evaluator:     rbac.MustNew(presets.HoldingCMS()),
		Authenticator: identityClient,
		AuditLogger:   audit.NewLogger(logger),
		Logger:        logger,
	}

	server, err := http.NewServer(ctx, serverDeps)
	if err != nil {
		return fmt.Errorf("build HTTP server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("Starting HTTP server")
		serverErr <- server.Start(serverAddrPrefix + cfg.Server.Port)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

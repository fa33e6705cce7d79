package session

import (
	"context"
	"fmt"

	"holding-admin/internal/config"
)

// Open builds the KV backend selected by cfg.Session.Backend.
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	sc := cfg.Session

	switch sc.Backend {
	case config.SessionBackendMemory:
		return NewMemoryKV(sc.TTL), nil
	case config.SessionBackendFile:
		return NewFileKV(sc.Dir, sc.TTL)
	case config.SessionBackendBadger:
		return OpenBadgerKV(sc.BadgerPath, sc.TTL)
	case config.SessionBackendRedis:
		return NewRedisKV(sc.RedisAddr, sc.RedisPassword, sc.RedisDB, sc.TTL)
	case config.SessionBackendPostgres:
		return NewPostgresKV(ctx, &cfg.Database, sc.TTL)
	default:
		return nil, fmt.Errorf("session: unknown backend %q", sc.Backend)
	}
}

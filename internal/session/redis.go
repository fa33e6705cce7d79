package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "holding-admin:session:"
	redisPingTimeout = 5 * time.Second
)

// RedisKV stores values in Redis so several console replicas share sessions.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKV connects and pings Redis.
func NewRedisKV(addr, password string, db int, ttl time.Duration) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("session: ping redis %s: %w", addr, err)
	}

	return &RedisKV{client: client, ttl: ttl}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = redisKeyPrefix + key
	}
	return r.client.Del(ctx, prefixed...).Err()
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}

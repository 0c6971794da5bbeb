package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunGuard claims a named run so that only one process executes it.
type RunGuard interface {
	// Claim returns true if the caller now owns key for ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives up a claim so the run can be retried before the TTL ends.
	Release(ctx context.Context, key string) error
}

type noopGuard struct{}

// Noop grants every claim. Used when a single scheduler instance runs.
func Noop() RunGuard { return noopGuard{} }

func (noopGuard) Claim(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (noopGuard) Release(context.Context, string) error { return nil }

type redisGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisGuard claims keys with SET NX PX on the given client.
func NewRedisGuard(client *redis.Client, prefix string) RunGuard {
	return &redisGuard{client: client, prefix: prefix}
}

func (g *redisGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (g *redisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// NewRedisClient connects and pings, the same way the storage layer does.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acmduel/duelbot/internal/config"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// PendingBind is one in-flight account-binding handshake. It lives only in
// Redis until the handshake succeeds; the TTL is a GC backstop, the
// authoritative window check is the submission timestamp comparison.
type PendingBind struct {
	Handle  string `json:"handle"`
	StartAt int64  `json:"start_at"` // unix seconds
}

func (c *RedisCache) KeyForPendingBind(qq int64) string {
	return fmt.Sprintf("bind:pending:%d", qq)
}

// PutPendingBind records the handshake start. Overwrites any previous
// attempt by the same user.
func (c *RedisCache) PutPendingBind(ctx context.Context, qq int64, bind PendingBind, ttl time.Duration) error {
	raw, err := json.Marshal(bind)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, c.KeyForPendingBind(qq), raw, ttl).Err()
}

// HasPendingBind reports whether the user has an unconsumed handshake.
func (c *RedisCache) HasPendingBind(ctx context.Context, qq int64) (bool, error) {
	n, err := c.Client.Exists(ctx, c.KeyForPendingBind(qq)).Result()
	return n > 0, err
}

// TakePendingBind consumes the handshake entry: one attempt per start.
// ok is false when no entry exists (never started, already consumed, or
// expired past the backstop TTL).
func (c *RedisCache) TakePendingBind(ctx context.Context, qq int64) (PendingBind, bool, error) {
	raw, err := c.Client.GetDel(ctx, c.KeyForPendingBind(qq)).Result()
	if errors.Is(err, redis.Nil) {
		return PendingBind{}, false, nil
	}
	if err != nil {
		return PendingBind{}, false, err
	}

	var bind PendingBind
	if err := json.Unmarshal([]byte(raw), &bind); err != nil {
		return PendingBind{}, false, err
	}
	return bind, true, nil
}

// KeyForRanklist caches the rendered top-20 rating board.
func (c *RedisCache) KeyForRanklist() string {
	return "ranklist:rating"
}

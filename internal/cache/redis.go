package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/AdityaDodda/purchase-kandhari/internal/config"
)

const resetTokenPrefix = "pwreset:"

// Client wraps the Redis connection used for short-lived tokens
type Client struct {
	rdb *redis.Client
}

func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// SetResetToken stores a password-reset token mapped to a user id with a TTL
func (c *Client) SetResetToken(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return c.rdb.Set(ctx, resetTokenPrefix+token, userID, ttl).Err()
}

// GetResetToken resolves a token to a user id; redis.Nil means unknown/expired
func (c *Client) GetResetToken(ctx context.Context, token string) (uint, error) {
	v, err := c.rdb.Get(ctx, resetTokenPrefix+token).Uint64()
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// DeleteResetToken consumes a token after a successful reset
func (c *Client) DeleteResetToken(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, resetTokenPrefix+token).Err()
}

// IsNotFound reports whether err means the key was absent
func IsNotFound(err error) bool {
	return err == redis.Nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

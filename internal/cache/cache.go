package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client. Incr fails safe by swallowing connectivity
// errors. Every method works on a nil *Client, which behaves like an empty cache.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return NewFromRedis(redis.NewClient(opts))
}

// NewFromRedis wraps an existing redis client.
func NewFromRedis(rc *redis.Client) *Client {
	return &Client{client: rc}
}

// Incr increments the counter at key and makes sure it expires within ttl.
// A counter found without an expiry is given one, so a failed EXPIRE cannot
// leave it in place forever. It returns the new value, or 0 and false if
// redis is unavailable.
func (c *Client) Incr(ctx context.Context, key string, ttl time.Duration) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}

	var incr *redis.IntCmd
	var pttl *redis.DurationCmd
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pttl = pipe.PTTL(ctx, key)
		return nil
	}); err != nil {
		// fail safe: behave like an unseen key
		return 0, false
	}

	if pttl.Val() < 0 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, false
		}
	}
	return incr.Val(), true
}

// Delete removes a key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

// Ping reports whether redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return redis.ErrClosed
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

package auth

import (
	"context"
	"strings"
	"time"

	"residentportal/internal/cache"
)

const throttleKeyPrefix = "throttle:"

// Throttler limits how often a mail-sending action may run per address.
type Throttler interface {
	Allow(ctx context.Context, action, email string) bool
	Reset(ctx context.Context, action, email string) error
}

// Throttle is a fixed-window counter kept in Redis. It fails open: when Redis
// is unreachable every request is allowed.
type Throttle struct {
	cache  *cache.Client
	max    int64
	window time.Duration
}

// Ensure Throttle implements Throttler
var _ Throttler = (*Throttle)(nil)

// NewThrottle creates a throttle allowing max requests per window.
// A non-positive max disables throttling.
func NewThrottle(c *cache.Client, max int, window time.Duration) *Throttle {
	return &Throttle{cache: c, max: int64(max), window: window}
}

// Allow records one attempt and reports whether it is within the limit.
func (t *Throttle) Allow(ctx context.Context, action, email string) bool {
	if t == nil || t.max <= 0 {
		return true
	}
	n, ok := t.cache.Incr(ctx, throttleKey(action, email), t.window)
	if !ok {
		return true
	}
	return n <= t.max
}

// Reset clears the attempt counter for action and email.
func (t *Throttle) Reset(ctx context.Context, action, email string) error {
	if t == nil {
		return nil
	}
	return t.cache.Delete(ctx, throttleKey(action, email))
}

func throttleKey(action, email string) string {
	return throttleKeyPrefix + action + ":" + strings.ToLower(strings.TrimSpace(email))
}

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"residentportal/internal/model"
)

// tokenBytes is the amount of randomness per token (256 bits).
const tokenBytes = 32

// TokenIssuer generates single-use verification and reset tokens.
// Collisions are not checked; at 256 bits they are negligible.
type TokenIssuer struct {
	ttl map[model.TokenKind]time.Duration
	now func() time.Time
}

// IssuerOption configures a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithTTL overrides the lifetime of one token family.
func WithTTL(kind model.TokenKind, ttl time.Duration) IssuerOption {
	return func(i *TokenIssuer) {
		if ttl > 0 {
			i.ttl[kind] = ttl
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) { i.now = now }
}

// NewTokenIssuer creates an issuer with 24h verification and 1h reset lifetimes.
func NewTokenIssuer(opts ...IssuerOption) *TokenIssuer {
	i := &TokenIssuer{
		ttl: map[model.TokenKind]time.Duration{
			model.TokenKindVerification: model.TokenKindVerification.TTL(),
			model.TokenKindReset:        model.TokenKindReset.TTL(),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue returns a fresh 64-character hex token and its expiry.
func (i *TokenIssuer) Issue(kind model.TokenKind) (string, time.Time, error) {
	ttl, ok := i.ttl[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("generate %s token: %w", kind, err)
	}
	return hex.EncodeToString(buf), i.Now().Add(ttl), nil
}

// Now returns the issuer's current time in UTC.
func (i *TokenIssuer) Now() time.Time {
	return i.now().UTC()
}

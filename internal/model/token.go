package model

import "time"

// TokenKind identifies one of the two single-use token families.
type TokenKind string

const (
	TokenKindVerification TokenKind = "verification"
	TokenKindReset        TokenKind = "reset"
)

// TTL returns the default lifetime for tokens of this family.
func (k TokenKind) TTL() time.Duration {
	if k == TokenKindReset {
		return time.Hour
	}
	return 24 * time.Hour
}

// Columns returns the token and expiry column names backing this family.
func (k TokenKind) Columns() (token, expiry string) {
	if k == TokenKindReset {
		return "reset_token", "reset_token_expiry"
	}
	return "verification_token", "verification_token_expiry"
}

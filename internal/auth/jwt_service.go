package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "residentportal/internal/errors"
	"residentportal/internal/model"
)

// DefaultSessionTTL is the lifetime of a session token when none is configured.
const DefaultSessionTTL = 24 * time.Hour

// Principal is the authenticated identity carried by a session token.
type Principal struct {
	AccountID uuid.UUID
	Email     string
	Role      model.Role
}

// PrincipalOf derives the principal claims from the current account state.
func PrincipalOf(a *model.Account) Principal {
	return Principal{AccountID: a.ID, Email: a.Email, Role: a.Role}
}

// Claims represents JWT claims.
type Claims struct {
	AccountID string     `json:"account_id"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts validated claims into a Principal.
func (c *Claims) Principal() (Principal, error) {
	id, err := uuid.Parse(c.AccountID)
	if err != nil {
		return Principal{}, fmt.Errorf("account id claim: %w", err)
	}
	if !c.Role.Valid() {
		return Principal{}, fmt.Errorf("role claim %q", c.Role)
	}
	return Principal{AccountID: id, Email: c.Email, Role: c.Role}, nil
}

// JWTService handles session token generation and validation.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret. An empty
// secret is a configuration error.
func NewJWTService(secret, issuer string, ttl time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty signing secret", apperrors.ErrConfiguration)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Sign issues a session token for p and returns it with its expiry.
func (s *JWTService) Sign(p Principal) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		AccountID: p.AccountID.String(),
		Email:     p.Email,
		Role:      p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   p.AccountID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates a session token and returns its claims. Tokens without
// an expiry are rejected along with expired, tampered or foreign ones.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("token has no expiry")
	}
	if !claims.VerifyIssuer(s.issuer, s.issuer != "") {
		return nil, errors.New("unexpected issuer")
	}
	return claims, nil
}

// VerifyPrincipal validates a session token and returns its principal.
func (s *JWTService) VerifyPrincipal(tokenString string) (Principal, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return Principal{}, err
	}
	return claims.Principal()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"residentportal/internal/auth"
	apperrors "residentportal/internal/errors"
	"residentportal/internal/logging"
	"residentportal/internal/mailer"
	"residentportal/internal/model"
	"residentportal/internal/repository"
)

// DefaultMinPasswordLength is the shortest password accepted on registration and reset.
const DefaultMinPasswordLength = 6

// Messages returned to clients. The enumeration-sensitive ones are identical
// whether or not the address belongs to an account.
const (
	MsgRegistered         = "Registration successful. Please check your email to verify your account."
	MsgEmailVerified      = "Email verified successfully. You can now log in."
	MsgVerificationResent = "If an unverified account exists for that email, a new verification link has been sent."
	MsgResetRequested     = "If an account exists for that email, a password reset link has been sent."
	MsgPasswordReset      = "Password has been reset successfully. You can now log in."
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

const (
	actionResend = "resend-verification"
	actionForgot = "forgot-password"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, digest string) (bool, error)
}

// TokenIssuer issues single-use tokens.
type TokenIssuer interface {
	Issue(kind model.TokenKind) (string, time.Time, error)
	Now() time.Time
}

// SessionSigner signs session tokens.
type SessionSigner interface {
	Sign(p auth.Principal) (string, time.Time, error)
}

// RegisterInput carries self-registration data.
type RegisterInput struct {
	Email    string
	Password string
	Profile  model.Profile
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *model.Account
}

// AuthService owns the account credential lifecycle.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.Account, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	RefreshToken(ctx context.Context, accountID uuid.UUID) (*Session, error)
	Profile(ctx context.Context, accountID uuid.UUID) (*model.Account, error)
}

// Option configures the authentication service.
type Option func(*authService)

// WithMinPasswordLength overrides DefaultMinPasswordLength.
func WithMinPasswordLength(n int) Option {
	return func(s *authService) {
		if n > 0 {
			s.minPasswordLength = n
		}
	}
}

type authService struct {
	accountRepo       repository.AccountRepository
	hasher            PasswordHasher
	issuer            TokenIssuer
	signer            SessionSigner
	mailer            mailer.Mailer
	throttle          auth.Throttler
	logger            *slog.Logger
	minPasswordLength int
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	accountRepo repository.AccountRepository,
	hasher PasswordHasher,
	issuer TokenIssuer,
	signer SessionSigner,
	mail mailer.Mailer,
	throttle auth.Throttler,
	logger *slog.Logger,
	opts ...Option,
) AuthService {
	s := &authService{
		accountRepo:       accountRepo,
		hasher:            hasher,
		issuer:            issuer,
		signer:            signer,
		mailer:            mail,
		throttle:          throttle,
		logger:            logger,
		minPasswordLength: DefaultMinPasswordLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *authService) log(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *authService) checkPassword(password string) error {
	return validatePassword(password, s.minPasswordLength)
}

// validatePassword enforces the configured minimum and bcrypt's input limit.
func validatePassword(password string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if len(password) < minLength {
		return fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", apperrors.ErrValidation, maxPasswordBytes)
	}
	return nil
}

func (s *authService) allow(ctx context.Context, action, email string) bool {
	if s.throttle == nil {
		return true
	}
	return s.throttle.Allow(ctx, action, email)
}

// resetThrottle clears the attempt counter once the flow it guards has completed.
func (s *authService) resetThrottle(ctx context.Context, action, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, action, email); err != nil {
		s.log(ctx).Warn("reset throttle", "action", action, "error", err)
	}
}

// Register creates an unverified resident account and mails its verification link.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	if err := s.checkPassword(in.Password); err != nil {
		return nil, err
	}

	// Check if account already exists
	existing, err := s.accountRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		s.log(ctx).Warn("registration rejected: email taken", "email", email)
		return nil, apperrors.ErrConflict
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check account existence: %w", err)
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	token, expiresAt, err := s.issuer.Issue(model.TokenKindVerification)
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	account := &model.Account{
		Email:                   email,
		PasswordHash:            digest,
		Role:                    model.RoleResident,
		IsActive:                true,
		VerificationToken:       &token,
		VerificationTokenExpiry: &expiresAt,
		Profile:                 in.Profile,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.log(ctx).Info("account registered", "account_id", account.ID)

	s.sendVerification(ctx, account.Email, token)
	return account, nil
}

// sendVerification delivers a verification link. Failures are logged only;
// the account can always request a resend.
func (s *authService) sendVerification(ctx context.Context, email, token string) {
	if err := s.mailer.SendVerification(ctx, email, token); err != nil {
		s.log(ctx).Error("send verification email", "email", email, "error", err)
	}
}

// VerifyEmail consumes a verification token and marks its account verified.
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	now := s.issuer.Now()
	account, err := s.accountRepo.FindByActiveToken(ctx, model.TokenKindVerification, token, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log(ctx).Warn("verification rejected: unknown or expired token")
			return apperrors.ErrTokenInvalid
		}
		return fmt.Errorf("find verification token: %w", err)
	}

	ok, err := s.accountRepo.ConsumeToken(ctx, account.ID, model.TokenKindVerification, token, now, map[string]interface{}{
		"email_verified": true,
	})
	if err != nil {
		return err
	}
	if !ok {
		s.log(ctx).Warn("verification rejected: token already consumed", "account_id", account.ID)
		return apperrors.ErrTokenInvalid
	}

	s.log(ctx).Info("email verified", "account_id", account.ID)
	s.resetThrottle(ctx, actionResend, account.Email)
	return nil
}

// ResendVerification reissues the verification link. Unknown or throttled
// addresses get the same silent success as a real resend.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !s.allow(ctx, actionResend, email) {
		s.log(ctx).Warn("resend verification throttled", "email", email)
		return nil
	}

	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("find account: %w", err)
	}
	if account.EmailVerified {
		return apperrors.ErrAlreadyVerified
	}

	token, expiresAt, err := s.issuer.Issue(model.TokenKindVerification)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	// Last issued wins: any earlier link stops working here.
	if err := s.accountRepo.SetToken(ctx, account.ID, model.TokenKindVerification, token, expiresAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// verified between the read and the write
			return apperrors.ErrAlreadyVerified
		}
		return err
	}
	s.log(ctx).Info("verification token reissued", "account_id", account.ID)

	s.sendVerification(ctx, account.Email, token)
	return nil
}

// Login checks credentials and account state and issues a session token.
// Deactivation and verification are checked before the password.
func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log(ctx).Warn("login rejected: unknown email", "email", email)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if !account.IsActive {
		s.log(ctx).Warn("login rejected: account deactivated", "account_id", account.ID)
		return nil, apperrors.ErrAccountDeactivated
	}
	if !account.EmailVerified {
		s.log(ctx).Warn("login rejected: email not verified", "account_id", account.ID)
		return nil, apperrors.ErrEmailNotVerified
	}

	ok, err := s.hasher.Verify(ctx, password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.log(ctx).Warn("login rejected: wrong password", "account_id", account.ID)
		return nil, apperrors.ErrInvalidCredentials
	}

	session, err := s.issueSession(account)
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("login succeeded", "account_id", account.ID, "role", account.Role)
	return session, nil
}

func (s *authService) issueSession(account *model.Account) (*Session, error) {
	token, expiresAt, err := s.signer.Sign(auth.PrincipalOf(account))
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// ForgotPassword issues and mails a reset token when the address belongs to
// an account. The caller sees the same result either way.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !s.allow(ctx, actionForgot, email) {
		s.log(ctx).Warn("forgot password throttled", "email", email)
		return nil
	}

	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("find account: %w", err)
	}

	token, expiresAt, err := s.issuer.Issue(model.TokenKindReset)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	// Last issued wins: any earlier link stops working here.
	if err := s.accountRepo.SetToken(ctx, account.ID, model.TokenKindReset, token, expiresAt); err != nil {
		return err
	}
	s.log(ctx).Info("password reset requested", "account_id", account.ID)

	if err := s.mailer.SendReset(ctx, account.Email, token); err != nil {
		s.log(ctx).Error("send reset email", "email", account.Email, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := s.checkPassword(newPassword); err != nil {
		return err
	}

	now := s.issuer.Now()
	account, err := s.accountRepo.FindByActiveToken(ctx, model.TokenKindReset, token, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log(ctx).Warn("password reset rejected: unknown or expired token")
			return apperrors.ErrTokenInvalid
		}
		return fmt.Errorf("find reset token: %w", err)
	}

	digest, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ok, err := s.accountRepo.ConsumeToken(ctx, account.ID, model.TokenKindReset, token, now, map[string]interface{}{
		"password_hash": digest,
	})
	if err != nil {
		return err
	}
	if !ok {
		s.log(ctx).Warn("password reset rejected: token already consumed", "account_id", account.ID)
		return apperrors.ErrTokenInvalid
	}

	s.log(ctx).Info("password reset", "account_id", account.ID)
	s.resetThrottle(ctx, actionForgot, account.Email)
	return nil
}

// RefreshToken re-signs a session from the account's current state, so role
// changes since the last sign-in are picked up.
func (s *authService) RefreshToken(ctx context.Context, accountID uuid.UUID) (*Session, error) {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		s.log(ctx).Warn("refresh rejected: account deactivated", "account_id", account.ID)
		return nil, apperrors.ErrAccountDeactivated
	}
	return s.issueSession(account)
}

// Profile returns the account of the authenticated principal.
func (s *authService) Profile(ctx context.Context, accountID uuid.UUID) (*model.Account, error) {
	return s.findAccount(ctx, accountID)
}

func (s *authService) findAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "residentportal/internal/errors"
	"residentportal/internal/model"
	"residentportal/internal/repository"
)

// AccountService handles administrative account operations.
type AccountService interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
	SeedAdmin(ctx context.Context, in RegisterInput) (account *model.Account, created bool, err error)
}

type accountService struct {
	repo              repository.AccountRepository
	hasher            PasswordHasher
	logger            *slog.Logger
	minPasswordLength int
}

// NewAccountService creates a new account service. hasher must be the same
// instance used by the authentication service so every digest shares one cost,
// and minPasswordLength the minimum it enforces on registration.
func NewAccountService(repo repository.AccountRepository, hasher PasswordHasher, logger *slog.Logger, minPasswordLength int) AccountService {
	return &accountService{
		repo:              repo,
		hasher:            hasher,
		logger:            logger,
		minPasswordLength: minPasswordLength,
	}
}

// GetAccount retrieves an account by ID.
func (s *accountService) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

// SeedAdmin creates a verified, active administrator, or promotes the
// existing account with that email and replaces its password.
func (s *accountService) SeedAdmin(ctx context.Context, in RegisterInput) (*model.Account, bool, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, false, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	if err := validatePassword(in.Password, s.minPasswordLength); err != nil {
		return nil, false, err
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("seed admin %s: %w", email, err)
	}

	if existing != nil {
		existing.PasswordHash = digest
		existing.Role = model.RoleAdmin
		existing.IsActive = true
		existing.EmailVerified = true
		existing.VerificationToken = nil
		existing.VerificationTokenExpiry = nil
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("update account %s: %w", existing.ID, err)
		}
		s.logger.Info("promoted account to admin", "account_id", existing.ID)
		return existing, false, nil
	}

	account := &model.Account{
		Email:         email,
		PasswordHash:  digest,
		Role:          model.RoleAdmin,
		IsActive:      true,
		EmailVerified: true,
		Profile:       in.Profile,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, false, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info("created admin account", "account_id", account.ID)
	return account, true, nil
}

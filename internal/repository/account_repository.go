package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "residentportal/internal/errors"
	"residentportal/internal/model"
)

// AccountRepository defines credential store operations.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	Update(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	// FindByActiveToken finds the account whose token of the given family
	// equals token and whose expiry is strictly after now.
	FindByActiveToken(ctx context.Context, kind model.TokenKind, token string, now time.Time) (*model.Account, error)
	// SetToken overwrites the token pair of the given family, invalidating
	// any previously issued value. Verification tokens are only written to
	// unverified accounts; otherwise gorm.ErrRecordNotFound is returned.
	SetToken(ctx context.Context, id uuid.UUID, kind model.TokenKind, token string, expiresAt time.Time) error
	// ConsumeToken clears the token pair and applies changes in a single
	// conditional update. It reports false when the token no longer matches
	// or has expired, i.e. another request consumed it first.
	ConsumeToken(ctx context.Context, id uuid.UUID, kind model.TokenKind, token string, now time.Time, changes map[string]interface{}) (bool, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account. A duplicate email yields errors.ErrConflict.
func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// Update updates an existing account.
func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// FindByID finds an account by ID.
func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByEmail finds an account by its exact email.
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByActiveToken(ctx context.Context, kind model.TokenKind, token string, now time.Time) (*model.Account, error) {
	if token == "" {
		return nil, gorm.ErrRecordNotFound
	}
	tokenCol, expiryCol := kind.Columns()

	var account model.Account
	err := r.db.WithContext(ctx).
		Where(tokenCol+" = ?", token).
		Where(expiryCol+" > ?", now.UTC()).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) SetToken(ctx context.Context, id uuid.UUID, kind model.TokenKind, token string, expiresAt time.Time) error {
	tokenCol, expiryCol := kind.Columns()

	q := r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id)
	if kind == model.TokenKindVerification {
		// a verified account never carries a verification token
		q = q.Where("email_verified = ?", false)
	}
	result := q.Updates(map[string]interface{}{
		tokenCol:  token,
		expiryCol: expiresAt.UTC(),
	})
	if result.Error != nil {
		return fmt.Errorf("set %s token: %w", kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *accountRepository) ConsumeToken(ctx context.Context, id uuid.UUID, kind model.TokenKind, token string, now time.Time, changes map[string]interface{}) (bool, error) {
	tokenCol, expiryCol := kind.Columns()

	updates := map[string]interface{}{
		tokenCol:  nil,
		expiryCol: nil,
	}
	for col, val := range changes {
		updates[col] = val
	}

	result := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Where(tokenCol+" = ?", token).
		Where(expiryCol+" > ?", now.UTC()).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("consume %s token: %w", kind, result.Error)
	}
	return result.RowsAffected == 1, nil
}

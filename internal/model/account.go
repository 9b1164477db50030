package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the authorization role carried by an account and its session tokens.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleStaff    Role = "STAFF"
	RoleResident Role = "RESIDENT"
	RoleOfficial Role = "OFFICIAL"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleResident, RoleOfficial:
		return true
	}
	return false
}

// Profile holds the personal details collected at registration.
type Profile struct {
	FirstName     string `json:"first_name" gorm:"size:100;not null"`
	MiddleName    string `json:"middle_name,omitempty" gorm:"size:100"`
	LastName      string `json:"last_name" gorm:"size:100;not null"`
	ContactNumber string `json:"contact_number,omitempty" gorm:"size:32"`
	Address       string `json:"address,omitempty" gorm:"size:255"`
}

// Account is a portal login. Token fields are only set while a verification
// or reset request is outstanding, and always together with their expiry.
type Account struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;default:'RESIDENT';index"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`

	EmailVerified           bool       `json:"email_verified" gorm:"not null;default:false"`
	VerificationToken       *string    `json:"-" gorm:"size:64;index"`
	VerificationTokenExpiry *time.Time `json:"-"`
	ResetToken              *string    `json:"-" gorm:"size:64;index"`
	ResetTokenExpiry        *time.Time `json:"-"`

	Profile Profile `json:"profile" gorm:"embedded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID and default role before creating the record.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Role == "" {
		a.Role = RoleResident
	}
	return nil
}

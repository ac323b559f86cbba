// Package domain contains core types for account management.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/token"
	"gorm.io/datatypes"
)

// User is an account in either the customer plane (klient) or the staff
// plane (bruker). Organization and subscription fields are set for klient
// accounts only; bruker accounts never carry them.
type User struct {
	ID    snowflake.ID      `gorm:"primaryKey"`
	Email string            `gorm:"type:text;not null;uniqueIndex"`
	Name  string            `gorm:"type:text"`
	Kind  token.SubjectKind `gorm:"type:text;not null"`

	OrgID              string `gorm:"column:org_id"`
	OrgSlug            string `gorm:"column:org_slug"`
	SubscriptionTier   string `gorm:"column:subscription_tier"`
	SubscriptionActive bool   `gorm:"column:subscription_active"`

	PasswordHash        *string    `gorm:"type:text"`
	LastPasswordChanged *time.Time `gorm:"column:last_password_changed"`

	// Two-factor state. The secret is stored encrypted; backup codes are
	// stored as salted hashes and removed one by one as they are consumed.
	TOTPEnabled         bool                        `gorm:"column:totp_enabled;not null;default:false"`
	TOTPSecretEncrypted *string                     `gorm:"column:totp_secret_encrypted;type:text"`
	TOTPVerifiedAt      *time.Time                  `gorm:"column:totp_verified_at"`
	TOTPLastUsedStep    int64                       `gorm:"column:totp_last_used_step;not null;default:0"`
	BackupCodeHashes    datatypes.JSONSlice[string] `gorm:"column:backup_code_hashes"`
	BackupCodesUsed     int                         `gorm:"column:backup_codes_used;not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

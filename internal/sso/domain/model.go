// Package domain contains core types for the cross-domain SSO relay.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/token"
)

// RedemptionTTL is the hard lifetime of a redemption token. The window is
// deliberately tight: the token only has to survive one browser POST hop.
const RedemptionTTL = 30 * time.Second

// RedemptionToken is the persisted half of a one-time SSO handoff. Only
// hashes are stored; the raw token exists in the self-submitting form and
// nowhere else.
type RedemptionToken struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	TokenHash   string            `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	SubjectID   string            `gorm:"column:subject_id;type:text;not null"`
	SubjectKind token.SubjectKind `gorm:"column:subject_kind;type:text;not null"`
	OrgID       string            `gorm:"column:org_id;type:text"`
	OrgSlug     string            `gorm:"column:org_slug;type:text"`
	IPHash      string            `gorm:"column:ip_hash;type:text;not null"`
	ExpiresAt   time.Time         `gorm:"column:expires_at;not null;index"`
	CreatedAt   time.Time         `gorm:"column:created_at;not null"`
}

// TableName sets the database table name.
func (RedemptionToken) TableName() string { return "sso_redemptions" }

// Grant is what a successful redemption yields: enough identity to mint a
// fresh ordinary session token on the receiving origin.
type Grant struct {
	SubjectID   string
	SubjectKind token.SubjectKind
	OrgID       string
	OrgSlug     string
}

var (
	// ErrTokenExpiredOrUsed covers not-found, expired, and already-redeemed
	// uniformly so callers cannot distinguish a guessed token from a stale one.
	ErrTokenExpiredOrUsed = errors.New("sso_token_expired_or_used")
	ErrOriginMismatch     = errors.New("sso_origin_mismatch")
	ErrIPMismatch         = errors.New("sso_ip_mismatch")
)

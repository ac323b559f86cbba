// Package domain contains core types for session revocation and the
// user-facing active-session listing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/token"
)

// RevocationEntry marks a jti invalid before its natural expiry. Rows are
// garbage-collected once past ExpiresAt; ExpiresAt is floored to the
// refresh-token lifetime so an entry can never be outlived by a token that
// references it.
type RevocationEntry struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	JTI         string            `gorm:"column:jti;type:text;not null;uniqueIndex"`
	SubjectID   string            `gorm:"column:subject_id;type:text;not null;index"`
	SubjectKind token.SubjectKind `gorm:"column:subject_kind;type:text;not null"`
	Reason      string            `gorm:"column:reason;type:text"`
	ExpiresAt   time.Time         `gorm:"column:expires_at;not null;index"`
	CreatedAt   time.Time         `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RevocationEntry) TableName() string { return "session_revocations" }

// ActiveSession is one row per issued session token, used only for the
// "your devices" listing and selective termination.
type ActiveSession struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	JTI         string            `gorm:"column:jti;type:text;not null;uniqueIndex"`
	SubjectID   string            `gorm:"column:subject_id;type:text;not null;index"`
	SubjectKind token.SubjectKind `gorm:"column:subject_kind;type:text;not null"`
	IPAddress   string            `gorm:"column:ip_address;type:text"`
	UserAgent   string            `gorm:"column:user_agent;type:text"`
	DeviceInfo  string            `gorm:"column:device_info;type:text"`
	LastSeenAt  time.Time         `gorm:"column:last_seen_at;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;not null"`
	ExpiresAt   time.Time         `gorm:"column:expires_at;not null;index"`
}

// TableName sets the database table name.
func (ActiveSession) TableName() string { return "active_sessions" }

// SessionView is returned to clients without exposing token material.
type SessionView struct {
	ID         string    `json:"id"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	DeviceInfo string    `json:"device_info"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

func (s ActiveSession) View(currentJTI string) SessionView {
	return SessionView{
		ID:         s.ID.String(),
		IPAddress:  s.IPAddress,
		UserAgent:  s.UserAgent,
		DeviceInfo: s.DeviceInfo,
		LastSeenAt: s.LastSeenAt,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		Current:    s.JTI == currentJTI,
	}
}

// Package domain contains core types for the security audit trail.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/token"
	"gorm.io/datatypes"
)

// AuditLog is one append-only security event. The trail is write-only
// from the engine's point of view; it is read by operators, never by the
// code that produces it.
type AuditLog struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	SubjectID   string            `gorm:"column:subject_id;type:text;not null;index"`
	SubjectKind token.SubjectKind `gorm:"column:subject_kind;type:text;not null"`
	Action      string            `gorm:"type:text;not null;index"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	IPAddress   *string           `gorm:"column:ip_address;type:text"`
	UserAgent   *string           `gorm:"column:user_agent;type:text"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// Entry is the caller-facing shape of an event.
type Entry struct {
	SubjectID   string
	SubjectKind token.SubjectKind
	Action      string
	Metadata    map[string]any
	IPAddress   string
	UserAgent   string
}

// Service appends security events. Record never fails the calling
// operation: a lost audit write is logged and swallowed.
type Service interface {
	Record(ctx context.Context, entry Entry)
}

// Repository defines persistence behavior for the audit trail.
type Repository interface {
	Insert(ctx context.Context, entry *AuditLog) error
}

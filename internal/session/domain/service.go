package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/token"
)

type Service interface {
	// IsBlacklisted fails closed: a transient store error is surfaced so the
	// caller rejects the request. The one fail-open case is the revocations
	// table being absent before migration; that path returns false and logs
	// loudly.
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	Blacklist(ctx context.Context, req BlacklistRequest) error

	Track(ctx context.Context, req TrackRequest) (*ActiveSession, error)
	Touch(ctx context.Context, jti string, at time.Time) error
	ListActiveSessions(ctx context.Context, subjectID string, kind token.SubjectKind) ([]ActiveSession, error)
	Terminate(ctx context.Context, req TerminateRequest) error
	Logout(ctx context.Context, claims *token.Claims) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type BlacklistRequest struct {
	JTI         string
	SubjectID   string
	SubjectKind token.SubjectKind
	Reason      string
	TTL         time.Duration
}

type TrackRequest struct {
	JTI         string
	SubjectID   string
	SubjectKind token.SubjectKind
	IPAddress   string
	UserAgent   string
	DeviceInfo  string
	ExpiresAt   time.Time
}

type TerminateRequest struct {
	SessionID   snowflake.ID
	SubjectID   string
	SubjectKind token.SubjectKind
	CallerJTI   string
}

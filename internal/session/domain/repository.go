package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/token"
)

type Repository interface {
	InsertRevocation(ctx context.Context, entry *RevocationEntry) error
	CountRevocations(ctx context.Context, jti string, now time.Time) (int64, error)

	CreateSession(ctx context.Context, session *ActiveSession) error
	FindSession(ctx context.Context, id snowflake.ID) (*ActiveSession, error)
	ListSessions(ctx context.Context, subjectID string, kind token.SubjectKind, now time.Time) ([]ActiveSession, error)
	UpdateLastSeen(ctx context.Context, jti string, at time.Time) error
	DeleteSession(ctx context.Context, id snowflake.ID) error
	DeleteSessionByJTI(ctx context.Context, jti string) error

	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

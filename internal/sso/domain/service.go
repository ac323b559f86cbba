package domain

import (
	"context"
	"time"

	"github.com/feltflyt/feltflyt/internal/token"
)

type Service interface {
	// Issue mints a single-use redemption token bound to the caller's
	// hashed IP. The raw token is returned exactly once.
	Issue(ctx context.Context, req IssueRequest) (string, time.Time, error)
	// Redeem consumes a token atomically. Concurrent attempts with the same
	// token yield at most one Grant; the losers get ErrTokenExpiredOrUsed.
	Redeem(ctx context.Context, rawToken, clientIP string) (*Grant, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type IssueRequest struct {
	SubjectID   string
	SubjectKind token.SubjectKind
	OrgID       string
	OrgSlug     string
	ClientIP    string
}

type Repository interface {
	Create(ctx context.Context, tok *RedemptionToken) error
	// Consume deletes the row keyed by the token hash and returns it. The
	// delete is the single-use gate: whoever wins the row wins the grant.
	Consume(ctx context.Context, tokenHash string) (*RedemptionToken, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

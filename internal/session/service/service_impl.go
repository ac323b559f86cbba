package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/config"
	"github.com/feltflyt/feltflyt/internal/session/domain"
	"github.com/feltflyt/feltflyt/internal/token"
	"go.uber.org/zap"
)

type Service struct {
	log        *zap.Logger
	repo       domain.Repository
	genID      *snowflake.Node
	refreshTTL time.Duration
	now        func() time.Time
}

func New(log *zap.Logger, repo domain.Repository, genID *snowflake.Node, cfg config.Config) domain.Service {
	return &Service{
		log:        log.Named("session.service"),
		repo:       repo,
		genID:      genID,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

func (s *Service) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		// A token without a jti never reaches this point in normal flow;
		// treat it as revoked rather than guessing.
		return true, nil
	}

	count, err := s.repo.CountRevocations(ctx, jti, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrRevocationTableMissing) {
			// Deliberate fail-open: the schema has not been migrated yet.
			// Every other store error fails closed.
			s.log.Error("revocation table absent, failing OPEN on blacklist check; run migrations",
				zap.String("jti", jti),
			)
			return false, nil
		}
		s.log.Warn("revocation lookup failed, failing closed", zap.Error(err))
		return false, err
	}
	return count > 0, nil
}

func (s *Service) Blacklist(ctx context.Context, req domain.BlacklistRequest) error {
	if req.JTI == "" {
		return domain.ErrSessionNotFound
	}

	// Floor the entry lifetime at the refresh-token lifetime so a revocation
	// can never expire before the longest-lived token that carries its jti.
	ttl := req.TTL
	if ttl < s.refreshTTL {
		ttl = s.refreshTTL
	}

	now := s.now().UTC()
	return s.repo.InsertRevocation(ctx, &domain.RevocationEntry{
		ID:          s.genID.Generate(),
		JTI:         req.JTI,
		SubjectID:   req.SubjectID,
		SubjectKind: req.SubjectKind,
		Reason:      req.Reason,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	})
}

func (s *Service) Track(ctx context.Context, req domain.TrackRequest) (*domain.ActiveSession, error) {
	now := s.now().UTC()
	session := &domain.ActiveSession{
		ID:          s.genID.Generate(),
		JTI:         req.JTI,
		SubjectID:   req.SubjectID,
		SubjectKind: req.SubjectKind,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		DeviceInfo:  req.DeviceInfo,
		LastSeenAt:  now,
		CreatedAt:   now,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) Touch(ctx context.Context, jti string, at time.Time) error {
	err := s.repo.UpdateLastSeen(ctx, jti, at.UTC())
	if errors.Is(err, domain.ErrSessionNotFound) {
		// The token can outlive its listing row; last-activity is advisory.
		return nil
	}
	return err
}

func (s *Service) ListActiveSessions(ctx context.Context, subjectID string, kind token.SubjectKind) ([]domain.ActiveSession, error) {
	return s.repo.ListSessions(ctx, subjectID, kind, s.now().UTC())
}

// Terminate revokes another session belonging to the same subject. The
// caller's own session must go through Logout instead, otherwise the user
// would stay logged in on a cookie whose jti they just blacklisted.
func (s *Service) Terminate(ctx context.Context, req domain.TerminateRequest) error {
	session, err := s.repo.FindSession(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if session.SubjectID != req.SubjectID || session.SubjectKind != req.SubjectKind {
		// Do not reveal that the row exists.
		return domain.ErrSessionNotFound
	}
	if session.JTI == req.CallerJTI {
		return domain.ErrCannotTerminateCurrent
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if err := s.Blacklist(ctx, domain.BlacklistRequest{
		JTI:         session.JTI,
		SubjectID:   session.SubjectID,
		SubjectKind: session.SubjectKind,
		Reason:      "terminated",
		TTL:         ttl,
	}); err != nil {
		return err
	}

	return s.repo.DeleteSession(ctx, session.ID)
}

func (s *Service) Logout(ctx context.Context, claims *token.Claims) error {
	if claims == nil || claims.JTI() == "" {
		return domain.ErrSessionNotFound
	}

	if err := s.Blacklist(ctx, domain.BlacklistRequest{
		JTI:         claims.JTI(),
		SubjectID:   claims.SubjectID(),
		SubjectKind: claims.SubjectKind,
		Reason:      "logout",
		TTL:         s.refreshTTL,
	}); err != nil {
		return err
	}

	return s.repo.DeleteSessionByJTI(ctx, claims.JTI())
}

func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := s.repo.PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		return purged, err
	}
	if purged > 0 {
		s.log.Info("purged expired session rows", zap.Int64("rows", purged))
	}
	return purged, nil
}

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/sso/domain"
	"go.uber.org/zap"
)

const redemptionTokenBytes = 32

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	now   func() time.Time
}

func New(log *zap.Logger, repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &Service{
		log:   log.Named("sso.service"),
		repo:  repo,
		genID: genID,
		now:   time.Now,
	}
}

func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (string, time.Time, error) {
	rawToken, err := newRedemptionToken()
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(domain.RedemptionTTL)
	err = s.repo.Create(ctx, &domain.RedemptionToken{
		ID:          s.genID.Generate(),
		TokenHash:   hashValue(rawToken),
		SubjectID:   req.SubjectID,
		SubjectKind: req.SubjectKind,
		OrgID:       req.OrgID,
		OrgSlug:     req.OrgSlug,
		IPHash:      hashValue(req.ClientIP),
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	s.log.Info("issued sso redemption token",
		zap.String("subject_id", req.SubjectID),
		zap.String("subject_kind", string(req.SubjectKind)),
	)
	return rawToken, expiresAt, nil
}

func (s *Service) Redeem(ctx context.Context, rawToken, clientIP string) (*domain.Grant, error) {
	if rawToken == "" {
		return nil, domain.ErrTokenExpiredOrUsed
	}

	row, err := s.repo.Consume(ctx, hashValue(rawToken))
	if err != nil {
		return nil, err
	}

	if s.now().After(row.ExpiresAt) {
		return nil, domain.ErrTokenExpiredOrUsed
	}

	// IP binding: theft of the token in transit does not help an attacker
	// on a different address. Mobile networks that rotate IPs inside the
	// 30-second window lose the handoff and fall back to a normal login;
	// that availability cost is accepted.
	if subtle.ConstantTimeCompare([]byte(row.IPHash), []byte(hashValue(clientIP))) != 1 {
		s.log.Warn("sso redemption ip mismatch", zap.String("subject_id", row.SubjectID))
		return nil, domain.ErrIPMismatch
	}

	return &domain.Grant{
		SubjectID:   row.SubjectID,
		SubjectKind: row.SubjectKind,
		OrgID:       row.OrgID,
		OrgSlug:     row.OrgSlug,
	}, nil
}

func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, s.now().UTC())
}

func newRedemptionToken() (string, error) {
	buf := make([]byte, redemptionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashValue(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

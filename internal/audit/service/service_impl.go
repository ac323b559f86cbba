// Package service implements the append-only audit trail.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/audit/domain"
	"github.com/feltflyt/feltflyt/internal/audit/masking"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	now   func() time.Time
}

// New creates the audit service.
func New(log *zap.Logger, repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &Service{
		log:   log.Named("audit.service"),
		repo:  repo,
		genID: genID,
		now:   time.Now,
	}
}

// Record appends the event. A failed write must never fail the security
// operation that produced it, so errors are logged and swallowed.
func (s *Service) Record(ctx context.Context, entry domain.Entry) {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return
	}

	row := &domain.AuditLog{
		ID:          s.genID.Generate(),
		SubjectID:   entry.SubjectID,
		SubjectKind: entry.SubjectKind,
		Action:      action,
		Metadata:    datatypes.JSONMap(masking.Sanitize(entry.Metadata)),
		CreatedAt:   s.now().UTC(),
	}
	if ip := strings.TrimSpace(entry.IPAddress); ip != "" {
		row.IPAddress = &ip
	}
	if ua := strings.TrimSpace(entry.UserAgent); ua != "" {
		row.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, row); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("subject_id", entry.SubjectID),
			zap.Error(err))
	}
}

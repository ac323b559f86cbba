package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/session/domain"
	"github.com/feltflyt/feltflyt/internal/token"
	"github.com/feltflyt/feltflyt/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) InsertRevocation(ctx context.Context, entry *domain.RevocationEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if db.IsDuplicateKeyErr(err) {
		// Revoking the same jti twice is a no-op.
		return nil
	}
	return err
}

func (r *repo) CountRevocations(ctx context.Context, jti string, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.RevocationEntry{}).
		Where("jti = ? AND expires_at > ?", jti, now).
		Count(&count).Error
	if err != nil {
		if db.IsMissingTableErr(err) {
			return 0, domain.ErrRevocationTableMissing
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return count, nil
}

func (r *repo) CreateSession(ctx context.Context, session *domain.ActiveSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindSession(ctx context.Context, id snowflake.ID) (*domain.ActiveSession, error) {
	var session domain.ActiveSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) ListSessions(ctx context.Context, subjectID string, kind token.SubjectKind, now time.Time) ([]domain.ActiveSession, error) {
	var sessions []domain.ActiveSession
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND subject_kind = ? AND expires_at > ?", subjectID, kind, now).
		Order("last_seen_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) UpdateLastSeen(ctx context.Context, jti string, at time.Time) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.ActiveSession{}).
		Where("jti = ?", jti).
		Update("last_seen_at", at)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *repo) DeleteSession(ctx context.Context, id snowflake.ID) error {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ActiveSession{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *repo) DeleteSessionByJTI(ctx context.Context, jti string) error {
	return r.db.WithContext(ctx).Where("jti = ?", jti).Delete(&domain.ActiveSession{}).Error
}

func (r *repo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var purged int64

	tx := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.RevocationEntry{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	purged += tx.RowsAffected

	tx = r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.ActiveSession{})
	if tx.Error != nil {
		return purged, tx.Error
	}
	purged += tx.RowsAffected

	return purged, nil
}

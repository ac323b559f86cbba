package repository

import (
	"context"
	"errors"
	"time"

	"github.com/feltflyt/feltflyt/internal/sso/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Create(ctx context.Context, tok *domain.RedemptionToken) error {
	return r.db.WithContext(ctx).Create(tok).Error
}

func (r *repo) Consume(ctx context.Context, tokenHash string) (*domain.RedemptionToken, error) {
	var row domain.RedemptionToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTokenExpiredOrUsed
	}
	if err != nil {
		return nil, err
	}

	// The conditional delete is the race arbiter: of two concurrent
	// redemptions, exactly one observes RowsAffected == 1.
	tx := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&domain.RedemptionToken{})
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, domain.ErrTokenExpiredOrUsed
	}
	return &row, nil
}

func (r *repo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.RedemptionToken{})
	return tx.RowsAffected, tx.Error
}

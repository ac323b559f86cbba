// Package repository provides audit-trail persistence backed by gorm.
package repository

import (
	"context"

	"github.com/feltflyt/feltflyt/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

// New creates an audit repository.
func New(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Insert(ctx context.Context, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
)

// AuditRepository 审计日志只允许追加与查询
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]*model.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepository{db: db} }

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]*model.AuditLog, error) {
	var res []*model.AuditLog
	err := r.db.WithContext(ctx).
		Preload("Admin", func(db *gorm.DB) *gorm.DB { return db.Select("id", "full_name", "email") }).
		Order("created_at DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

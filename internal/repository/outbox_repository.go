package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
)

// OutboxRepository 事件外发盒
type OutboxRepository interface {
	// Emit 写入一条待投递事件，应在业务事务内调用
	Emit(ctx context.Context, evt *model.OutboxEvent) error
	// Claim 领取一批 pending 事件并标记为 processing
	Claim(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkDone(ctx context.Context, id string) error
	// MarkRetry 投递失败：未超过上限时退回 pending，否则标记 failed
	MarkRetry(ctx context.Context, id string, attempts, maxAttempts int) error
	// Purge 删除 before 之前已投递完成的事件
	Purge(ctx context.Context, before time.Time) (int64, error)
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) Emit(ctx context.Context, evt *model.OutboxEvent) error {
	if evt.Status == "" {
		evt.Status = model.OutboxPending
	}
	return r.db.WithContext(ctx).Create(evt).Error
}

func (r *outboxRepository) Claim(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	var batch []*model.OutboxEvent
	if err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("created_at").
		Limit(limit).
		Find(&batch).Error; err != nil {
		return nil, err
	}
	claimed := batch[:0]
	for _, evt := range batch {
		// 多个 relay 并发时以状态 CAS 保证每条事件只被一个领取
		res := r.db.WithContext(ctx).
			Model(&model.OutboxEvent{}).
			Where("id = ? AND status = ?", evt.ID, model.OutboxPending).
			Update("status", model.OutboxProcessing)
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 1 {
			evt.Status = model.OutboxProcessing
			claimed = append(claimed, evt)
		}
	}
	return claimed, nil
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxDone, "processed_at": now}).Error
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id string, attempts, maxAttempts int) error {
	status := model.OutboxPending
	if attempts >= maxAttempts {
		status = model.OutboxFailed
	}
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "attempts": attempts}).Error
}

func (r *outboxRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", model.OutboxDone, before).
		Delete(&model.OutboxEvent{})
	return res.RowsAffected, res.Error
}

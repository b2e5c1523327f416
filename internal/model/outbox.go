package model

import (
	"encoding/json"
	"time"
)

// OutboxEvent 订单事件外发盒，与业务写入同一事务落库，由 relay 异步投递
type OutboxEvent struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AggregateID string          `json:"aggregate_id" gorm:"type:varchar(36);index"`
	EventType   string          `json:"event_type" gorm:"type:varchar(64)"`
	Payload     json.RawMessage `json:"payload" gorm:"type:text"`
	Status      string          `json:"status" gorm:"type:varchar(16);index:idx_outbox_status_created"` // pending, processing, done, failed
	Attempts    int             `json:"attempts" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index:idx_outbox_status_created"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

func (OutboxEvent) TableName() string { return "outbox" }

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
	OutboxFailed     = "failed"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

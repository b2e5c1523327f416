package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
)

// OrderEvent 订单事件载荷，随业务写入同一事务落入 outbox
type OrderEvent struct {
	Type       string            `json:"type"`
	OrderID    string            `json:"order_id"`
	UserID     string            `json:"user_id"`
	Status     model.OrderStatus `json:"status"`
	Previous   model.OrderStatus `json:"previous,omitempty"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	Comment    string            `json:"comment,omitempty"`
	ActorID    string            `json:"actor_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventPublisher 事件投递出口（kafka、管理端实时推送）
type EventPublisher interface {
	Publish(ctx context.Context, evt *model.OutboxEvent) error
}

// emitOrderEvent 必须传入事务内构造的 outbox 仓储
func emitOrderEvent(ctx context.Context, outbox repository.OutboxRepository, evt OrderEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return outbox.Emit(ctx, &model.OutboxEvent{
		ID:          uuid.NewString(),
		AggregateID: evt.OrderID,
		EventType:   evt.Type,
		Payload:     payload,
		Status:      model.OutboxPending,
		CreatedAt:   evt.OccurredAt,
	})
}

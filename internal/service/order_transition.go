package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// CatalogInvalidator 库存变化后失效商品缓存
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, productIDs ...string)
}

// TransitionRequest 一次状态流转请求
type TransitionRequest struct {
	OrderID string
	To      model.OrderStatus
	Comment string
	ActorID string
	// From 非空时限定允许的来源状态
	From []model.OrderStatus
	// OwnerID 非空时要求订单属于该用户
	OwnerID string
	// Receipt 非空时同时替换付款凭证
	Receipt string
}

// TransitionEngine 订单状态机：所有状态变更都经由 Transition
type TransitionEngine interface {
	Transition(ctx context.Context, req TransitionRequest) (*model.Order, error)
}

var defaultComments = map[model.OrderStatus]string{
	model.OrderStatusPendingPayment:  "Order placed, awaiting payment",
	model.OrderStatusPending:         "Receipt submitted, awaiting verification",
	model.OrderStatusVerified:        "Payment verified",
	model.OrderStatusReceiptRejected: "Receipt rejected",
	model.OrderStatusDelivered:       "Order delivered",
	model.OrderStatusCancelled:       "Order cancelled",
	model.OrderStatusRefunded:        "Order refunded",
	model.OrderStatusCompleted:       "Transaction committed",
}

type transitionEngine struct {
	db       *gorm.DB
	notifier NotificationSink
	catalog  CatalogInvalidator
	now      func() time.Time
}

func NewTransitionEngine(db *gorm.DB, notifier NotificationSink, catalog CatalogInvalidator) TransitionEngine {
	return &transitionEngine{db: db, notifier: notifier, catalog: catalog, now: func() time.Time { return time.Now().UTC() }}
}

func (e *transitionEngine) Transition(ctx context.Context, req TransitionRequest) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "order.transition")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", req.OrderID), attribute.String("order.to", string(req.To)))

	if !req.To.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.To)
	}
	comment := req.Comment
	if comment == "" {
		comment = defaultComments[req.To]
	}

	var (
		order    *model.Order
		from     model.OrderStatus
		changed  bool
		restocks []string
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := repository.NewOrderRepository(tx)
		products := repository.NewProductRepository(tx)

		o, err := orders.GetByID(ctx, req.OrderID)
		if err != nil {
			return notFound(err, ErrOrderNotFound)
		}
		if req.OwnerID != "" && o.UserID != req.OwnerID {
			return ErrForbidden
		}
		order, from = o, o.Status

		// 相同状态幂等；pending 重新上传凭证除外
		if from == req.To && (req.Receipt == "" || from != model.OrderStatusPending) {
			return nil
		}
		if len(req.From) > 0 && !slices.Contains(req.From, from) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, req.To)
		}
		if from != req.To && !from.CanTransitionTo(req.To) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, req.To)
		}

		switch {
		case req.To.ReleasesStock() && !from.ReleasesStock():
			for _, it := range o.Items {
				if err := products.ReleaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
				restocks = append(restocks, it.ProductID)
			}
		case from.ReleasesStock() && !req.To.ReleasesStock():
			for _, it := range o.Items {
				ok, err := products.ReserveStock(ctx, it.ProductID, it.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w for %s", ErrInsufficientStock, it.ProductName)
				}
				restocks = append(restocks, it.ProductID)
			}
		}

		var extra map[string]any
		if req.Receipt != "" {
			extra = map[string]any{"receipt_image": req.Receipt}
		}
		ok, err := orders.CompareAndSetStatus(ctx, o.ID, from, req.To, extra)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentModification
		}

		now := e.now()
		entry := model.StatusEntry{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			Status:    req.To,
			Comment:   comment,
			ActorID:   req.ActorID,
			CreatedAt: now,
		}
		if err := orders.AppendHistory(ctx, &entry); err != nil {
			return err
		}
		if err := emitOrderEvent(ctx, repository.NewOutboxRepository(tx), OrderEvent{
			Type:       model.EventOrderStatusChanged,
			OrderID:    o.ID,
			UserID:     o.UserID,
			Status:     req.To,
			Previous:   from,
			TotalPrice: o.TotalPrice,
			Comment:    comment,
			ActorID:    req.ActorID,
			OccurredAt: now,
		}); err != nil {
			return err
		}

		o.Status = req.To
		o.UpdatedAt = now
		if req.Receipt != "" {
			o.ReceiptImage = req.Receipt
		}
		o.StatusHistory = append(o.StatusHistory, entry)
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return order, nil
	}

	logger.Info("order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(req.To)),
		zap.String("actor", req.ActorID))

	if len(restocks) > 0 && e.catalog != nil {
		e.catalog.Invalidate(ctx, restocks...)
	}
	if e.notifier != nil {
		if from != req.To {
			e.notifier.StatusChanged(order, req.To, comment)
		}
		if req.Receipt != "" {
			e.notifier.ReceiptResubmitted(order)
		}
	}
	return order, nil
}

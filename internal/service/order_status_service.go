package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// OrderStatusService 订单状态相关的用户与管理员操作
type OrderStatusService interface {
	// UpdateStatus 管理员修改订单状态
	UpdateStatus(ctx context.Context, adminID, orderID string, status model.OrderStatus, comment string) (*model.Order, error)
	// Cancel 用户取消自己的待付款/待审核订单
	Cancel(ctx context.Context, userID, orderID string) (*model.Order, error)
	// ResubmitReceipt 用户重新上传付款凭证
	ResubmitReceipt(ctx context.Context, userID, orderID, receipt string) (*model.Order, error)
	// RequestResubmission 管理员驳回凭证并说明原因
	RequestResubmission(ctx context.Context, adminID, orderID, reason string) (*model.Order, error)
	// Commit 管理员确认交易完成
	Commit(ctx context.Context, adminID, orderID string) (*model.Order, error)
	// ExpireUnpaid 取消超时未付款的订单，返回取消数量
	ExpireUnpaid(ctx context.Context, olderThan time.Duration) (int, error)
}

type orderStatusService struct {
	engine TransitionEngine
	orders repository.OrderRepository
	now    func() time.Time
}

func NewOrderStatusService(engine TransitionEngine, orders repository.OrderRepository) OrderStatusService {
	return &orderStatusService{engine: engine, orders: orders, now: func() time.Time { return time.Now().UTC() }}
}

func (s *orderStatusService) UpdateStatus(ctx context.Context, adminID, orderID string, status model.OrderStatus, comment string) (*model.Order, error) {
	return s.engine.Transition(ctx, TransitionRequest{
		OrderID: orderID,
		To:      status,
		Comment: strings.TrimSpace(comment),
		ActorID: adminID,
	})
}

func (s *orderStatusService) Cancel(ctx context.Context, userID, orderID string) (*model.Order, error) {
	return s.engine.Transition(ctx, TransitionRequest{
		OrderID: orderID,
		To:      model.OrderStatusCancelled,
		Comment: "Order cancelled by customer",
		ActorID: userID,
		OwnerID: userID,
		From:    []model.OrderStatus{model.OrderStatusPending, model.OrderStatusPendingPayment},
	})
}

func (s *orderStatusService) ResubmitReceipt(ctx context.Context, userID, orderID, receipt string) (*model.Order, error) {
	if strings.TrimSpace(receipt) == "" {
		return nil, ErrReceiptRequired
	}
	return s.engine.Transition(ctx, TransitionRequest{
		OrderID: orderID,
		To:      model.OrderStatusPending,
		Comment: "Receipt resubmitted by customer",
		ActorID: userID,
		OwnerID: userID,
		Receipt: receipt,
		From:    []model.OrderStatus{model.OrderStatusReceiptRejected, model.OrderStatusPending},
	})
}

func (s *orderStatusService) RequestResubmission(ctx context.Context, adminID, orderID, reason string) (*model.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a reason is required", ErrInvalidInput)
	}
	return s.engine.Transition(ctx, TransitionRequest{
		OrderID: orderID,
		To:      model.OrderStatusReceiptRejected,
		Comment: reason,
		ActorID: adminID,
	})
}

func (s *orderStatusService) Commit(ctx context.Context, adminID, orderID string) (*model.Order, error) {
	return s.engine.Transition(ctx, TransitionRequest{
		OrderID: orderID,
		To:      model.OrderStatusCompleted,
		Comment: "Transaction committed by admin",
		ActorID: adminID,
	})
}

func (s *orderStatusService) ExpireUnpaid(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.orders.ListStale(ctx, model.OrderStatusPendingPayment, s.now().Add(-olderThan), 500)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, o := range stale {
		_, err := s.engine.Transition(ctx, TransitionRequest{
			OrderID: o.ID,
			To:      model.OrderStatusCancelled,
			Comment: "Payment window expired",
			From:    []model.OrderStatus{model.OrderStatusPendingPayment},
		})
		switch {
		case err == nil:
			expired++
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConcurrentModification):
			logger.Debug("stale order moved on before expiry", zap.String("order_id", o.ID))
		default:
			return expired, err
		}
	}
	return expired, nil
}

package model

import "slices"

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPendingPayment  OrderStatus = "pending_payment"
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusVerified        OrderStatus = "verified"
	OrderStatusReceiptRejected OrderStatus = "receipt_rejected"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRefunded        OrderStatus = "refunded"
	OrderStatusCompleted       OrderStatus = "completed"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment:  {OrderStatusPending, OrderStatusVerified, OrderStatusReceiptRejected, OrderStatusCancelled},
	OrderStatusPending:         {OrderStatusVerified, OrderStatusReceiptRejected, OrderStatusCancelled},
	OrderStatusVerified:        {OrderStatusDelivered, OrderStatusRefunded, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusReceiptRejected: {OrderStatusPending, OrderStatusCancelled},
	OrderStatusDelivered:       nil,
	OrderStatusCancelled:       nil,
	OrderStatusRefunded:        nil,
	OrderStatusCompleted:       nil,
}

// ParseOrderStatus 校验字符串是否为已知状态
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	_, ok := orderTransitions[st]
	return st, ok
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal 终态不再允许任何流转
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// ReleasesStock 进入该状态意味着订单不再占用库存
func (s OrderStatus) ReleasesStock() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusReceiptRejected, OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo 状态机唯一的流转判定
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

// QualifiesForReview 已付款或已完成的订单才可评价
func (s OrderStatus) QualifiesForReview() bool {
	return slices.Contains(ReviewableStatuses(), s)
}

func ReviewableStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusVerified, OrderStatusDelivered, OrderStatusCompleted}
}

// AllOrderStatuses 全部订单状态
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPendingPayment, OrderStatusPending, OrderStatusVerified, OrderStatusReceiptRejected,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded, OrderStatusCompleted,
	}
}

// ActiveStatuses 仍在处理中的订单状态
func ActiveStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPendingPayment, OrderStatusPending, OrderStatusVerified, OrderStatusReceiptRejected}
}

// Notifies 进入该状态需要通知客户
func (s OrderStatus) Notifies() bool {
	switch s {
	case OrderStatusVerified, OrderStatusDelivered, OrderStatusReceiptRejected:
		return true
	}
	return false
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/pkg/logger"
	"github.com/d60-Lab/storefront/pkg/mailer"
)

// NotificationSink 订单相关通知出口，实现必须不阻塞调用方
type NotificationSink interface {
	OrderPlaced(order *model.Order)
	StatusChanged(order *model.Order, status model.OrderStatus, comment string)
	ReceiptResubmitted(order *model.Order)
}

// NotifierConfig 通知器配置
type NotifierConfig struct {
	OperatorEmail string
	ClientURL     string
	StoreName     string
	QueueSize     int
	MaxRetries    int
	Timeout       time.Duration
	Backoff       time.Duration
}

type mailJob struct {
	msg   mailer.Message
	enqAt time.Time
}

// Notifier 本地异步邮件队列：有界 channel + worker，发送失败指数退避重试
type Notifier struct {
	mailer mailer.Mailer
	cfg    NotifierConfig
	ch     chan mailJob
	wg     sync.WaitGroup

	// abort 在停止期限到达时取消，打断发送与退避等待
	abort  context.Context
	cancel context.CancelFunc

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NotifierStats 发送计数（采样值）
type NotifierStats struct {
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
	Queued  int   `json:"queued"`
}

func NewNotifier(m mailer.Mailer, cfg NotifierConfig) *Notifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "Storefront"
	}
	abort, cancel := context.WithCancel(context.Background())
	return &Notifier{mailer: m, cfg: cfg, ch: make(chan mailJob, cfg.QueueSize), abort: abort, cancel: cancel}
}

// Start 启动 worker；返回的停止函数会先排空队列，超出 ctx 期限则放弃剩余邮件
func (n *Notifier) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for {
				select {
				case job := <-n.ch:
					n.deliver(job)
				case <-stopCh:
					for {
						select {
						case job := <-n.ch:
							n.deliver(job)
						default:
							return
						}
					}
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		done := make(chan struct{})
		go func() {
			n.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			n.cancel()
			return nil
		case <-ctx.Done():
			n.cancel()
			return ctx.Err()
		}
	}
}

// Enqueue 非阻塞入队，队列满时丢弃并记录
func (n *Notifier) Enqueue(msg mailer.Message) {
	if strings.TrimSpace(msg.To) == "" {
		logger.Debug("notification without recipient skipped", zap.String("subject", msg.Subject))
		return
	}
	select {
	case n.ch <- mailJob{msg: msg, enqAt: time.Now()}:
	default:
		n.dropped.Add(1)
		logger.Warn("notification queue full, drop mail", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	}
}

func (n *Notifier) deliver(job mailJob) {
	backoff := n.cfg.Backoff
	for attempt := 0; ; attempt++ {
		if n.abort.Err() != nil {
			n.abandon(job, attempt)
			return
		}
		ctx, cancel := context.WithTimeout(n.abort, n.cfg.Timeout)
		err := n.mailer.Send(ctx, job.msg)
		cancel()
		if err == nil {
			n.sent.Add(1)
			logger.Debug("notification sent",
				zap.String("to", job.msg.To),
				zap.Duration("latency", time.Since(job.enqAt)))
			return
		}
		if errors.Is(err, mailer.ErrNoRecipient) || attempt >= n.cfg.MaxRetries {
			n.failed.Add(1)
			logger.Error("notification failed",
				zap.String("to", job.msg.To),
				zap.String("subject", job.msg.Subject),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return
		}
		logger.Warn("notification retry",
			zap.String("to", job.msg.To),
			zap.Int("attempt", attempt+1),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.Error(err))
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-n.abort.Done():
			timer.Stop()
			n.abandon(job, attempt+1)
			return
		}
		backoff *= 2
	}
}

func (n *Notifier) abandon(job mailJob, attempts int) {
	n.failed.Add(1)
	logger.Warn("notifier stopped, mail abandoned",
		zap.String("to", job.msg.To),
		zap.String("subject", job.msg.Subject),
		zap.Int("attempts", attempts))
}

func (n *Notifier) Stats() NotifierStats {
	return NotifierStats{
		Sent:    n.sent.Load(),
		Failed:  n.failed.Load(),
		Dropped: n.dropped.Load(),
		Queued:  len(n.ch),
	}
}

// OrderPlaced 通知店主有新订单
func (n *Notifier) OrderPlaced(order *model.Order) {
	var b strings.Builder
	fmt.Fprintf(&b, "A new order has been placed on %s.\n\n", n.cfg.StoreName)
	fmt.Fprintf(&b, "Order: %s\n", order.ID)
	fmt.Fprintf(&b, "Customer: %s\nPhone: %s\nEmail: %s\nAddress: %s\n\n",
		order.DeliveryInfo.Name, order.DeliveryInfo.Phone, order.DeliveryInfo.Email, order.DeliveryInfo.Address)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "- %s x%d @ %s = %s\n", it.ProductName, it.Quantity, it.UnitPrice.StringFixed(2), it.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", order.Subtotal.StringFixed(2))
	if order.CouponCode != "" {
		fmt.Fprintf(&b, "Coupon %s: -%s\n", order.CouponCode, order.Discount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", order.TotalPrice.StringFixed(2))
	if order.ReceiptImage != "" {
		b.WriteString("\nA payment receipt was uploaded and awaits verification.\n")
	} else {
		b.WriteString("\nThe customer was redirected to the payment gateway.\n")
	}
	n.Enqueue(mailer.Message{
		To:      n.cfg.OperatorEmail,
		Subject: fmt.Sprintf("New order %s", order.ID),
		Text:    b.String(),
	})
}

// StatusChanged 通知客户订单状态变化，仅对需要通知的状态生效
func (n *Notifier) StatusChanged(order *model.Order, status model.OrderStatus, comment string) {
	if !status.Notifies() {
		return
	}
	name := order.DeliveryInfo.Name
	link := fmt.Sprintf("%s/orders/%s", strings.TrimRight(n.cfg.ClientURL, "/"), order.ID)
	var subject, body string
	switch status {
	case model.OrderStatusVerified:
		subject = "Your payment has been verified"
		body = fmt.Sprintf("Hi %s,\n\nWe verified the payment for order %s (total %s). We are preparing it for delivery.\n\n%s\n",
			name, order.ID, order.TotalPrice.StringFixed(2), link)
	case model.OrderStatusDelivered:
		subject = "Your order has been delivered"
		body = fmt.Sprintf("Hi %s,\n\nOrder %s has been delivered. Thank you for shopping with %s.\nYou can now review the products you bought.\n\n%s\n",
			name, order.ID, n.cfg.StoreName, link)
	case model.OrderStatusReceiptRejected:
		subject = "Action needed: please resubmit your payment receipt"
		body = fmt.Sprintf("Hi %s,\n\nWe could not accept the payment receipt for order %s.\nReason: %s\n\nPlease upload a new receipt here: %s\n",
			name, order.ID, comment, link)
	}
	n.Enqueue(mailer.Message{To: order.DeliveryInfo.Email, Subject: subject, Text: body})
}

// ReceiptResubmitted 通知店主有凭证待复核
func (n *Notifier) ReceiptResubmitted(order *model.Order) {
	n.Enqueue(mailer.Message{
		To:      n.cfg.OperatorEmail,
		Subject: fmt.Sprintf("Receipt resubmitted for order %s", order.ID),
		Text: fmt.Sprintf("%s uploaded a new payment receipt for order %s (total %s). It awaits verification.\n",
			order.DeliveryInfo.Name, order.ID, order.TotalPrice.StringFixed(2)),
	})
}

package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// OutboxRelay 轮询 outbox，把订单事件投递给各个 publisher
type OutboxRelay struct {
	repo         repository.OutboxRepository
	publishers   []EventPublisher
	batchSize    int
	pollInterval time.Duration
	workers      int
	maxAttempts  int
	wg           sync.WaitGroup
}

func NewOutboxRelay(repo repository.OutboxRepository, publishers []EventPublisher, workers, batchSize int, pollInterval time.Duration) *OutboxRelay {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &OutboxRelay{
		repo:         repo,
		publishers:   publishers,
		batchSize:    batchSize,
		pollInterval: pollInterval,
		workers:      workers,
		maxAttempts:  5,
	}
}

// Start 启动若干 worker 轮询处理 outbox；返回停止函数
func (w *OutboxRelay) Start() func(context.Context) error {
	stop := make(chan struct{})
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.loop(stop)
	}
	return func(ctx context.Context) error {
		close(stop)
		done := make(chan struct{})
		go func() {
			w.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *OutboxRelay) loop(stop <-chan struct{}) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(context.Background()); err != nil {
				logger.Warn("outbox relay poll failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce 领取一批事件并投递，返回成功投递的条数
func (w *OutboxRelay) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := w.repo.Claim(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, evt := range batch {
		var pubErr error
		for _, p := range w.publishers {
			if err := p.Publish(ctx, evt); err != nil {
				pubErr = err
				break
			}
		}
		if pubErr != nil {
			attempts := evt.Attempts + 1
			logger.Warn("outbox publish failed",
				zap.String("event_id", evt.ID),
				zap.String("order_id", evt.AggregateID),
				zap.Int("attempts", attempts),
				zap.Error(pubErr))
			if err := w.repo.MarkRetry(ctx, evt.ID, attempts, w.maxAttempts); err != nil {
				return delivered, err
			}
			continue
		}
		if err := w.repo.MarkDone(ctx, evt.ID); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

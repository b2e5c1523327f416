package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	fail   bool
}

func (p *capturePublisher) Publish(_ context.Context, evt *model.OutboxEvent) error {
	if p.fail {
		return errors.New("broker down")
	}
	var e OrderEvent
	if err := json.Unmarshal(evt.Payload, &e); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func TestOutboxRelayDeliversOrderEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, model.RoleUser)
	admin := seedUser(t, f.db, model.RoleAdmin)
	p := seedProduct(t, f.db, 10, "10")
	o := placeOrder(t, f, u, CartLine{ProductID: p.ID, Quantity: 1})
	_, err := f.status.UpdateStatus(ctx, admin.ID, o.ID, model.OrderStatusVerified, "")
	require.NoError(t, err)

	pub := &capturePublisher{}
	relay := NewOutboxRelay(repository.NewOutboxRepository(f.db), []EventPublisher{pub}, 1, 10, 0)

	n, err := relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.events, 2)
	assert.Equal(t, model.EventOrderCreated, pub.events[0].Type)
	assert.Equal(t, model.OrderStatusVerified, pub.events[1].Status)
	assert.Equal(t, model.OrderStatusPendingPayment, pub.events[1].Previous)

	n, err = relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "delivered events are not redelivered")
}

func TestOutboxRelayRetriesThenFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 10, "10")
	o := placeOrder(t, f, u, CartLine{ProductID: p.ID, Quantity: 1})

	pub := &capturePublisher{fail: true}
	relay := NewOutboxRelay(repository.NewOutboxRepository(f.db), []EventPublisher{pub}, 1, 10, 0)
	for i := 0; i < relay.maxAttempts; i++ {
		_, err := relay.ProcessOnce(ctx)
		require.NoError(t, err)
	}

	var evt model.OutboxEvent
	require.NoError(t, f.db.First(&evt, "aggregate_id = ?", o.ID).Error)
	assert.Equal(t, model.OutboxFailed, evt.Status)
	assert.Equal(t, relay.maxAttempts, evt.Attempts)
}

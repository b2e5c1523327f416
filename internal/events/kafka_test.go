package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/storefront/internal/model"
)

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByOrder(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{writer: w}
	now := time.Now().UTC()

	err := p.Publish(context.Background(), &model.OutboxEvent{
		ID:          "evt-1",
		AggregateID: "order-1",
		EventType:   model.EventOrderStatusChanged,
		Payload:     json.RawMessage(`{"status":"verified"}`),
		CreatedAt:   now,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "order-1", string(msg.Key))
	assert.JSONEq(t, `{"status":"verified"}`, string(msg.Value))
	assert.Equal(t, model.EventOrderStatusChanged, string(msg.Headers[0].Value))
	assert.Equal(t, now, msg.Time)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

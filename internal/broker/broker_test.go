package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishOrderCompletedKeyedByOrder(t *testing.T) {
	w := &recordingWriter{}
	ep := NewEventPublisher(&Producer{writer: w, logger: zap.NewNop()})

	event := &models.OrderCompletedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeOrderCompleted, Timestamp: time.Now()},
		OrderID:   "abc",
	}
	require.NoError(t, ep.PublishOrderCompleted(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-abc", string(w.msgs[0].Key))

	var decoded models.OrderCompletedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "abc", decoded.OrderID)
}

func TestPublishWrapsWriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := &Producer{writer: w, logger: zap.NewNop()}

	err := p.PublishEvent(context.Background(), "k", map[string]string{"a": "b"})
	assert.ErrorContains(t, err, "broker down")
}

func TestHandleMessageRoutesByType(t *testing.T) {
	eh := NewEventHandler()

	var completed, failed int
	eh.OnOrderCompleted(func(ctx context.Context, e *models.OrderCompletedEvent) error {
		completed++
		assert.Equal(t, "o1", e.OrderID)
		return nil
	})
	eh.OnPaymentFailed(func(ctx context.Context, e *models.PaymentFailedEvent) error {
		failed++
		return nil
	})

	value, _ := json.Marshal(models.OrderCompletedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderCompleted},
		OrderID:   "o1",
	})
	require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: value}))

	value, _ = json.Marshal(models.OrderCreatedEvent{BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderCreated}})
	require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: value}))

	assert.Equal(t, 1, completed)
	assert.Equal(t, 0, failed)

	assert.Error(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("nope")}))
}

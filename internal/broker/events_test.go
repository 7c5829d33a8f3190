package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEvent struct {
	key   string
	event interface{}
}

type fakeProducer struct {
	published []capturedEvent
	err       error
}

func (f *fakeProducer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, capturedEvent{key: key, event: event})
	return nil
}

func TestPublisherKeysByOrderID(t *testing.T) {
	producer := &fakeProducer{}
	publisher := NewEventPublisher(producer)
	ctx := context.Background()

	require.NoError(t, publisher.PublishOrderPlaced(ctx, &models.OrderPlacedEvent{
		BaseEvent: NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:   "ORD-1",
	}))
	require.NoError(t, publisher.PublishPaymentOutcome(ctx, &models.PaymentOutcomeEvent{
		BaseEvent: NewBaseEvent(models.EventTypePaymentOutcome),
		OrderID:   "ORD-1",
		Outcome:   models.PaymentOutcomeSuccess,
	}))

	require.Len(t, producer.published, 2)
	assert.Equal(t, "order-ORD-1", producer.published[0].key)
	assert.Equal(t, "order-ORD-1", producer.published[1].key)
}

func TestPublisherPropagatesErrors(t *testing.T) {
	publisher := NewEventPublisher(&fakeProducer{err: errors.New("broker down")})
	err := publisher.PublishPaymentOutcome(context.Background(), &models.PaymentOutcomeEvent{OrderID: "ORD-1"})
	assert.EqualError(t, err, "broker down")
}

func TestNewBaseEvent(t *testing.T) {
	a := NewBaseEvent(models.EventTypeOrderPlaced)
	b := NewBaseEvent(models.EventTypeOrderPlaced)

	assert.NotEmpty(t, a.EventID)
	assert.NotEqual(t, a.EventID, b.EventID)
	assert.False(t, a.Timestamp.IsZero())
}

func message(t *testing.T, event interface{}) kafka.Message {
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestHandleMessageRoutesByType(t *testing.T) {
	handler := NewEventHandler()

	var placed *models.OrderPlacedEvent
	var outcome *models.PaymentOutcomeEvent
	handler.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		placed = e
		return nil
	})
	handler.OnPaymentOutcome(func(ctx context.Context, e *models.PaymentOutcomeEvent) error {
		outcome = e
		return nil
	})

	ctx := context.Background()
	require.NoError(t, handler.HandleMessage(ctx, message(t, &models.OrderPlacedEvent{
		BaseEvent: NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:   "ORD-1",
		Channel:   models.PaymentMethodCOD,
		Amount:    "1499",
	})))
	require.NoError(t, handler.HandleMessage(ctx, message(t, &models.PaymentOutcomeEvent{
		BaseEvent: NewBaseEvent(models.EventTypePaymentOutcome),
		OrderID:   "ORD-2",
		Outcome:   models.PaymentOutcomeFailed,
	})))

	require.NotNil(t, placed)
	assert.Equal(t, "cod", placed.Channel)
	require.NotNil(t, outcome)
	assert.Equal(t, "ORD-2", outcome.OrderID)
	assert.Equal(t, models.PaymentOutcomeFailed, outcome.Outcome)
}

func TestHandleMessageIgnoresUnknownType(t *testing.T) {
	handler := NewEventHandler()
	err := handler.HandleMessage(context.Background(), message(t, models.BaseEvent{EventType: "INVENTORY_RESERVED"}))
	assert.NoError(t, err)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	handler := NewEventHandler()
	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
}

func TestHandleMessagePropagatesHandlerError(t *testing.T) {
	handler := NewEventHandler()
	handler.OnPaymentOutcome(func(ctx context.Context, e *models.PaymentOutcomeEvent) error {
		return errors.New("db unavailable")
	})

	err := handler.HandleMessage(context.Background(), message(t, &models.PaymentOutcomeEvent{
		BaseEvent: NewBaseEvent(models.EventTypePaymentOutcome),
		OrderID:   "ORD-3",
	}))
	assert.EqualError(t, err, "db unavailable")
}

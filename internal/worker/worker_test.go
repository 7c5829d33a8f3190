package worker

import (
	"context"
	"encoding/json"
	"testing"

	"storefront/internal/broker"
	"storefront/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	messages []kafka.Message
	handled  int
	closed   bool
}

func (s *sliceSource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err == nil {
			s.handled++
		}
	}
	return nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

type recordingProcessor struct {
	placed   []string
	outcomes []models.PaymentOutcome
}

func (p *recordingProcessor) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	p.placed = append(p.placed, event.OrderID)
	return nil
}

func (p *recordingProcessor) HandlePaymentOutcome(ctx context.Context, event *models.PaymentOutcomeEvent) error {
	p.outcomes = append(p.outcomes, event.Outcome)
	return nil
}

func encode(t *testing.T, event interface{}) kafka.Message {
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestOrderWorkerDispatchesEvents(t *testing.T) {
	source := &sliceSource{messages: []kafka.Message{
		encode(t, &models.OrderPlacedEvent{BaseEvent: broker.NewBaseEvent(models.EventTypeOrderPlaced), OrderID: "ORD-1"}),
		encode(t, &models.PaymentOutcomeEvent{
			BaseEvent: broker.NewBaseEvent(models.EventTypePaymentOutcome),
			OrderID:   "ORD-1",
			Outcome:   models.PaymentOutcomeSuccess,
		}),
	}}
	processor := &recordingProcessor{}

	w := NewOrderWorker(source, processor)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())

	assert.Equal(t, 2, source.handled)
	assert.Equal(t, []string{"ORD-1"}, processor.placed)
	assert.Equal(t, []models.PaymentOutcome{models.PaymentOutcomeSuccess}, processor.outcomes)
	assert.True(t, source.closed)
}

package worker

import (
	"context"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// OrderEventSource feeds broker messages to a handler until ctx ends.
type OrderEventSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// OrderEventProcessor applies order events to the order records.
type OrderEventProcessor interface {
	HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	HandlePaymentOutcome(ctx context.Context, event *models.PaymentOutcomeEvent) error
}

// OrderWorker consumes order events in the background
type OrderWorker struct {
	consumer     OrderEventSource
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderWorker creates a new order worker
func NewOrderWorker(consumer OrderEventSource, processor OrderEventProcessor) *OrderWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderPlaced(processor.HandleOrderPlaced)
	eventHandler.OnPaymentOutcome(processor.HandlePaymentOutcome)

	return &OrderWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.Named("worker"),
	}
}

// Start blocks until ctx is cancelled
func (w *OrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	w.logger.Info("Stopping order worker")
	return w.consumer.Close()
}

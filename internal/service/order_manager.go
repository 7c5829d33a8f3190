package service

import (
	"context"
	"fmt"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderEventPublisher emits order lifecycle events.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishPaymentOutcome(ctx context.Context, event *models.PaymentOutcomeEvent) error
}

// OrderRepository stores order records and processed event ids.
type OrderRepository interface {
	UpsertOrderRecord(ctx context.Context, rec *models.OrderRecord) error
	ApplyOutcome(ctx context.Context, eventID, eventType, orderID, status string) (bool, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Placement describes an order handed to a payment channel.
type Placement struct {
	OrderID       string
	Channel       string
	Amount        decimal.Decimal
	Currency      string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// OrderManager is the order management side of checkout. The request path
// publishes events; the worker applies them to the order records.
type OrderManager struct {
	publisher OrderEventPublisher
	repo      OrderRepository
	logger    *zap.Logger
}

func NewOrderManager(publisher OrderEventPublisher, repo OrderRepository) *OrderManager {
	return &OrderManager{
		publisher: publisher,
		repo:      repo,
		logger:    util.Named("orders"),
	}
}

// RecordPlacement announces a new order.
func (m *OrderManager) RecordPlacement(ctx context.Context, p *Placement) error {
	ctx, span := util.StartSpan(ctx, "OrderManager.RecordPlacement")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", p.OrderID), attribute.String("channel", p.Channel))

	event := &models.OrderPlacedEvent{
		BaseEvent:     broker.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:       p.OrderID,
		Channel:       p.Channel,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		CustomerName:  p.CustomerName,
		CustomerEmail: p.CustomerEmail,
		CustomerPhone: p.CustomerPhone,
	}
	if err := m.publisher.PublishOrderPlaced(ctx, event); err != nil {
		util.FailSpan(span, err)
		return fmt.Errorf("failed to publish order placed: %w", err)
	}
	return nil
}

// ApplyPaymentOutcome announces a verified payment result for orderID.
func (m *OrderManager) ApplyPaymentOutcome(ctx context.Context, orderID string, outcome models.PaymentOutcome) error {
	ctx, span := util.StartSpan(ctx, "OrderManager.ApplyPaymentOutcome")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID), attribute.String("outcome", string(outcome)))

	event := &models.PaymentOutcomeEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypePaymentOutcome),
		OrderID:   orderID,
		Outcome:   outcome,
	}
	if err := m.publisher.PublishPaymentOutcome(ctx, event); err != nil {
		util.FailSpan(span, err)
		return fmt.Errorf("failed to publish payment outcome: %w", err)
	}

	m.logger.Info("Payment outcome published",
		zap.String("order_id", orderID),
		zap.String("outcome", string(outcome)))
	return nil
}

// HandleOrderPlaced stores the placement once per event.
func (m *OrderManager) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "OrderManager.HandleOrderPlaced")
	defer span.End()

	processed, err := m.repo.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		m.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	status := models.OrderStatusPending
	if event.Channel == models.PaymentMethodCOD {
		status = models.OrderStatusCODQueued
	}

	rec := &models.OrderRecord{
		OrderID:       event.OrderID,
		Channel:       event.Channel,
		Amount:        event.Amount,
		Currency:      event.Currency,
		CustomerName:  event.CustomerName,
		CustomerEmail: event.CustomerEmail,
		CustomerPhone: event.CustomerPhone,
		Status:        status,
	}
	if err := m.repo.UpsertOrderRecord(ctx, rec); err != nil {
		util.FailSpan(span, err)
		return err
	}

	if err := m.repo.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		m.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	m.logger.Info("Order recorded",
		zap.String("order_id", event.OrderID),
		zap.String("channel", event.Channel))
	return nil
}

// HandlePaymentOutcome moves the order to the status matching the outcome.
// Redelivered events are ignored.
func (m *OrderManager) HandlePaymentOutcome(ctx context.Context, event *models.PaymentOutcomeEvent) error {
	ctx, span := util.StartSpan(ctx, "OrderManager.HandlePaymentOutcome")
	defer span.End()

	status := models.StatusForOutcome(event.Outcome)
	applied, err := m.repo.ApplyOutcome(ctx, event.EventID, event.EventType, event.OrderID, status)
	if err != nil {
		util.FailSpan(span, err)
		return fmt.Errorf("failed to apply payment outcome: %w", err)
	}
	if !applied {
		m.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	util.PaymentOutcomesTotal.WithLabelValues(string(event.Outcome)).Inc()
	m.logger.Info("Order status updated",
		zap.String("order_id", event.OrderID),
		zap.String("status", status))
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"

	"go.uber.org/zap"
)

var ErrOrderNotFound = errors.New("order record not found")

// UpsertOrderRecord stores placement details. An existing status is kept so a
// late placement never overwrites a payment outcome.
func (s *Store) UpsertOrderRecord(ctx context.Context, rec *models.OrderRecord) error {
	query := `
		INSERT INTO order_records
			(order_id, channel, amount, currency, customer_name, customer_email, customer_phone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id) DO UPDATE SET
			channel = EXCLUDED.channel,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			customer_name = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			customer_phone = EXCLUDED.customer_phone,
			updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query,
		rec.OrderID, rec.Channel, rec.Amount, rec.Currency,
		rec.CustomerName, rec.CustomerEmail, rec.CustomerPhone, rec.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert order record: %w", err)
	}
	return nil
}

// GetOrderRecord retrieves an order record by gateway order id
func (s *Store) GetOrderRecord(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	var rec models.OrderRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM order_records WHERE order_id = $1", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ApplyOutcome records eventID and sets the order status in one transaction.
// It returns false without changes when the event was already processed.
func (s *Store) ApplyOutcome(ctx context.Context, eventID, eventType, orderID, status string) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to mark event processed: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n == 0 {
		return false, nil
	}

	// PAID is terminal: a failure delivered after a successful retry is
	// recorded as processed but leaves the status alone.
	res, err = tx.ExecContext(ctx, `
		INSERT INTO order_records (order_id, status) VALUES ($1, $2)
		ON CONFLICT (order_id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		WHERE order_records.status <> $3`,
		orderID, status, models.OrderStatusPaid)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Info("Outcome left paid order unchanged",
			zap.String("order_id", orderID),
			zap.String("event_id", eventID),
			zap.String("status", status))
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit outcome: %w", err)
	}
	return true, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

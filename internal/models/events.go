package models

import "time"

// Event types
const (
	EventTypeOrderPlaced    = "ORDER_PLACED"
	EventTypePaymentOutcome = "PAYMENT_OUTCOME"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when a checkout attempt reaches the gateway or the COD channel
type OrderPlacedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	Channel       string `json:"channel"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// PaymentOutcomeEvent published when a verified gateway notification arrives
type PaymentOutcomeEvent struct {
	BaseEvent
	OrderID string         `json:"order_id"`
	Outcome PaymentOutcome `json:"outcome"`
}

package models

import (
	"strings"
	"time"
)

// Product represents a catalog entry
type Product struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Price         int64             `json:"price"`
	OriginalPrice int64             `json:"originalPrice,omitempty"`
	Color         string            `json:"color"`
	Variant       string            `json:"variant"`
	Rating        float64           `json:"rating"`
	Reviews       int               `json:"reviews"`
	Images        []string          `json:"images"`
	Description   string            `json:"description"`
	Features      []string          `json:"features"`
	FeatureImages map[string]string `json:"featureImages,omitempty"`
	Specs         map[string]string `json:"specs"`
}

// Product variants
const (
	VariantPro      = "pro"
	VariantMax      = "max"
	VariantStandard = "standard"
)

// PrimaryImage returns the first image or an empty string.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Customer is the buyer identity sent to the payment gateway
type Customer struct {
	ID    string `json:"customerId" validate:"required"`
	Name  string `json:"customerName" validate:"required"`
	Email string `json:"customerEmail" validate:"required"`
	Phone string `json:"customerPhone" validate:"required"`
}

// CheckoutForm holds the contact and shipping fields collected at checkout
type CheckoutForm struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

// FullName joins first and last name.
func (f *CheckoutForm) FullName() string {
	if f.LastName == "" {
		return f.FirstName
	}
	return f.FirstName + " " + f.LastName
}

// Payment methods
const (
	PaymentMethodCOD     = "cod"
	PaymentMethodPrepaid = "prepaid"
)

// Quote is the derived price breakdown for a cart
type Quote struct {
	PaymentMethod string `json:"paymentMethod"`
	Subtotal      int64  `json:"subtotal"`
	Shipping      int64  `json:"shipping"`
	Total         int64  `json:"total"`
	ItemCount     int    `json:"itemCount"`
}

// PaymentOutcome is the three-way result of a payment attempt
type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "SUCCESS"
	PaymentOutcomePending PaymentOutcome = "PENDING"
	PaymentOutcomeFailed  PaymentOutcome = "FAILED"
)

// Label is the lower-case form used in API responses.
func (o PaymentOutcome) Label() string {
	return strings.ToLower(string(o))
}

// OrderRecord is the order-management view of an order
type OrderRecord struct {
	OrderID       string    `db:"order_id" json:"order_id"`
	Channel       string    `db:"channel" json:"channel"`
	Amount        string    `db:"amount" json:"amount"`
	Currency      string    `db:"currency" json:"currency"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	CustomerEmail string    `db:"customer_email" json:"customer_email"`
	CustomerPhone string    `db:"customer_phone" json:"customer_phone"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Order record statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusFailed    = "FAILED"
	OrderStatusCODQueued = "COD_PENDING"
)

// StatusForOutcome maps a payment outcome onto an order record status.
func StatusForOutcome(outcome PaymentOutcome) string {
	switch outcome {
	case PaymentOutcomeSuccess:
		return OrderStatusPaid
	case PaymentOutcomePending:
		return OrderStatusPending
	default:
		return OrderStatusFailed
	}
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

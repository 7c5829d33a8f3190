package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const SignatureHeader = "x-webhook-signature"

// Webhook event types
const (
	EventPaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed  = "PAYMENT_FAILED_WEBHOOK"
)

var (
	ErrMissingSignature = errors.New("webhook signature missing")
	ErrInvalidSignature = errors.New("webhook signature mismatch")
)

// WebhookEvent is a gateway notification. Data is left opaque.
type WebhookEvent struct {
	Type      string          `json:"type"`
	EventTime string          `json:"event_time,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// OrderID digs data.order.order_id out of the payload, or returns "".
func (e *WebhookEvent) OrderID() string {
	var payload struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &payload) != nil {
		return ""
	}
	return payload.Order.OrderID
}

// Sign returns base64(HMAC-SHA256(secret, body)).
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the body in constant time.
func VerifySignature(secret string, body []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}
	expected := Sign(secret, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseWebhook decodes a notification body.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook: %w", err)
	}
	return &event, nil
}

// VerifyAndParseWebhook authenticates the raw body with the client's secret
// before decoding it.
func (c *Client) VerifyAndParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	if err := VerifySignature(c.secretKey, body, signature); err != nil {
		return nil, err
	}
	return ParseWebhook(body)
}

// Package gateway talks to the Cashfree PG REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	ProductionBaseURL = "https://api.cashfree.com/pg"
	SandboxBaseURL    = "https://sandbox.cashfree.com/pg"
	DefaultAPIVersion = "2023-08-01"

	demoAppID     = "TEST_APP_ID"
	demoSecretKey = "TEST_SECRET_KEY"
)

// Gateway order statuses
const (
	OrderStatusPaid   = "PAID"
	OrderStatusActive = "ACTIVE"
)

var ErrMissingCredentials = errors.New("cashfree app id and secret key must be configured")

// APIError is returned for any non-2xx gateway response. Body carries the
// gateway's payload so callers can pass it through unchanged.
type APIError struct {
	Operation  string
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cashfree %s failed with status %d: %s", e.Operation, e.StatusCode, string(e.Body))
}

type Config struct {
	AppID      string
	SecretKey  string
	BaseURL    string
	APIVersion string
	Production bool
	Timeout    time.Duration
	// AllowDemo substitutes placeholder credentials when none are configured.
	AllowDemo bool
}

type Client struct {
	appID      string
	secretKey  string
	baseURL    string
	apiVersion string
	production bool
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config) (*Client, error) {
	logger := util.Named("gateway")

	if cfg.AppID == "" || cfg.SecretKey == "" {
		if !cfg.AllowDemo {
			return nil, ErrMissingCredentials
		}
		logger.Warn("Cashfree credentials not set, using demo placeholders")
		cfg.AppID, cfg.SecretKey = demoAppID, demoSecretKey
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = SandboxBaseURL
		if cfg.Production {
			baseURL = ProductionBaseURL
		}
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		appID:      cfg.AppID,
		secretKey:  cfg.SecretKey,
		baseURL:    baseURL,
		apiVersion: cfg.APIVersion,
		production: cfg.Production,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}

	logger.Info("Cashfree client configured",
		zap.String("environment", c.Environment()),
		zap.String("base_url", baseURL),
		zap.String("app_id", util.MaskSecret(cfg.AppID)))
	return c, nil
}

// Environment returns "production" or "sandbox".
func (c *Client) Environment() string {
	if c.production {
		return "production"
	}
	return "sandbox"
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type OrderMeta struct {
	ReturnURL string `json:"return_url"`
	NotifyURL string `json:"notify_url"`
}

// OrderRequest is the body of a create-order call.
type OrderRequest struct {
	OrderID         string
	OrderAmount     decimal.Decimal
	OrderCurrency   string
	CustomerDetails CustomerDetails
	OrderMeta       OrderMeta
	OrderNote       string
	OrderExpiryTime time.Time
}

type orderPayload struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     json.Number     `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderMeta       OrderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
	OrderExpiryTime string          `json:"order_expiry_time,omitempty"`
}

func (r *OrderRequest) payload() orderPayload {
	p := orderPayload{
		OrderID:         r.OrderID,
		OrderAmount:     json.Number(r.OrderAmount.StringFixed(2)),
		OrderCurrency:   r.OrderCurrency,
		CustomerDetails: r.CustomerDetails,
		OrderMeta:       r.OrderMeta,
		OrderNote:       r.OrderNote,
	}
	if !r.OrderExpiryTime.IsZero() {
		p.OrderExpiryTime = r.OrderExpiryTime.UTC().Format(time.RFC3339)
	}
	return p
}

// Order is the gateway's view of an order. Raw keeps the full response body.
type Order struct {
	OrderID          string          `json:"order_id"`
	OrderStatus      string          `json:"order_status"`
	OrderAmount      json.Number     `json:"order_amount"`
	OrderCurrency    string          `json:"order_currency"`
	PaymentSessionID string          `json:"payment_session_id"`
	Raw              json.RawMessage `json:"-"`
}

type PaymentSession struct {
	PaymentSessionID string          `json:"payment_session_id"`
	OrderID          string          `json:"order_id"`
	Raw              json.RawMessage `json:"-"`
}

// CreateOrder registers an order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	ctx, span := util.StartSpan(ctx, "gateway.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID))

	var order Order
	raw, err := c.doRequest(ctx, "create_order", http.MethodPost, "/orders", req.payload(), &order)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	order.Raw = raw
	return &order, nil
}

// CreatePaymentSession obtains the checkout session token for an existing order.
func (c *Client) CreatePaymentSession(ctx context.Context, orderID string) (*PaymentSession, error) {
	ctx, span := util.StartSpan(ctx, "gateway.CreatePaymentSession")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	var session PaymentSession
	body := map[string]string{"order_id": orderID}
	raw, err := c.doRequest(ctx, "create_payment_session", http.MethodPost, "/orders/payment-sessions", body, &session)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	if session.PaymentSessionID == "" {
		err := &APIError{Operation: "create_payment_session", StatusCode: http.StatusBadGateway, Body: raw}
		util.FailSpan(span, err)
		return nil, err
	}
	if session.OrderID == "" {
		session.OrderID = orderID
	}
	session.Raw = raw
	return &session, nil
}

// GetOrder fetches the current state of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	ctx, span := util.StartSpan(ctx, "gateway.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	var order Order
	raw, err := c.doRequest(ctx, "get_order", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	order.Raw = raw
	return &order, nil
}

// MapOrderStatus reduces a gateway order status to a payment outcome.
func MapOrderStatus(status string) models.PaymentOutcome {
	switch status {
	case OrderStatusPaid:
		return models.PaymentOutcomeSuccess
	case OrderStatusActive:
		return models.PaymentOutcomePending
	default:
		return models.PaymentOutcomeFailed
	}
}

func (c *Client) doRequest(ctx context.Context, operation, method, path string, body, out interface{}) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", c.apiVersion)
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secretKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.GatewayRequestDuration.WithLabelValues(operation, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("cashfree %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()
	util.GatewayRequestDuration.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}
	raw := rawJSON(respBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Cashfree request failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBytes))
		return nil, &APIError{Operation: operation, StatusCode: resp.StatusCode, Body: raw}
	}

	if out != nil && len(respBytes) > 0 {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", operation, err)
		}
	}
	return raw, nil
}

// rawJSON keeps valid JSON as-is and wraps anything else as a JSON string.
func rawJSON(b []byte) json.RawMessage {
	if len(bytes.TrimSpace(b)) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}

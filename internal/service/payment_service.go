package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	debugOrderExpiry = 30 * 24 * time.Hour
	debugOrderNote   = "AirPods Pro order - "
)

// PaymentGateway is the subset of the Cashfree client used for checkout.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req *gateway.OrderRequest) (*gateway.Order, error)
	CreatePaymentSession(ctx context.Context, orderID string) (*gateway.PaymentSession, error)
	GetOrder(ctx context.Context, orderID string) (*gateway.Order, error)
	VerifyAndParseWebhook(body []byte, signature string) (*gateway.WebhookEvent, error)
	Environment() string
}

// OrderTracker receives placements and verified outcomes.
type OrderTracker interface {
	RecordPlacement(ctx context.Context, p *Placement) error
	ApplyPaymentOutcome(ctx context.Context, orderID string, outcome models.PaymentOutcome) error
}

// WebhookDeduper remembers webhook deliveries already acted on.
type WebhookDeduper interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// PaymentService drives the prepaid flow against the gateway
type PaymentService struct {
	gateway   PaymentGateway
	orders    OrderTracker
	dedupe    WebhookDeduper
	dedupeTTL time.Duration
	validate  *validator.Validate
	now       func() time.Time
	logger    *zap.Logger
}

func NewPaymentService(gw PaymentGateway, orders OrderTracker, dedupe WebhookDeduper, dedupeTTL time.Duration, validate *validator.Validate) *PaymentService {
	return &PaymentService{
		gateway:   gw,
		orders:    orders,
		dedupe:    dedupe,
		dedupeTTL: dedupeTTL,
		validate:  validate,
		now:       time.Now,
		logger:    util.Named("payment"),
	}
}

// InitiateRequest is the checkout page's payment request.
type InitiateRequest struct {
	OrderID         string                 `json:"orderId" validate:"required"`
	OrderAmount     *decimal.Decimal       `json:"orderAmount" validate:"required"`
	OrderCurrency   string                 `json:"orderCurrency" validate:"required"`
	CustomerDetails *models.Customer       `json:"customerDetails" validate:"required"`
	OrderMeta       map[string]interface{} `json:"orderMeta" validate:"required"`
}

// InitiateResult carries the session token the browser checkout needs.
type InitiateResult struct {
	PaymentSessionID string
	OrderID          string
	Environment      string
	OrderResponse    json.RawMessage
	SessionResponse  json.RawMessage
}

// ValidateInitiate checks top-level fields before customer details, matching
// the two client-facing messages.
func (s *PaymentService) ValidateInitiate(req *InitiateRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate payment request: %w", err)
		}

		var top, customer []string
		for _, fe := range verrs {
			if strings.Contains(fe.StructNamespace(), ".CustomerDetails.") {
				customer = append(customer, fe.Field())
			} else {
				top = append(top, fe.Field())
			}
		}
		if len(top) > 0 {
			return &ValidationError{Message: "Missing required fields", Fields: top}
		}
		return &ValidationError{Message: "Missing customer details", Fields: customer}
	}

	if !req.OrderAmount.IsPositive() {
		return &ValidationError{Message: "Invalid order amount", Fields: []string{"orderAmount"}}
	}
	return nil
}

// CallbackURLs builds the return and notify URLs for an order.
func CallbackURLs(base, orderID string) gateway.OrderMeta {
	return gateway.OrderMeta{
		ReturnURL: base + "/payment/callback?order_id=" + orderID,
		NotifyURL: base + "/api/payment/callback",
	}
}

// ResolveBaseURL prefers the configured public URL and otherwise rebuilds it
// from proxy headers or the Host header.
func ResolveBaseURL(configured, forwardedProto, forwardedHost, host string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}

	h := forwardedHost
	if h == "" {
		h = host
	}
	if h == "" {
		return ""
	}

	proto := forwardedProto
	if i := strings.IndexByte(proto, ','); i >= 0 {
		proto = proto[:i]
	}
	proto = strings.TrimSpace(proto)
	if proto == "" {
		proto = "http"
	}
	if i := strings.IndexByte(h, ','); i >= 0 {
		h = h[:i]
	}
	return proto + "://" + strings.TrimSpace(h)
}

// Initiate creates the gateway order and its payment session.
func (s *PaymentService) Initiate(ctx context.Context, req *InitiateRequest, baseURL string) (*InitiateResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Initiate")
	defer span.End()

	if err := s.ValidateInitiate(req); err != nil {
		util.PaymentInitiationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	span.SetAttributes(attribute.String("order_id", req.OrderID))

	orderReq, err := s.orderRequest(req, baseURL)
	if err != nil {
		return nil, err
	}

	result, err := s.createOrderAndSession(ctx, orderReq)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	s.recordPlacement(ctx, orderReq)
	s.logger.Info("Payment session created",
		zap.String("order_id", result.OrderID),
		zap.String("environment", result.Environment))
	return result, nil
}

// DebugInitiate is Initiate with the extra fields used when diagnosing
// gateway setups: a normalised phone, an order note and a 30 day expiry.
// Step is set on both success and failure.
func (s *PaymentService) DebugInitiate(ctx context.Context, req *InitiateRequest, baseURL string) (*InitiateResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.DebugInitiate")
	defer span.End()

	if err := s.ValidateInitiate(req); err != nil {
		return nil, err
	}

	orderReq, err := s.orderRequest(req, baseURL)
	if err != nil {
		return nil, err
	}
	orderReq.CustomerDetails.CustomerPhone = gateway.NormalizePhone(orderReq.CustomerDetails.CustomerPhone)
	orderReq.OrderNote = debugOrderNote + req.OrderID
	orderReq.OrderExpiryTime = s.now().Add(debugOrderExpiry)

	s.logger.Info("Debug payment initiation",
		zap.String("order_id", req.OrderID),
		zap.String("environment", s.gateway.Environment()))

	result, err := s.createOrderAndSession(ctx, orderReq)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) orderRequest(req *InitiateRequest, baseURL string) (*gateway.OrderRequest, error) {
	if baseURL == "" {
		return nil, ErrCallbackBaseUnknown
	}
	c := req.CustomerDetails
	return &gateway.OrderRequest{
		OrderID:       req.OrderID,
		OrderAmount:   *req.OrderAmount,
		OrderCurrency: req.OrderCurrency,
		CustomerDetails: gateway.CustomerDetails{
			CustomerID:    c.ID,
			CustomerName:  c.Name,
			CustomerEmail: c.Email,
			CustomerPhone: c.Phone,
		},
		OrderMeta: CallbackURLs(baseURL, req.OrderID),
	}, nil
}

func (s *PaymentService) createOrderAndSession(ctx context.Context, orderReq *gateway.OrderRequest) (*InitiateResult, error) {
	order, err := s.gateway.CreateOrder(ctx, orderReq)
	if err != nil {
		util.PaymentInitiationsTotal.WithLabelValues("order_failed").Inc()
		s.logger.Error("Gateway order creation failed", zap.String("order_id", orderReq.OrderID), zap.Error(err))
		return nil, &GatewayStepError{Step: StepOrderCreation, Err: err}
	}

	session, err := s.gateway.CreatePaymentSession(ctx, orderReq.OrderID)
	if err != nil {
		util.PaymentInitiationsTotal.WithLabelValues("session_failed").Inc()
		s.logger.Error("Gateway payment session failed", zap.String("order_id", orderReq.OrderID), zap.Error(err))
		return nil, &GatewayStepError{Step: StepPaymentSession, Err: err}
	}

	util.PaymentInitiationsTotal.WithLabelValues("success").Inc()
	return &InitiateResult{
		PaymentSessionID: session.PaymentSessionID,
		OrderID:          orderReq.OrderID,
		Environment:      s.gateway.Environment(),
		OrderResponse:    order.Raw,
		SessionResponse:  session.Raw,
	}, nil
}

func (s *PaymentService) recordPlacement(ctx context.Context, orderReq *gateway.OrderRequest) {
	err := s.orders.RecordPlacement(ctx, &Placement{
		OrderID:       orderReq.OrderID,
		Channel:       models.PaymentMethodPrepaid,
		Amount:        orderReq.OrderAmount,
		Currency:      orderReq.OrderCurrency,
		CustomerName:  orderReq.CustomerDetails.CustomerName,
		CustomerEmail: orderReq.CustomerDetails.CustomerEmail,
		CustomerPhone: orderReq.CustomerDetails.CustomerPhone,
	})
	if err != nil {
		s.logger.Error("Failed to record placement", zap.String("order_id", orderReq.OrderID), zap.Error(err))
	}
}

// StatusResult is the mapped state of a gateway order.
type StatusResult struct {
	OrderID string
	Outcome models.PaymentOutcome
	Order   json.RawMessage
}

// OutcomeMessage is the shopper-facing text for an outcome.
func OutcomeMessage(outcome models.PaymentOutcome) string {
	switch outcome {
	case models.PaymentOutcomeSuccess:
		return "Payment successful"
	case models.PaymentOutcomePending:
		return "Payment pending"
	default:
		return "Payment failed or cancelled"
	}
}

// CheckStatus asks the gateway for the order and maps its status.
func (s *PaymentService) CheckStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CheckStatus")
	defer span.End()

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, &ValidationError{Message: "Order ID is required", Fields: []string{"order_id"}}
	}
	span.SetAttributes(attribute.String("order_id", orderID))

	order, err := s.gateway.GetOrder(ctx, orderID)
	if err != nil {
		util.PaymentStatusChecksTotal.WithLabelValues("error").Inc()
		util.FailSpan(span, err)
		return nil, fmt.Errorf("failed to fetch order status: %w", err)
	}

	outcome := gateway.MapOrderStatus(order.OrderStatus)
	util.PaymentStatusChecksTotal.WithLabelValues(outcome.Label()).Inc()
	return &StatusResult{OrderID: orderID, Outcome: outcome, Order: order.Raw}, nil
}

// WebhookResult describes how a verified notification was handled.
type WebhookResult struct {
	Type      string
	Data      json.RawMessage
	OrderID   string
	Outcome   models.PaymentOutcome
	Duplicate bool
}

// IsPaymentEvent reports whether the notification carried a payment result.
func (r *WebhookResult) IsPaymentEvent() bool {
	return r.Type == gateway.EventPaymentSuccess || r.Type == gateway.EventPaymentFailed
}

func webhookOutcome(eventType string) (models.PaymentOutcome, bool) {
	switch eventType {
	case gateway.EventPaymentSuccess:
		return models.PaymentOutcomeSuccess, true
	case gateway.EventPaymentFailed:
		return models.PaymentOutcomeFailed, true
	default:
		return "", false
	}
}

// HandleWebhook authenticates a gateway notification and forwards payment
// results to order management. A delivery seen within the dedupe window is
// acknowledged again without being re-applied.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandleWebhook")
	defer span.End()

	event, err := s.gateway.VerifyAndParseWebhook(body, signature)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		s.logger.Warn("Webhook rejected", zap.Error(err))
		switch {
		case errors.Is(err, gateway.ErrMissingSignature):
			return nil, &ValidationError{Message: "Missing signature"}
		case errors.Is(err, gateway.ErrInvalidSignature):
			return nil, &ValidationError{Message: "Invalid signature"}
		default:
			return nil, &ValidationError{Message: "Invalid webhook payload"}
		}
	}

	result := &WebhookResult{Type: event.Type, Data: event.Data, OrderID: event.OrderID()}
	span.SetAttributes(attribute.String("webhook_type", event.Type), attribute.String("order_id", result.OrderID))

	outcome, isPayment := webhookOutcome(event.Type)
	if !isPayment {
		util.WebhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		s.logger.Info("Webhook received", zap.String("type", event.Type))
		return result, nil
	}
	result.Outcome = outcome

	if result.OrderID == "" {
		util.WebhookEventsTotal.WithLabelValues(event.Type, "no_order").Inc()
		s.logger.Warn("Payment webhook without order id", zap.String("type", event.Type))
		return result, nil
	}

	key := "webhook:" + signature
	if s.dedupe != nil {
		first, err := s.dedupe.ClaimIdempotencyKey(ctx, key, s.dedupeTTL)
		if err != nil {
			s.logger.Warn("Webhook dedupe unavailable", zap.Error(err))
		} else if !first {
			util.WebhookEventsTotal.WithLabelValues(event.Type, "duplicate").Inc()
			s.logger.Info("Duplicate webhook delivery", zap.String("order_id", result.OrderID))
			result.Duplicate = true
			return result, nil
		}
	}

	if err := s.orders.ApplyPaymentOutcome(ctx, result.OrderID, outcome); err != nil {
		if s.dedupe != nil {
			if rerr := s.dedupe.ReleaseIdempotencyKey(ctx, key); rerr != nil {
				s.logger.Warn("Failed to release webhook claim", zap.Error(rerr))
			}
		}
		util.WebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		util.FailSpan(span, err)
		return nil, fmt.Errorf("failed to apply webhook outcome: %w", err)
	}

	util.WebhookEventsTotal.WithLabelValues(event.Type, "applied").Inc()
	s.logger.Info("Payment webhook applied",
		zap.String("order_id", result.OrderID),
		zap.String("outcome", string(outcome)))
	return result, nil
}

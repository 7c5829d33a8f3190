package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/sheets"
	"storefront/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultCountry  = "IN"
	defaultCurrency = "INR"
)

// OrderLog records order summaries without blocking the caller.
type OrderLog interface {
	LogAsync(ctx context.Context, summary sheets.OrderSummary)
}

// PlacementRecorder is told about every order handed to a channel.
type PlacementRecorder interface {
	RecordPlacement(ctx context.Context, p *Placement) error
}

// CheckoutService prices carts and hands cash on delivery orders to WhatsApp
type CheckoutService struct {
	carts          *CartService
	validate       *validator.Validate
	whatsapp       *notify.WhatsApp
	orderLog       OrderLog
	orders         PlacementRecorder
	codShippingFee int64
	now            func() time.Time
	logger         *zap.Logger
}

func NewCheckoutService(
	carts *CartService,
	validate *validator.Validate,
	whatsapp *notify.WhatsApp,
	orderLog OrderLog,
	orders PlacementRecorder,
	codShippingFee int64,
) *CheckoutService {
	return &CheckoutService{
		carts:          carts,
		validate:       validate,
		whatsapp:       whatsapp,
		orderLog:       orderLog,
		orders:         orders,
		codShippingFee: codShippingFee,
		now:            time.Now,
		logger:         util.GetLogger(),
	}
}

// ComputeQuote prices a cart. Shipping is charged only for cash on delivery.
func ComputeQuote(cart *models.Cart, method string, codShippingFee int64) models.Quote {
	subtotal := cart.Total()
	var shipping int64
	if method == models.PaymentMethodCOD {
		shipping = codShippingFee
	}
	return models.Quote{
		PaymentMethod: method,
		Subtotal:      subtotal,
		Shipping:      shipping,
		Total:         subtotal + shipping,
		ItemCount:     cart.Count(),
	}
}

func validPaymentMethod(method string) bool {
	return method == models.PaymentMethodCOD || method == models.PaymentMethodPrepaid
}

// Quote prices the stored cart for the given payment method.
func (s *CheckoutService) Quote(ctx context.Context, cartID, method string) (*models.Quote, error) {
	if !validPaymentMethod(method) {
		return nil, &ValidationError{Message: "Invalid payment method", Fields: []string{"paymentMethod"}}
	}

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrCartEmpty
	}

	quote := ComputeQuote(cart, method, s.codShippingFee)
	util.CheckoutQuotesTotal.WithLabelValues(method).Inc()
	return &quote, nil
}

// ValidateForm fills defaults and checks that every field is present.
func (s *CheckoutService) ValidateForm(form *models.CheckoutForm) error {
	trimForm(form)
	if form.Country == "" {
		form.Country = defaultCountry
	}

	if err := s.validate.Struct(form); err != nil {
		fields := failedFields(err)
		if len(fields) == 0 {
			return fmt.Errorf("failed to validate checkout form: %w", err)
		}
		return &ValidationError{Message: "Please fill in all required fields", Fields: fields}
	}
	return nil
}

// CODResult is what the shopper needs to finish a cash on delivery order.
type CODResult struct {
	OrderID     string       `json:"orderId"`
	WhatsAppURL string       `json:"whatsappUrl"`
	Quote       models.Quote `json:"quote"`
}

// PlaceCOD validates the form, prices the cart with COD shipping and builds
// the WhatsApp link. The spreadsheet log and order record are best effort.
// The cart is left intact; the shopper may still switch to prepaid.
func (s *CheckoutService) PlaceCOD(ctx context.Context, cartID string, form *models.CheckoutForm) (*CODResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceCOD")
	defer span.End()

	if err := s.ValidateForm(form); err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrCartEmpty
	}

	quote := ComputeQuote(cart, models.PaymentMethodCOD, s.codShippingFee)
	orderID := "COD-" + strings.ToUpper(uuid.New().String()[:8])

	link := s.whatsapp.CODLink(notify.CODOrder{
		Items:    cart.Items,
		Quote:    quote,
		Customer: form,
	})

	s.orderLog.LogAsync(ctx, sheets.NewOrderSummary(form, cart, quote, sheets.StatusPending, s.now()))

	err = s.orders.RecordPlacement(ctx, &Placement{
		OrderID:       orderID,
		Channel:       models.PaymentMethodCOD,
		Amount:        decimal.NewFromInt(quote.Total),
		Currency:      defaultCurrency,
		CustomerName:  form.FullName(),
		CustomerEmail: form.Email,
		CustomerPhone: form.Phone,
	})
	if err != nil {
		s.logger.Error("Failed to record COD order", zap.String("order_id", orderID), zap.Error(err))
	}

	util.CODOrdersTotal.Inc()
	s.logger.Info("COD order handed to WhatsApp",
		zap.String("order_id", orderID),
		zap.Int64("total", quote.Total),
		zap.Int("items", quote.ItemCount))

	return &CODResult{OrderID: orderID, WhatsAppURL: link, Quote: quote}, nil
}

func trimForm(form *models.CheckoutForm) {
	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = strings.TrimSpace(form.Phone)
	form.Address = strings.TrimSpace(form.Address)
	form.City = strings.TrimSpace(form.City)
	form.ZipCode = strings.TrimSpace(form.ZipCode)
	form.Country = strings.TrimSpace(form.Country)
}

// failedFields lists the JSON names of fields that failed validation.
func failedFields(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

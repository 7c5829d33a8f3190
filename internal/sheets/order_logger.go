// Package sheets appends order summaries to a SheetDB-backed spreadsheet.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 400 * time.Millisecond
	defaultTimeout     = 30 * time.Second
)

// StatusPending marks a summary logged before payment is confirmed.
const StatusPending = "pending"

// OrderSummary is one spreadsheet row.
type OrderSummary struct {
	Timestamp     string `json:"timestamp"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	Subtotal      int64  `json:"subtotal"`
	Shipping      int64  `json:"shipping"`
	Total         int64  `json:"total"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Zip           string `json:"zip"`
	Country       string `json:"country"`
	ItemsJSON     string `json:"items_json"`
}

type itemSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Color    string `json:"color"`
}

// NewOrderSummary flattens a checkout into a row.
func NewOrderSummary(form *models.CheckoutForm, cart *models.Cart, quote models.Quote, status string, at time.Time) OrderSummary {
	items := make([]itemSummary, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, itemSummary{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Color:    item.Color,
		})
	}
	itemsJSON, _ := json.Marshal(items)

	return OrderSummary{
		Timestamp:     at.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		PaymentMethod: quote.PaymentMethod,
		Status:        status,
		Subtotal:      quote.Subtotal,
		Shipping:      quote.Shipping,
		Total:         quote.Total,
		FirstName:     form.FirstName,
		LastName:      form.LastName,
		Email:         form.Email,
		Phone:         form.Phone,
		Address:       form.Address,
		City:          form.City,
		Zip:           form.ZipCode,
		Country:       form.Country,
		ItemsJSON:     string(itemsJSON),
	}
}

type Config struct {
	Endpoint    string
	MaxAttempts int
	BaseDelay   time.Duration
	// Timeout bounds one background Log including all retries.
	Timeout time.Duration
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// OrderLogger posts summaries with bounded retries. It never reports failure
// to its caller; exhausted retries are logged and counted.
type OrderLogger struct {
	endpoint    string
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	httpClient  *http.Client
	sleep       SleepFunc
	logger      *zap.Logger
	wg          sync.WaitGroup
}

type Option func(*OrderLogger)

func WithHTTPClient(client *http.Client) Option {
	return func(l *OrderLogger) { l.httpClient = client }
}

func WithSleep(sleep SleepFunc) Option {
	return func(l *OrderLogger) { l.sleep = sleep }
}

func NewOrderLogger(cfg Config, opts ...Option) *OrderLogger {
	l := &OrderLogger{
		endpoint:    cfg.Endpoint,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		timeout:     cfg.Timeout,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		sleep:       sleepContext,
		logger:      util.Named("sheets"),
	}
	if l.maxAttempts <= 0 {
		l.maxAttempts = defaultMaxAttempts
	}
	if l.baseDelay <= 0 {
		l.baseDelay = defaultBaseDelay
	}
	if l.timeout <= 0 {
		l.timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Delay returns the wait before the given attempt (1-based). The first attempt
// is immediate; attempt n waits base*2^(n-1).
func (l *OrderLogger) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return l.baseDelay << uint(attempt-1)
}

// Log posts the summary, retrying on failure. It reports whether the row was
// stored.
func (l *OrderLogger) Log(ctx context.Context, summary OrderSummary) bool {
	if l.endpoint == "" {
		l.logger.Warn("SheetDB endpoint not configured, skipping order log")
		return false
	}

	ctx, span := util.StartSpan(ctx, "sheets.Log")
	defer span.End()

	body, err := json.Marshal(map[string]OrderSummary{"data": summary})
	if err != nil {
		l.logger.Error("Failed to encode order summary", zap.Error(err))
		return false
	}

	var lastErr error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if d := l.Delay(attempt); d > 0 {
			if err := l.sleep(ctx, d); err != nil {
				lastErr = err
				break
			}
		}

		if lastErr = l.post(ctx, body); lastErr == nil {
			util.OrderLogAttemptsTotal.WithLabelValues("success").Inc()
			l.logger.Info("Order summary saved",
				zap.String("payment_method", summary.PaymentMethod),
				zap.Int("attempt", attempt))
			return true
		}

		util.OrderLogAttemptsTotal.WithLabelValues("failure").Inc()
		l.logger.Warn("Order summary attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", l.maxAttempts),
			zap.Error(lastErr))
	}

	util.OrderLogGiveUpsTotal.Inc()
	util.FailSpan(span, lastErr)
	l.logger.Error("Could not save order summary", zap.Error(lastErr))
	return false
}

// LogAsync runs Log in the background on a context detached from the
// caller's cancellation.
func (l *OrderLogger) LogAsync(ctx context.Context, summary OrderSummary) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()
		l.Log(bg, summary)
	}()
}

// Wait blocks until in-flight background logs finish.
func (l *OrderLogger) Wait() {
	l.wg.Wait()
}

func (l *OrderLogger) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheetdb request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sheetdb HTTP %d", resp.StatusCode)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

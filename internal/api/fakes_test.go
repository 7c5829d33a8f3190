package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/service"
	"storefront/internal/sheets"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-webhook-secret"

type memoryCarts struct {
	mu    sync.Mutex
	carts map[string]models.Cart
}

func (m *memoryCarts) LoadCart(ctx context.Context, cartID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return models.NewCart(cartID), nil
	}
	cart.Items = append([]models.CartItem(nil), cart.Items...)
	return &cart, nil
}

func (m *memoryCarts) SaveCart(ctx context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *cart
	stored.Items = append([]models.CartItem(nil), cart.Items...)
	m.carts[cart.ID] = stored
	return nil
}

func (m *memoryCarts) DeleteCart(ctx context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, cartID)
	return nil
}

type outcome struct {
	orderID string
	outcome models.PaymentOutcome
}

type recordingTracker struct {
	mu         sync.Mutex
	placements []service.Placement
	outcomes   []outcome
	applyErr   error
}

func (r *recordingTracker) RecordPlacement(ctx context.Context, p *service.Placement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placements = append(r.placements, *p)
	return nil
}

func (r *recordingTracker) ApplyPaymentOutcome(ctx context.Context, orderID string, o models.PaymentOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return r.applyErr
	}
	r.outcomes = append(r.outcomes, outcome{orderID: orderID, outcome: o})
	return nil
}

type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryKeys) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryKeys) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type discardLog struct {
	mu        sync.Mutex
	summaries []sheets.OrderSummary
}

func (d *discardLog) LogAsync(ctx context.Context, summary sheets.OrderSummary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.summaries = append(d.summaries, summary)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

// cashfreeStub mimics the three PG endpoints the service calls.
type cashfreeStub struct {
	calls       int32
	orderStatus string
	failStatus  int
}

func (s *cashfreeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.calls, 1)
	w.Header().Set("Content-Type", "application/json")

	if s.failStatus != 0 {
		w.WriteHeader(s.failStatus)
		fmt.Fprint(w, `{"message":"authentication Failed","code":"request_failed","type":"authentication_error"}`)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/orders":
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprintf(w, `{"order_id":%q,"order_status":"ACTIVE"}`, body["order_id"])
	case r.Method == http.MethodPost && r.URL.Path == "/orders/payment-sessions":
		fmt.Fprint(w, `{"payment_session_id":"session_abc123"}`)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/orders/"):
		fmt.Fprintf(w, `{"order_id":%q,"order_status":%q}`, strings.TrimPrefix(r.URL.Path, "/orders/"), s.orderStatus)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"not found"}`)
	}
}

type testEnv struct {
	router  *gin.Engine
	stub    *cashfreeStub
	tracker *recordingTracker
	orders  *discardLog
}

func (e *testEnv) gatewayCalls() int {
	return int(atomic.LoadInt32(&e.stub.calls))
}

func newTestEnv(t *testing.T, opts Options, readiness map[string]Pinger) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stub := &cashfreeStub{orderStatus: gateway.OrderStatusPaid}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	gw, err := gateway.NewClient(gateway.Config{
		AppID:     "TEST_APP",
		SecretKey: testSecret,
		BaseURL:   srv.URL,
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)

	cat, err := catalog.Load()
	require.NoError(t, err)

	tracker := &recordingTracker{}
	orderLog := &discardLog{}
	validate := service.NewValidator()
	whatsapp := notify.NewWhatsApp("919455430498")

	carts := service.NewCartService(&memoryCarts{carts: map[string]models.Cart{}}, cat)
	checkout := service.NewCheckoutService(carts, validate, whatsapp, orderLog, tracker, 100)
	payments := service.NewPaymentService(gw, tracker, &memoryKeys{keys: map[string]bool{}}, time.Hour, validate)

	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = "https://shop.example.com"
	}
	h := NewHandler(cat, carts, checkout, payments, whatsapp, Diagnostics{
		AppIDSet:       true,
		SecretKeySet:   true,
		PublicBaseURL:  opts.PublicBaseURL,
		Environment:    gw.Environment(),
		GatewayBaseURL: gw.BaseURL(),
		APIVersion:     gateway.DefaultAPIVersion,
	}, readiness, opts)

	router := gin.New()
	h.SetupRoutes(router)
	return &testEnv{router: router, stub: stub, tracker: tracker, orders: orderLog}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

var errStoreDown = errors.New("store unavailable")

func signFor(payload string) string {
	return gateway.Sign(testSecret, []byte(payload))
}

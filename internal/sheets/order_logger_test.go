package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func statusServer(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		status := statuses[len(statuses)-1]
		if int(n) <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestLogSucceedsFirstAttempt(t *testing.T) {
	var got map[string]map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	logger := NewOrderLogger(Config{Endpoint: server.URL, BaseDelay: 10 * time.Millisecond}, WithSleep(sleeps.sleep))

	ok := logger.Log(context.Background(), OrderSummary{PaymentMethod: "cod", Status: StatusPending, Total: 1499})
	assert.True(t, ok)
	assert.Empty(t, sleeps.delays)
	assert.Equal(t, "cod", got["data"]["payment_method"])
	assert.Equal(t, 1499.0, got["data"]["total"])
}

func TestLogRetriesWithExponentialDelay(t *testing.T) {
	server, calls := statusServer(t, http.StatusInternalServerError)

	sleeps := &recordedSleeps{}
	base := 50 * time.Millisecond
	logger := NewOrderLogger(Config{Endpoint: server.URL, BaseDelay: base}, WithSleep(sleeps.sleep))

	ok := logger.Log(context.Background(), OrderSummary{PaymentMethod: "cod"})
	assert.False(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	require.Len(t, sleeps.delays, 2)
	assert.GreaterOrEqual(t, sleeps.delays[0], 2*base)
	assert.GreaterOrEqual(t, sleeps.delays[1], 4*base)
}

func TestLogSucceedsOnSecondAttempt(t *testing.T) {
	server, calls := statusServer(t, http.StatusBadGateway, http.StatusCreated)

	sleeps := &recordedSleeps{}
	logger := NewOrderLogger(Config{Endpoint: server.URL, BaseDelay: time.Millisecond}, WithSleep(sleeps.sleep))

	assert.True(t, logger.Log(context.Background(), OrderSummary{}))
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Len(t, sleeps.delays, 1)
}

func TestLogWithoutEndpointMakesNoRequest(t *testing.T) {
	logger := NewOrderLogger(Config{})
	assert.False(t, logger.Log(context.Background(), OrderSummary{}))
}

func TestLogTransportErrorCountsAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	sleeps := &recordedSleeps{}
	logger := NewOrderLogger(Config{Endpoint: url, MaxAttempts: 2}, WithSleep(sleeps.sleep))

	assert.False(t, logger.Log(context.Background(), OrderSummary{}))
	assert.Len(t, sleeps.delays, 1)
}

func TestLogStopsWhenContextCancelled(t *testing.T) {
	server, calls := statusServer(t, http.StatusInternalServerError)
	logger := NewOrderLogger(Config{Endpoint: server.URL, BaseDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.False(t, logger.Log(ctx, OrderSummary{}))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestLogAsyncSurvivesCallerCancellation(t *testing.T) {
	server, calls := statusServer(t, http.StatusCreated)
	logger := NewOrderLogger(Config{Endpoint: server.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger.LogAsync(ctx, OrderSummary{})
	logger.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestDelay(t *testing.T) {
	logger := NewOrderLogger(Config{BaseDelay: 400 * time.Millisecond})
	assert.Equal(t, time.Duration(0), logger.Delay(1))
	assert.Equal(t, 800*time.Millisecond, logger.Delay(2))
	assert.Equal(t, 1600*time.Millisecond, logger.Delay(3))
}

func TestNewOrderSummary(t *testing.T) {
	cart := models.NewCart("c1")
	cart.Add(models.CartItem{ID: "airpods-pro-2", Name: "AirPods Pro (2nd generation)", Price: 1399, Color: "White"}, 1)
	form := &models.CheckoutForm{
		FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Phone: "9876543210",
		Address: "12 MG Road", City: "Pune", ZipCode: "411001", Country: "IN",
	}
	quote := models.Quote{PaymentMethod: models.PaymentMethodCOD, Subtotal: 1399, Shipping: 100, Total: 1499, ItemCount: 1}
	at := time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

	s := NewOrderSummary(form, cart, quote, StatusPending, at)

	assert.Equal(t, "2026-10-15T08:30:00.000Z", s.Timestamp)
	assert.Equal(t, "cod", s.PaymentMethod)
	assert.Equal(t, int64(1499), s.Total)
	assert.Equal(t, "411001", s.Zip)
	assert.JSONEq(t, `[{"id":"airpods-pro-2","name":"AirPods Pro (2nd generation)","price":1399,"quantity":1,"color":"White"}]`, s.ItemsJSON)
}

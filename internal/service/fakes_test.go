package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/sheets"
)

type memoryCartRepo struct {
	mu      sync.Mutex
	carts   map[string]models.Cart
	saveErr error
}

func newMemoryCartRepo() *memoryCartRepo {
	return &memoryCartRepo{carts: map[string]models.Cart{}}
}

func (r *memoryCartRepo) LoadCart(ctx context.Context, cartID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[cartID]
	if !ok {
		return models.NewCart(cartID), nil
	}
	cart.Items = append([]models.CartItem(nil), cart.Items...)
	return &cart, nil
}

func (r *memoryCartRepo) SaveCart(ctx context.Context, cart *models.Cart) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *cart
	stored.Items = append([]models.CartItem(nil), cart.Items...)
	r.carts[cart.ID] = stored
	return nil
}

func (r *memoryCartRepo) DeleteCart(ctx context.Context, cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, cartID)
	return nil
}

type staticCatalog map[string]models.Product

func (c staticCatalog) Get(id string) (models.Product, bool) {
	p, ok := c[id]
	return p, ok
}

func testCatalog() staticCatalog {
	return staticCatalog{
		"a": {
			ID:     "a",
			Name:   "Earbuds A",
			Price:  1499,
			Color:  "White",
			Images: []string{"/a.webp"},
		},
		"airpods-pro-2": {
			ID:     "airpods-pro-2",
			Name:   "AirPods Pro (2nd generation)",
			Price:  1399,
			Color:  "White",
			Images: []string{"/imga.webp"},
		},
	}
}

type fakeGateway struct {
	createOrderErr error
	sessionErr     error
	order          *gateway.Order
	webhookErr     error
	webhookEvent   *gateway.WebhookEvent

	createOrderCalls int
	sessionCalls     int
	lastOrder        *gateway.OrderRequest
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req *gateway.OrderRequest) (*gateway.Order, error) {
	g.createOrderCalls++
	g.lastOrder = req
	if g.createOrderErr != nil {
		return nil, g.createOrderErr
	}
	return &gateway.Order{OrderID: req.OrderID, OrderStatus: "ACTIVE", Raw: []byte(`{"order_status":"ACTIVE"}`)}, nil
}

func (g *fakeGateway) CreatePaymentSession(ctx context.Context, orderID string) (*gateway.PaymentSession, error) {
	g.sessionCalls++
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	return &gateway.PaymentSession{PaymentSessionID: "session_" + orderID, OrderID: orderID}, nil
}

func (g *fakeGateway) GetOrder(ctx context.Context, orderID string) (*gateway.Order, error) {
	if g.order == nil {
		return nil, &gateway.APIError{Operation: "get_order", StatusCode: 404, Body: []byte(`{"message":"order not found"}`)}
	}
	return g.order, nil
}

func (g *fakeGateway) VerifyAndParseWebhook(body []byte, signature string) (*gateway.WebhookEvent, error) {
	if g.webhookErr != nil {
		return nil, g.webhookErr
	}
	return g.webhookEvent, nil
}

func (g *fakeGateway) Environment() string { return "sandbox" }

type outcomeCall struct {
	orderID string
	outcome models.PaymentOutcome
}

type fakeTracker struct {
	mu         sync.Mutex
	placements []*Placement
	outcomes   []outcomeCall
	err        error
}

func (f *fakeTracker) RecordPlacement(ctx context.Context, p *Placement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placements = append(f.placements, p)
	return f.err
}

func (f *fakeTracker) ApplyPaymentOutcome(ctx context.Context, orderID string, outcome models.PaymentOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.outcomes = append(f.outcomes, outcomeCall{orderID: orderID, outcome: outcome})
	return nil
}

type memoryDeduper struct {
	keys     map[string]bool
	err      error
	released []string
}

func newMemoryDeduper() *memoryDeduper {
	return &memoryDeduper{keys: map[string]bool{}}
}

func (d *memoryDeduper) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *memoryDeduper) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	delete(d.keys, key)
	d.released = append(d.released, key)
	return nil
}

type recordingOrderLog struct {
	mu        sync.Mutex
	summaries []sheets.OrderSummary
}

func (l *recordingOrderLog) LogAsync(ctx context.Context, summary sheets.OrderSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summaries = append(l.summaries, summary)
}

type fakePublisher struct {
	placed   []*models.OrderPlacedEvent
	outcomes []*models.PaymentOutcomeEvent
	err      error
}

func (p *fakePublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.placed = append(p.placed, event)
	return nil
}

func (p *fakePublisher) PublishPaymentOutcome(ctx context.Context, event *models.PaymentOutcomeEvent) error {
	if p.err != nil {
		return p.err
	}
	p.outcomes = append(p.outcomes, event)
	return nil
}

type memoryOrderRepo struct {
	records   map[string]*models.OrderRecord
	processed map[string]bool
	upsertErr error
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{records: map[string]*models.OrderRecord{}, processed: map[string]bool{}}
}

func (r *memoryOrderRepo) UpsertOrderRecord(ctx context.Context, rec *models.OrderRecord) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if existing, ok := r.records[rec.OrderID]; ok {
		status := existing.Status
		copied := *rec
		copied.Status = status
		r.records[rec.OrderID] = &copied
		return nil
	}
	copied := *rec
	r.records[rec.OrderID] = &copied
	return nil
}

func (r *memoryOrderRepo) ApplyOutcome(ctx context.Context, eventID, eventType, orderID, status string) (bool, error) {
	if r.processed[eventID] {
		return false, nil
	}
	r.processed[eventID] = true
	rec, ok := r.records[orderID]
	if !ok {
		rec = &models.OrderRecord{OrderID: orderID}
		r.records[orderID] = rec
	}
	if rec.Status != models.OrderStatusPaid {
		rec.Status = status
	}
	return true, nil
}

func (r *memoryOrderRepo) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	return r.processed[eventID], nil
}

func (r *memoryOrderRepo) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	r.processed[eventID] = true
	return nil
}

var errBrokerDown = errors.New("broker down")

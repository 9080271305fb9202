package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store/memstore"

	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{payments: make(map[string]*models.Payment)}
}

func (l *fakeLedger) CreatePayment(ctx context.Context, p *models.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payments[p.OrderID] = p
	return nil
}

func (l *fakeLedger) UpdatePaymentStatus(ctx context.Context, orderID, status, txID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.payments[orderID]; ok {
		p.Status = status
		p.ProviderTxID = txID
	}
	return nil
}

func (l *fakeLedger) status(orderID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.payments[orderID]; ok {
		return p.Status
	}
	return ""
}

type fakeEvents struct {
	mu        sync.Mutex
	created   []*models.OrderCreatedEvent
	completed []*models.OrderCompletedEvent
	failed    []*models.PaymentFailedEvent
}

func (e *fakeEvents) PublishOrderCreated(ctx context.Context, ev *models.OrderCreatedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, ev)
	return nil
}

func (e *fakeEvents) PublishOrderCompleted(ctx context.Context, ev *models.OrderCompletedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, ev)
	return nil
}

func (e *fakeEvents) PublishPaymentFailed(ctx context.Context, ev *models.PaymentFailedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, ev)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]string)}
}

func (l *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", nil
	}
	l.held[key] = "token-" + key
	return l.held[key], nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type testEnv struct {
	store    *memstore.Store
	carts    *CartService
	merger   *CartMerger
	orders   *OrderService
	ledger   *fakeLedger
	events   *fakeEvents
	locker   *fakeLocker
	payments *payment.Facade
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := memstore.New()
	facade, err := payment.NewFacade(config.PaymentConfig{Mode: config.PaymentModeDemo, Currency: "USD"})
	require.NoError(t, err)

	env := &testEnv{
		store:    s,
		ledger:   newFakeLedger(),
		events:   &fakeEvents{},
		locker:   newFakeLocker(),
		payments: facade,
	}
	env.carts = NewCartService(s, s)
	env.merger = NewCartMerger(env.carts)
	env.orders = NewOrderService(OrderServiceDeps{
		Orders:    s,
		Carts:     s,
		Products:  s,
		Validator: checkout.NewValidator(s, 50, 100),
		Payments:  facade,
		Locker:    env.locker,
		Ledger:    env.ledger,
		Events:    env.events,
	})
	return env
}

func (e *testEnv) product(t *testing.T, title string, price, salePrice float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Title: title, Price: price, SalePrice: salePrice, TotalStock: stock}
	require.NoError(t, e.store.CreateProduct(context.Background(), p))
	return p
}

func (e *testEnv) stock(t *testing.T, p *models.Product) int {
	t.Helper()
	got, err := e.store.GetProductByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.TotalStock
}

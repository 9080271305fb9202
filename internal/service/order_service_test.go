package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/checkout"
	"storefront/internal/guestcart"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func checkoutRequest(userID string, cart *models.CartView) *CreateOrderRequest {
	req := &CreateOrderRequest{
		UserID:      userID,
		CartID:      cart.ID.Hex(),
		AddressInfo: models.AddressInfo{Address: "1 Main St", City: "Springfield", Pincode: "12345", Phone: "555"},
		TotalAmount: 0.01,
	}
	for _, line := range cart.Items {
		req.CartItems = append(req.CartItems, checkout.Line{ProductID: line.ProductID.Hex(), Quantity: line.Quantity})
	}
	return req
}

func TestCreateOrderUsesCatalogPrices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 40, 10)

	cart, err := env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 2)
	require.NoError(t, err)

	resp, err := env.orders.CreateOrder(ctx, checkoutRequest("u1", cart))
	require.NoError(t, err)
	assert.True(t, resp.IsDemo)
	assert.NotEmpty(t, resp.ApprovalURL)

	order, err := env.orders.GetOrder(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.CartItems, 1)
	assert.Equal(t, 40.0, order.CartItems[0].Price)

	// stock is only taken at capture
	assert.Equal(t, 10, env.stock(t, p))
	assert.Equal(t, models.LedgerStatusPending, env.ledger.status(resp.OrderID))
	assert.Len(t, env.events.created, 1)
}

func TestCreateOrderRejectsUnavailableItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 1)

	req := &CreateOrderRequest{
		UserID: "u1",
		CartItems: []checkout.Line{
			{ProductID: p.ID.Hex(), Quantity: 3},
			{ProductID: primitive.NewObjectID().Hex(), Quantity: 1},
		},
	}
	_, err := env.orders.CreateOrder(ctx, req)

	var checkoutErr *CheckoutError
	require.True(t, errors.As(err, &checkoutErr))
	assert.Equal(t, "Some items in your cart are not available", checkoutErr.Message)
	require.Len(t, checkoutErr.Errors, 2)
	assert.Equal(t, "Only 1 items available in stock", checkoutErr.Errors[0].Message)

	orders, err := env.orders.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.CreateOrder(context.Background(), &CreateOrderRequest{UserID: "u1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 10)

	req := func() *CreateOrderRequest {
		return &CreateOrderRequest{
			UserID:         "u1",
			CartItems:      []checkout.Line{{ProductID: p.ID.Hex(), Quantity: 1}},
			IdempotencyKey: "key-1",
		}
	}

	first, err := env.orders.CreateOrder(ctx, req())
	require.NoError(t, err)
	second, err := env.orders.CreateOrder(ctx, req())
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)

	orders, err := env.orders.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCaptureCompletesOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 10)

	cart, err := env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 3)
	require.NoError(t, err)
	resp, err := env.orders.CreateOrder(ctx, checkoutRequest("u1", cart))
	require.NoError(t, err)

	order, err := env.orders.Capture(ctx, &CaptureRequest{OrderID: resp.OrderID, PaymentID: "PAY-OK", PayerID: "PAYER-1"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "PAY-OK", order.PaymentID)
	assert.Equal(t, "PAYER-1", order.PayerID)

	assert.Equal(t, 7, env.stock(t, p))
	_, err = env.carts.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, models.LedgerStatusSuccess, env.ledger.status(resp.OrderID))
	require.Len(t, env.events.completed, 1)
	assert.Equal(t, resp.OrderID, env.events.completed[0].OrderID)
}

func TestCaptureFailureRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 10)

	cart, err := env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 2)
	require.NoError(t, err)
	resp, err := env.orders.CreateOrder(ctx, checkoutRequest("u1", cart))
	require.NoError(t, err)

	_, err = env.orders.Capture(ctx, &CaptureRequest{OrderID: resp.OrderID, PaymentID: "PAY-FAIL"})
	var payErr *payment.Error
	require.True(t, errors.As(err, &payErr))

	order, err := env.orders.GetOrder(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 10, env.stock(t, p))

	// the cart survives so the shopper can retry
	_, err = env.carts.GetCart(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, models.LedgerStatusFailed, env.ledger.status(resp.OrderID))
	assert.Len(t, env.events.failed, 1)
}

func TestCaptureInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.product(t, "A", 10, 0, 5)
	b := env.product(t, "B", 10, 0, 5)

	resp, err := env.orders.CreateOrder(ctx, &CreateOrderRequest{
		UserID: "u1",
		CartItems: []checkout.Line{
			{ProductID: a.ID.Hex(), Quantity: 2},
			{ProductID: b.ID.Hex(), Quantity: 4},
		},
	})
	require.NoError(t, err)

	// stock sold elsewhere between checkout and capture
	require.NoError(t, env.store.DecrementStock(ctx, b.ID, 3))

	_, err = env.orders.Capture(ctx, &CaptureRequest{OrderID: resp.OrderID})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, env.stock(t, a))
	assert.Equal(t, 2, env.stock(t, b))
}

func TestCaptureTwiceIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 10)

	resp, err := env.orders.CreateOrder(ctx, &CreateOrderRequest{
		UserID:    "u1",
		CartItems: []checkout.Line{{ProductID: p.ID.Hex(), Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.orders.Capture(ctx, &CaptureRequest{OrderID: resp.OrderID})
	require.NoError(t, err)
	order, err := env.orders.Capture(ctx, &CaptureRequest{OrderID: resp.OrderID})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, 9, env.stock(t, p))
	assert.Len(t, env.events.completed, 1)
}

func TestCaptureLockHeld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 10)

	resp, err := env.orders.CreateOrder(ctx, &CreateOrderRequest{
		UserID:    "u1",
		CartItems: []checkout.Line{{ProductID: p.ID.Hex(), Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.locker.AcquireLock(ctx, "capture:"+resp.OrderID, 0)
	require.NoError(t, err)

	_, err = env.orders.Capture(ctx, &CaptureRequest{OrderID: resp.OrderID})
	assert.ErrorIs(t, err, ErrCaptureInProgress)
	assert.Equal(t, 10, env.stock(t, p))
}

func TestCaptureValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.orders.Capture(ctx, &CaptureRequest{OrderID: "nope"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.orders.Capture(ctx, &CaptureRequest{OrderID: primitive.NewObjectID().Hex()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 10)

	resp, err := env.orders.CreateOrder(ctx, &CreateOrderRequest{
		UserID:    "u1",
		CartItems: []checkout.Line{{ProductID: p.ID.Hex(), Quantity: 1}},
	})
	require.NoError(t, err)

	order, err := env.orders.UpdateOrderStatus(ctx, resp.OrderID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.OrderStatus)

	_, err = env.orders.UpdateOrderStatus(ctx, resp.OrderID, "lost")
	assert.ErrorIs(t, err, ErrInvalidInput)

	orders, err := env.orders.GetOrdersByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestGuestToCompletedOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "P1", 25, 0, 10)

	guest := guestcart.New(guestcart.NewMemoryBackend(), guestcart.DefaultKey)
	require.NoError(t, guest.Add(p.ID.Hex(), 2))

	cart, err := env.merger.Merge(ctx, "u1", guest)
	require.NoError(t, err)
	assert.False(t, guest.HasItems())

	resp, err := env.orders.CreateOrder(ctx, checkoutRequest("u1", cart))
	require.NoError(t, err)

	details, err := env.orders.PaymentDetails(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.NotEmpty(t, details.ID)

	order, err := env.orders.Capture(ctx, &CaptureRequest{OrderID: resp.OrderID})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.OrderStatus)
	assert.Equal(t, 50.0, order.TotalAmount)
	assert.Equal(t, 8, env.stock(t, p))
}

// deadlineProducts fails stock writes on a finished context, as the mongo
// driver does
type deadlineProducts struct {
	*memstore.Store
}

func (p deadlineProducts) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Store.DecrementStock(ctx, id, quantity)
}

func (p deadlineProducts) IncrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Store.IncrementStock(ctx, id, quantity)
}

func TestCaptureTimeoutStillReleasesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 10)

	slow, err := payment.NewFacade(config.PaymentConfig{Mode: config.PaymentModeDemo, Currency: "USD", MockLatency: 200 * time.Millisecond})
	require.NoError(t, err)
	orders := NewOrderService(OrderServiceDeps{
		Orders:    env.store,
		Carts:     env.store,
		Products:  deadlineProducts{env.store},
		Validator: checkout.NewValidator(env.store, 50, 100),
		Payments:  slow,
		Locker:    env.locker,
		Ledger:    env.ledger,
		Events:    env.events,
	})

	cart, err := env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 2)
	require.NoError(t, err)
	resp, err := orders.CreateOrder(ctx, checkoutRequest("u1", cart))
	require.NoError(t, err)

	captureCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = orders.Capture(captureCtx, &CaptureRequest{OrderID: resp.OrderID, PaymentID: "PAY-1"})
	require.Error(t, err)

	assert.Equal(t, 10, env.stock(t, p))
	order, err := orders.GetOrder(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.LedgerStatusFailed, env.ledger.status(resp.OrderID))
	assert.Len(t, env.events.failed, 1)
}

func TestCaptureIgnoresForeignCartID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 10)

	mine, err := env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 1)
	require.NoError(t, err)
	theirs, err := env.carts.AddToCart(ctx, "u2", p.ID.Hex(), 4)
	require.NoError(t, err)

	req := checkoutRequest("u1", mine)
	req.CartID = theirs.ID.Hex()
	resp, err := env.orders.CreateOrder(ctx, req)
	require.NoError(t, err)

	_, err = env.orders.Capture(ctx, &CaptureRequest{OrderID: resp.OrderID, PaymentID: "PAY-OK"})
	require.NoError(t, err)

	// u2 keeps their cart, the buyer's own cart is cleared
	kept, err := env.carts.GetCart(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 4, kept.Items[0].Quantity)
	_, err = env.carts.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCaptureRejectsCancelledOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 50, 0, 10)

	cart, err := env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 2)
	require.NoError(t, err)
	resp, err := env.orders.CreateOrder(ctx, checkoutRequest("u1", cart))
	require.NoError(t, err)
	_, err = env.orders.UpdateOrderStatus(ctx, resp.OrderID, models.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = env.orders.Capture(ctx, &CaptureRequest{OrderID: resp.OrderID, PaymentID: "PAY-OK"})
	assert.ErrorIs(t, err, ErrOrderNotPending)

	order, err := env.orders.GetOrder(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 10, env.stock(t, p))
	assert.Empty(t, env.events.completed)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultCaptureLockTTL = 30 * time.Second

// OrderService drives an order from checkout through payment capture
type OrderService struct {
	orders    OrderStore
	carts     CartStore
	validator *checkout.Validator
	payments  *payment.Facade
	stock     *StockReserver
	locker    Locker
	ledger    PaymentLedger
	events    EventPublisher
	lockTTL   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// OrderServiceDeps wires an OrderService. Locker, Ledger and Events may be nil.
type OrderServiceDeps struct {
	Orders         OrderStore
	Carts          CartStore
	Products       ProductStore
	Validator      *checkout.Validator
	Payments       *payment.Facade
	Locker         Locker
	Ledger         PaymentLedger
	Events         EventPublisher
	CaptureLockTTL time.Duration
}

// NewOrderService creates a new order service
func NewOrderService(deps OrderServiceDeps) *OrderService {
	ttl := deps.CaptureLockTTL
	if ttl <= 0 {
		ttl = defaultCaptureLockTTL
	}
	return &OrderService{
		orders:    deps.Orders,
		carts:     deps.Carts,
		validator: deps.Validator,
		payments:  deps.Payments,
		stock:     NewStockReserver(deps.Products),
		locker:    deps.Locker,
		ledger:    deps.Ledger,
		events:    deps.Events,
		lockTTL:   ttl,
		now:       time.Now,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest is the checkout payload. Any price or total sent by
// the client is ignored.
type CreateOrderRequest struct {
	UserID         string             `json:"userId"`
	CartID         string             `json:"cartId"`
	CartItems      []checkout.Line    `json:"cartItems"`
	AddressInfo    models.AddressInfo `json:"addressInfo"`
	PaymentMethod  string             `json:"paymentMethod"`
	TotalAmount    float64            `json:"totalAmount"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty"`
}

type CreateOrderResponse struct {
	OrderID     string `json:"orderId"`
	ApprovalURL string `json:"approvalURL"`
	IsDemo      bool   `json:"isDemo"`
}

// CaptureRequest identifies the order and the provider payment to capture
type CaptureRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	PayerID   string `json:"payerId"`
}

// CheckoutError rejects a checkout with per-line detail
type CheckoutError struct {
	Message        string                   `json:"message"`
	Errors         []checkout.LineError     `json:"errors,omitempty"`
	ValidatedItems []checkout.ValidatedLine `json:"validatedItems,omitempty"`
}

func (e *CheckoutError) Error() string {
	return e.Message
}

// CreateOrder validates the cart against the catalog, creates the provider
// payment and persists a pending order. Nothing is persisted when the
// provider call fails.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, invalid("userId is required")
	}

	if req.IdempotencyKey != "" {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID.Hex()))
			return responseFor(existing), nil
		}
	}

	result, err := s.validate(ctx, req.CartItems)
	if err != nil {
		util.RecordSpanError(span, err)
		return nil, err
	}

	payReq := payment.OrderRequest{
		Reference: uuid.New().String(),
		Total:     decimal.NewFromFloat(result.TotalAmount),
	}
	for _, line := range result.Items {
		payReq.Items = append(payReq.Items, payment.LineItem{
			SKU:       line.ProductID.Hex(),
			Name:      line.Title,
			UnitPrice: decimal.NewFromFloat(line.Price),
			Quantity:  line.Quantity,
		})
	}

	paid, err := s.payments.CreatePayment(ctx, payReq)
	if err != nil {
		util.RecordSpanError(span, err)
		util.OrdersFailedTotal.WithLabelValues("payment_create").Inc()
		return nil, err
	}

	now := s.now()
	method := req.PaymentMethod
	if method == "" {
		method = "paypal"
	}
	order := &models.Order{
		UserID:          req.UserID,
		CartID:          req.CartID,
		CartItems:       result.OrderItems(),
		AddressInfo:     req.AddressInfo,
		OrderStatus:     models.OrderStatusPending,
		PaymentMethod:   method,
		PaymentStatus:   models.PaymentStatusPending,
		TotalAmount:     result.TotalAmount,
		OrderDate:       now,
		OrderUpdateDate: now,
		IsDemoOrder:     paid.IsDemo,
		ProviderOrderID: paid.OrderID,
		ApprovalURL:     paid.ApprovalURL,
		IdempotencyKey:  req.IdempotencyKey,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, store.ErrDuplicate) && req.IdempotencyKey != "" {
			existing, lookupErr := s.orders.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return responseFor(existing), nil
			}
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("user_id", order.UserID),
		zap.Float64("total_amount", order.TotalAmount),
		zap.Bool("demo", order.IsDemoOrder))

	s.recordPayment(ctx, order)

	s.publish(ctx, "OrderCreated", func(ctx context.Context) error {
		return s.events.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
			BaseEvent:   s.baseEvent(models.EventTypeOrderCreated),
			OrderID:     order.ID.Hex(),
			UserID:      order.UserID,
			TotalAmount: order.TotalAmount,
			IsDemo:      order.IsDemoOrder,
			Items:       models.ItemData(order.CartItems),
		})
	})

	return responseFor(order), nil
}

func (s *OrderService) validate(ctx context.Context, lines []checkout.Line) (*checkout.Result, error) {
	if len(lines) == 0 {
		util.CheckoutRejectedTotal.WithLabelValues("empty").Inc()
		return nil, invalid("cart is empty or invalid")
	}

	lines = checkout.Sanitize(lines)
	if err := s.validator.CheckSize(lines); err != nil {
		util.CheckoutRejectedTotal.WithLabelValues("size").Inc()
		return nil, &CheckoutError{Message: err.Error()}
	}

	result, err := s.validator.Validate(ctx, lines)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			return nil, invalid("cart is empty or invalid")
		}
		return nil, err
	}

	if !result.OK() {
		util.CheckoutRejectedTotal.WithLabelValues("items").Inc()
		return nil, &CheckoutError{
			Message:        "Some items in your cart are not available",
			Errors:         result.Errors,
			ValidatedItems: result.Items,
		}
	}
	return result, nil
}

// Capture takes stock, captures the provider payment and completes the
// order. Stock is given back if the capture fails, leaving the order
// pending. Capturing a paid order returns it unchanged; any other order
// that is no longer pending is refused.
func (s *OrderService) Capture(ctx context.Context, req *CaptureRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Capture")
	defer span.End()

	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.OrderID))
	if err != nil {
		return nil, invalid("malformed orderId %q", req.OrderID)
	}
	orderID := id.Hex()

	unlock, err := s.lock(ctx, "capture:"+orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, storeErr("order", err)
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		s.logger.Info("Order already captured", zap.String("order_id", orderID))
		return order, nil
	}
	if order.OrderStatus != models.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotPending, orderID, order.OrderStatus)
	}

	if err := s.stock.Reserve(ctx, orderID, order.CartItems); err != nil {
		util.RecordSpanError(span, err)
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, err
	}

	reference := req.PaymentID
	if reference == "" {
		reference = order.ProviderOrderID
	}

	captured, err := s.payments.Capture(ctx, reference, order.IsDemoOrder)

	// The outcome must be recorded even if the client has gone away
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		util.RecordSpanError(span, err)
		s.stock.Release(ctx, orderID, order.CartItems)
		s.failPayment(ctx, order, err)
		return nil, err
	}

	order.PaymentID = firstNonEmpty(req.PaymentID, captured.PaymentID)
	order.PayerID = firstNonEmpty(req.PayerID, captured.PayerID)
	order.PaymentStatus = models.PaymentStatusPaid
	order.OrderStatus = models.OrderStatusCompleted
	order.OrderUpdateDate = s.now()

	if err := s.orders.SaveOrder(ctx, order); err != nil {
		// payment is captured; keep the stock taken
		s.logger.Error("Failed to save captured order",
			zap.String("order_id", orderID),
			zap.String("payment_id", order.PaymentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.deleteCart(ctx, order)

	if s.ledger != nil {
		if err := s.ledger.UpdatePaymentStatus(ctx, orderID, models.LedgerStatusSuccess, order.PaymentID); err != nil {
			s.logger.Error("Failed to update payment ledger", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	s.publish(ctx, "OrderCompleted", func(ctx context.Context) error {
		return s.events.PublishOrderCompleted(ctx, &models.OrderCompletedEvent{
			BaseEvent:   s.baseEvent(models.EventTypeOrderCompleted),
			OrderID:     orderID,
			UserID:      order.UserID,
			PaymentID:   order.PaymentID,
			TotalAmount: order.TotalAmount,
			Items:       models.ItemData(order.CartItems),
		})
	})

	util.OrdersCompletedTotal.Inc()
	s.logger.Info("Order completed",
		zap.String("order_id", orderID),
		zap.String("payment_id", order.PaymentID))
	return order, nil
}

// GetOrdersByUser lists a user's orders, newest first
func (s *OrderService) GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("userId is required")
	}
	return s.orders.ListOrdersByUserID(ctx, userID)
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(orderID))
	if err != nil {
		return nil, invalid("malformed order id %q", orderID)
	}

	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, storeErr("order", err)
	}
	return order, nil
}

// GetAllOrders lists every order for the admin panel
func (s *OrderService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListOrders(ctx)
}

// UpdateOrderStatus is the admin status change. It is the only way an order
// becomes cancelled.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, invalid("unknown order status %q", status)
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(orderID))
	if err != nil {
		return nil, invalid("malformed order id %q", orderID)
	}

	if err := s.orders.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, storeErr("order", err)
	}

	s.logger.Info("Order status updated", zap.String("order_id", orderID), zap.String("status", status))
	return s.GetOrder(ctx, orderID)
}

// PaymentDetails returns the provider view of an order's payment
func (s *OrderService) PaymentDetails(ctx context.Context, orderID string) (*payment.OrderDetails, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ProviderOrderID == "" {
		return nil, notFound("payment for order")
	}
	return s.payments.GetOrderDetails(ctx, order.ProviderOrderID, order.IsDemoOrder)
}

func (s *OrderService) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	token, err := s.locker.AcquireLock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", key, err)
	}
	if token == "" {
		return nil, ErrCaptureInProgress
	}

	return func() {
		if err := s.locker.ReleaseLock(context.Background(), key, token); err != nil {
			s.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *OrderService) failPayment(ctx context.Context, order *models.Order, cause error) {
	orderID := order.ID.Hex()
	util.OrdersFailedTotal.WithLabelValues("payment_failed").Inc()
	s.logger.Warn("Payment capture failed, order left pending",
		zap.String("order_id", orderID),
		zap.Error(cause))

	if s.ledger != nil {
		if err := s.ledger.UpdatePaymentStatus(ctx, orderID, models.LedgerStatusFailed, ""); err != nil {
			s.logger.Error("Failed to update payment ledger", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	s.publish(ctx, "PaymentFailed", func(ctx context.Context) error {
		return s.events.PublishPaymentFailed(ctx, &models.PaymentFailedEvent{
			BaseEvent: s.baseEvent(models.EventTypePaymentFailed),
			OrderID:   orderID,
			Reason:    cause.Error(),
		})
	})
}

// deleteCart removes the cart the order was placed from. A cartId that
// belongs to someone else is ignored and the buyer's own cart is removed
// instead. Failures are logged.
func (s *OrderService) deleteCart(ctx context.Context, order *models.Order) {
	if cartID, err := primitive.ObjectIDFromHex(order.CartID); err == nil {
		cart, err := s.carts.GetCartByID(ctx, cartID)
		switch {
		case err == nil && cart.UserID == order.UserID:
			err = s.carts.DeleteCart(ctx, cartID)
			if err == nil {
				return
			}
			if !errors.Is(err, store.ErrNotFound) {
				s.logger.Error("Failed to delete cart", zap.String("cart_id", order.CartID), zap.Error(err))
				return
			}
		case err == nil:
			s.logger.Warn("Order cartId belongs to another user",
				zap.String("order_id", order.ID.Hex()),
				zap.String("cart_id", order.CartID))
		case !errors.Is(err, store.ErrNotFound):
			s.logger.Error("Failed to load cart", zap.String("cart_id", order.CartID), zap.Error(err))
			return
		}
	}

	if err := s.carts.DeleteCartByUserID(ctx, order.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("Failed to delete cart", zap.String("user_id", order.UserID), zap.Error(err))
	}
}

func (s *OrderService) recordPayment(ctx context.Context, order *models.Order) {
	if s.ledger == nil {
		return
	}

	err := s.ledger.CreatePayment(ctx, &models.Payment{
		OrderID:         order.ID.Hex(),
		Provider:        order.PaymentMethod,
		ProviderOrderID: order.ProviderOrderID,
		Status:          models.LedgerStatusPending,
		AmountCents:     decimal.NewFromFloat(order.TotalAmount).Shift(2).Round(0).IntPart(),
	})
	if err != nil {
		s.logger.Error("Failed to record payment", zap.String("order_id", order.ID.Hex()), zap.Error(err))
	}
}

func (s *OrderService) publish(ctx context.Context, name string, fn func(context.Context) error) {
	if s.events == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.Error("Failed to publish event", zap.String("event", name), zap.Error(err))
	}
}

func (s *OrderService) baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: s.now(),
	}
}

func responseFor(order *models.Order) *CreateOrderResponse {
	return &CreateOrderResponse{
		OrderID:     order.ID.Hex(),
		ApprovalURL: order.ApprovalURL,
		IsDemo:      order.IsDemoOrder,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/config"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// PaymentResult is the uniform shape returned by CreatePayment
type PaymentResult struct {
	ApprovalURL string `json:"approvalURL"`
	IsDemo      bool   `json:"isDemo"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
}

// Facade routes payment calls to the gateway chosen at construction.
// Demo orders are always served by the mock gateway.
type Facade struct {
	mode      string
	currency  string
	returnURL string
	cancelURL string
	primary   Gateway
	demo      Gateway
	logger    *zap.Logger
}

type Option func(*Facade)

// WithGateway replaces the gateway selected from configuration
func WithGateway(g Gateway) Option {
	return func(f *Facade) { f.primary = g }
}

// NewFacade selects the gateway for cfg.Mode and cfg.Provider
func NewFacade(cfg config.PaymentConfig, opts ...Option) (*Facade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mock := NewMockGateway(cfg.MockLatency)
	f := &Facade{
		mode:      cfg.Mode,
		currency:  cfg.Currency,
		returnURL: cfg.ReturnURL,
		cancelURL: cfg.CancelURL,
		demo:      mock,
		logger:    util.GetLogger(),
	}
	if f.currency == "" {
		f.currency = "USD"
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.primary == nil {
		gw, err := newGateway(cfg, mock)
		if err != nil {
			return nil, err
		}
		f.primary = gw
	}

	f.logger.Info("Payment facade initialized",
		zap.String("mode", f.mode),
		zap.String("gateway", f.primary.Name()))
	return f, nil
}

func newGateway(cfg config.PaymentConfig, mock *MockGateway) (Gateway, error) {
	if cfg.Mode == config.PaymentModeDemo {
		return mock, nil
	}

	live := cfg.Mode == config.PaymentModeLive
	switch cfg.Provider {
	case config.PaymentProviderStripe:
		return NewStripeGateway(cfg.StripeKey), nil
	default:
		return NewPayPalGateway(cfg.ClientID, cfg.ClientSecret, live)
	}
}

// Mode returns demo, sandbox or live
func (f *Facade) Mode() string {
	return f.mode
}

// IsDemo reports whether new payments are simulated
func (f *Facade) IsDemo() bool {
	return f.mode == config.PaymentModeDemo
}

// Currency used for new payments
func (f *Facade) Currency() string {
	return f.currency
}

// CreatePayment creates a provider order and returns its approval URL
func (f *Facade) CreatePayment(ctx context.Context, req OrderRequest) (*PaymentResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentFacade.CreatePayment")
	defer span.End()

	if req.Currency == "" {
		req.Currency = f.currency
	}
	if req.ReturnURL == "" {
		req.ReturnURL = f.returnURL
	}
	if req.CancelURL == "" {
		req.CancelURL = f.cancelURL
	}

	done := f.observe(f.primary, "create")
	created, err := f.primary.CreateOrder(ctx, req)
	done(err)
	if err != nil {
		util.RecordSpanError(span, err)
		f.logger.Error("Payment creation failed",
			zap.String("gateway", f.primary.Name()),
			zap.Error(err))
		return nil, asError(f.primary.Name(), err)
	}

	return &PaymentResult{
		ApprovalURL: created.ApprovalURL(),
		IsDemo:      f.IsDemo(),
		OrderID:     created.ID,
		Status:      created.Status,
	}, nil
}

// Capture captures reference on the mock gateway for demo orders and on the
// configured gateway otherwise. A refused capture is returned as *Error.
func (f *Facade) Capture(ctx context.Context, reference string, demo bool) (*CaptureResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentFacade.Capture")
	defer span.End()

	gw := f.gatewayFor(demo)
	if reference == "" {
		return nil, &Error{Provider: gw.Name(), Name: "MISSING_REFERENCE", Message: "no payment reference to capture"}
	}

	done := f.observe(gw, "capture")
	res, err := gw.CapturePayment(ctx, reference)
	// Anything short of COMPLETED means no money moved
	if err == nil && (res.Error != nil || res.Status != StatusCompleted) {
		err = res.Error
		if res.Error == nil {
			err = &Error{Provider: gw.Name(), Name: "CAPTURE_FAILED", Message: "payment capture failed with status " + res.Status}
		}
	}
	done(err)

	if err != nil {
		util.RecordSpanError(span, err)
		f.logger.Warn("Payment capture failed",
			zap.String("gateway", gw.Name()),
			zap.String("reference", reference),
			zap.Error(err))
		return nil, asError(gw.Name(), err)
	}
	return res, nil
}

// GetOrderDetails fetches the provider view of a payment
func (f *Facade) GetOrderDetails(ctx context.Context, reference string, demo bool) (*OrderDetails, error) {
	ctx, span := util.StartSpan(ctx, "PaymentFacade.GetOrderDetails")
	defer span.End()

	gw := f.gatewayFor(demo)
	done := f.observe(gw, "details")
	details, err := gw.GetOrderDetails(ctx, reference)
	done(err)
	if err != nil {
		util.RecordSpanError(span, err)
		return nil, asError(gw.Name(), err)
	}
	return details, nil
}

func (f *Facade) gatewayFor(demo bool) Gateway {
	if demo {
		return f.demo
	}
	return f.primary
}

func (f *Facade) observe(gw Gateway, operation string) func(error) {
	start := time.Now()
	util.PaymentAttemptsTotal.WithLabelValues(operation, gw.Name()).Inc()
	return func(err error) {
		util.PaymentProcessingLatency.WithLabelValues(operation, gw.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			util.PaymentFailedTotal.WithLabelValues(operation, gw.Name()).Inc()
		}
	}
}

func asError(provider string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Provider: provider, Message: fmt.Sprintf("payment provider unavailable: %v", err), Err: err}
}

package payment

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"storefront/internal/util"

	"go.uber.org/zap"
)

// FailSentinel makes the mock refuse any capture whose reference contains it
const FailSentinel = "FAIL"

// MockGateway imitates the provider flow without network calls
type MockGateway struct {
	latency time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewMockGateway returns a mock that sleeps for latency on every call
func NewMockGateway(latency time.Duration) *MockGateway {
	return &MockGateway{
		latency: latency,
		now:     time.Now,
		logger:  util.GetLogger(),
	}
}

func (m *MockGateway) Name() string {
	return "mock"
}

func (m *MockGateway) CreateOrder(ctx context.Context, req OrderRequest) (*CreateResult, error) {
	if err := m.wait(ctx, m.latency); err != nil {
		return nil, err
	}

	id := fmt.Sprintf("DEMO-%d-%s", m.now().UnixMilli(), randomToken(9, false))
	m.logger.Info("[DEMO MODE] Created mock payment order",
		zap.String("provider_order_id", id),
		zap.String("total", req.Total.StringFixed(2)))

	return &CreateResult{
		ID:     id,
		Status: StatusCreated,
		Links: []Link{
			{Href: "http://demo-payment/" + id, Rel: RelApprove, Method: "GET"},
			{Href: "http://api/orders/" + id, Rel: "self", Method: "GET"},
		},
	}, nil
}

func (m *MockGateway) CapturePayment(ctx context.Context, reference string) (*CaptureResult, error) {
	if err := m.wait(ctx, m.latency*8/5); err != nil {
		return nil, err
	}

	if strings.Contains(reference, FailSentinel) {
		m.logger.Info("[DEMO MODE] Simulating payment failure", zap.String("reference", reference))
		return &CaptureResult{
			ID:     reference,
			Status: StatusFailed,
			Error: &Error{
				Provider: m.Name(),
				Name:     "PAYMENT_DECLINED",
				Message:  "Payment declined - Demo Mode",
				DebugID:  "DEBUG-" + randomToken(9, false),
			},
		}, nil
	}

	m.logger.Info("[DEMO MODE] Captured mock payment", zap.String("reference", reference))
	return &CaptureResult{
		ID:        reference,
		Status:    StatusCompleted,
		PaymentID: "PAY-" + randomToken(9, true),
		PayerID:   "DEMO-PAYER-" + randomToken(5, true),
		Amount:    "0.00",
	}, nil
}

func (m *MockGateway) GetOrderDetails(ctx context.Context, reference string) (*OrderDetails, error) {
	if err := m.wait(ctx, m.latency*3/5); err != nil {
		return nil, err
	}

	return &OrderDetails{
		ID:       reference,
		Status:   StatusCreated,
		Amount:   "0.00",
		Currency: "USD",
		Links:    []Link{{Href: "http://demo-payment/" + reference, Rel: RelApprove, Method: "GET"}},
	}, nil
}

func (m *MockGateway) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomToken(n int, upper bool) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = tokenAlphabet[rand.Intn(len(tokenAlphabet))]
	}
	if upper {
		return strings.ToUpper(string(b))
	}
	return string(b)
}

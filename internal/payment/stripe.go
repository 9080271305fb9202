package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeGateway maps the payment flow onto Stripe Checkout Sessions. The
// session URL is exposed as the approve link and capture confirms the
// session was paid.
type StripeGateway struct {
	sc *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{sc: sc}
}

func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*CreateResult, error) {
	currency := strings.ToLower(req.Currency)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.Reference),
		SuccessURL:        stripe.String(req.ReturnURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(req.CancelURL),
	}
	params.Context = ctx

	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.UnitPrice.Shift(2).Round(0).IntPart()),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	session, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, upstream(g.Name(), err)
	}

	return &CreateResult{
		ID:     session.ID,
		Status: StatusCreated,
		Links: []Link{
			{Href: session.URL, Rel: RelApprove, Method: "GET"},
		},
	}, nil
}

func (g *StripeGateway) CapturePayment(ctx context.Context, reference string) (*CaptureResult, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	session, err := g.sc.CheckoutSessions.Get(reference, params)
	if err != nil {
		return nil, upstream(g.Name(), err)
	}

	result := &CaptureResult{ID: session.ID, Status: StatusCompleted}
	if session.PaymentIntent != nil {
		result.PaymentID = session.PaymentIntent.ID
	}
	if session.Customer != nil {
		result.PayerID = session.Customer.ID
	}
	result.Amount = fmt.Sprintf("%.2f", float64(session.AmountTotal)/100)

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		result.Status = StatusFailed
		result.Error = &Error{
			Provider: g.Name(),
			Name:     "SESSION_NOT_PAID",
			Message:  fmt.Sprintf("checkout session payment status is %s", session.PaymentStatus),
		}
	}
	return result, nil
}

func (g *StripeGateway) GetOrderDetails(ctx context.Context, reference string) (*OrderDetails, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := g.sc.CheckoutSessions.Get(reference, params)
	if err != nil {
		return nil, upstream(g.Name(), err)
	}

	return &OrderDetails{
		ID:       session.ID,
		Status:   strings.ToUpper(string(session.Status)),
		Amount:   fmt.Sprintf("%.2f", float64(session.AmountTotal)/100),
		Currency: strings.ToUpper(string(session.Currency)),
		Links:    []Link{{Href: session.URL, Rel: RelApprove, Method: "GET"}},
	}, nil
}

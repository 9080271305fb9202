package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/plutov/paypal/v4"
)

// PayPalGateway delegates to the PayPal Orders v2 API
type PayPalGateway struct {
	client *paypal.Client
}

// NewPayPalGateway builds a client against the sandbox or live API base
func NewPayPalGateway(clientID, secret string, live bool) (*PayPalGateway, error) {
	base := paypal.APIBaseSandBox
	if live {
		base = paypal.APIBaseLive
	}

	client, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create paypal client: %w", err)
	}
	return &PayPalGateway{client: client}, nil
}

func (g *PayPalGateway) Name() string {
	return "paypal"
}

func (g *PayPalGateway) CreateOrder(ctx context.Context, req OrderRequest) (*CreateResult, error) {
	items := make([]paypal.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, paypal.Item{
			Name:       item.Name,
			SKU:        item.SKU,
			Quantity:   strconv.Itoa(item.Quantity),
			UnitAmount: &paypal.Money{Currency: req.Currency, Value: item.UnitPrice.StringFixed(2)},
		})
	}

	total := req.Total.StringFixed(2)
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: req.Reference,
		Description: "Payment for order",
		Amount: &paypal.PurchaseUnitAmount{
			Currency: req.Currency,
			Value:    total,
			Breakdown: &paypal.PurchaseUnitAmountBreakdown{
				ItemTotal: &paypal.Money{Currency: req.Currency, Value: total},
			},
		},
		Items: items,
	}}

	order, err := g.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, &paypal.ApplicationContext{
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	})
	if err != nil {
		return nil, upstream(g.Name(), err)
	}

	result := &CreateResult{ID: order.ID, Status: order.Status}
	for _, l := range order.Links {
		result.Links = append(result.Links, Link{Href: l.Href, Rel: l.Rel, Method: l.Method})
	}
	return result, nil
}

func (g *PayPalGateway) CapturePayment(ctx context.Context, reference string) (*CaptureResult, error) {
	resp, err := g.client.CaptureOrder(ctx, reference, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, upstream(g.Name(), err)
	}

	result := &CaptureResult{ID: resp.ID, Status: resp.Status}
	if resp.Payer != nil {
		result.PayerID = resp.Payer.PayerID
	}
	for _, unit := range resp.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, capture := range unit.Payments.Captures {
			result.PaymentID = capture.ID
			if capture.Amount != nil {
				result.Amount = capture.Amount.Value
			}
		}
	}

	if resp.Status != StatusCompleted {
		result.Status = StatusFailed
		result.Error = &Error{
			Provider: g.Name(),
			Name:     "CAPTURE_NOT_COMPLETED",
			Message:  fmt.Sprintf("capture finished with status %s", resp.Status),
		}
	}
	return result, nil
}

func (g *PayPalGateway) GetOrderDetails(ctx context.Context, reference string) (*OrderDetails, error) {
	order, err := g.client.GetOrder(ctx, reference)
	if err != nil {
		return nil, upstream(g.Name(), err)
	}

	details := &OrderDetails{ID: order.ID, Status: order.Status}
	for _, l := range order.Links {
		details.Links = append(details.Links, Link{Href: l.Href, Rel: l.Rel, Method: l.Method})
	}
	if len(order.PurchaseUnits) > 0 && order.PurchaseUnits[0].Amount != nil {
		details.Amount = order.PurchaseUnits[0].Amount.Value
		details.Currency = order.PurchaseUnits[0].Amount.Currency
	}
	return details, nil
}

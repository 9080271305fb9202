// Package payment hides the payment provider behind one facade. The provider
// variant is picked once from configuration when the facade is built.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Provider statuses shared by every gateway
const (
	StatusCreated   = "CREATED"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// RelApprove is the link relation carrying the buyer approval URL
const RelApprove = "approve"

// Gateway is one payment provider variant
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, req OrderRequest) (*CreateResult, error)
	CapturePayment(ctx context.Context, reference string) (*CaptureResult, error)
	GetOrderDetails(ctx context.Context, reference string) (*OrderDetails, error)
}

// OrderRequest is the provider-neutral payment payload built from validated lines
type OrderRequest struct {
	Reference string
	Currency  string
	Items     []LineItem
	Total     decimal.Decimal
	ReturnURL string
	CancelURL string
}

type LineItem struct {
	SKU       string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type CreateResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links"`
}

// ApprovalURL returns the href of the approve link, or ""
func (r *CreateResult) ApprovalURL() string {
	for _, l := range r.Links {
		if l.Rel == RelApprove {
			return l.Href
		}
	}
	return ""
}

// CaptureResult is what a gateway reports for a capture attempt. A gateway
// may report a refusal as Status FAILED with Error set instead of returning
// an error.
type CaptureResult struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	PaymentID string `json:"paymentId"`
	PayerID   string `json:"payerId"`
	Amount    string `json:"amount,omitempty"`
	Error     *Error `json:"error,omitempty"`
}

type OrderDetails struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   string `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
	Links    []Link `json:"links,omitempty"`
}

// Error is an upstream payment failure. Its message is safe to show to the caller.
type Error struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Message  string `json:"message"`
	DebugID  string `json:"debugId,omitempty"`
	Err      error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Name, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func upstream(provider string, err error) *Error {
	return &Error{Provider: provider, Message: err.Error(), Err: err}
}

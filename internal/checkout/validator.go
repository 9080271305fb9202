// Package checkout re-derives prices and stock from the catalog before an
// order is created. Client-supplied prices and totals are never used.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultMaxItems    = 50
	DefaultMaxQuantity = 100

	minLineQuantity = 1
	maxLineQuantity = 999
)

var (
	// ErrEmptyCart is returned when there is nothing to check out
	ErrEmptyCart = errors.New("cart is empty or invalid")

	// ErrCartTooLarge is returned by the size guard
	ErrCartTooLarge = errors.New("cart exceeds size limits")
)

// Line is a client-submitted cart line. Any price the client sent is ignored.
type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ValidatedLine carries authoritative catalog data for one line
type ValidatedLine struct {
	ProductID  primitive.ObjectID `json:"productId"`
	Title      string             `json:"title"`
	Image      string             `json:"image"`
	Price      float64            `json:"price"`
	Quantity   int                `json:"quantity"`
	TotalStock int                `json:"totalStock"`
}

// LineError explains why a line failed validation
type LineError struct {
	ProductID         string `json:"productId"`
	Title             string `json:"title,omitempty"`
	Message           string `json:"message"`
	RequestedQuantity int    `json:"requestedQuantity,omitempty"`
	AvailableStock    int    `json:"availableStock,omitempty"`
}

// Result is the outcome of Validate. TotalAmount only covers Items.
type Result struct {
	Items       []ValidatedLine `json:"items"`
	TotalAmount float64         `json:"totalAmount"`
	Errors      []LineError     `json:"errors,omitempty"`
}

// OK reports whether every line passed
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// OrderItems converts validated lines to the order snapshot
func (r *Result) OrderItems() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(r.Items))
	for _, l := range r.Items {
		items = append(items, models.OrderItem{
			ProductID: l.ProductID,
			Title:     l.Title,
			Image:     l.Image,
			Price:     l.Price,
			Quantity:  l.Quantity,
		})
	}
	return items
}

type ProductReader interface {
	GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}

type Validator struct {
	products    ProductReader
	maxItems    int
	maxQuantity int
}

// NewValidator builds a validator; non-positive caps fall back to 50 and 100
func NewValidator(products ProductReader, maxItems, maxQuantity int) *Validator {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxQuantity
	}
	return &Validator{products: products, maxItems: maxItems, maxQuantity: maxQuantity}
}

// Sanitize trims product ids and clamps quantities into [1, 999]
func Sanitize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		qty := l.Quantity
		if qty < minLineQuantity {
			qty = minLineQuantity
		}
		if qty > maxLineQuantity {
			qty = maxLineQuantity
		}
		out = append(out, Line{ProductID: strings.TrimSpace(l.ProductID), Quantity: qty})
	}
	return out
}

// CheckSize enforces the distinct-product and aggregate-quantity caps
func (v *Validator) CheckSize(lines []Line) error {
	if len(lines) > v.maxItems {
		return fmt.Errorf("%w: cart cannot contain more than %d different products", ErrCartTooLarge, v.maxItems)
	}

	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	if total > v.maxQuantity {
		return fmt.Errorf("%w: cart cannot contain more than %d total items", ErrCartTooLarge, v.maxQuantity)
	}
	return nil
}

// Validate checks every line against the catalog and accumulates all
// per-line errors. Only lookup failures other than not-found abort early.
func (v *Validator) Validate(ctx context.Context, lines []Line) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Validator.Validate")
	defer span.End()

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	result := &Result{Items: []ValidatedLine{}}
	total := decimal.Zero

	for _, l := range lines {
		id, err := primitive.ObjectIDFromHex(l.ProductID)
		if err != nil {
			result.Errors = append(result.Errors, notFound(l.ProductID))
			continue
		}

		product, err := v.products.GetProductByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				result.Errors = append(result.Errors, notFound(l.ProductID))
				continue
			}
			util.RecordSpanError(span, err)
			return nil, fmt.Errorf("failed to load product %s: %w", l.ProductID, err)
		}

		if product.TotalStock < l.Quantity {
			result.Errors = append(result.Errors, LineError{
				ProductID:         l.ProductID,
				Title:             product.Title,
				Message:           fmt.Sprintf("Only %d items available in stock", product.TotalStock),
				RequestedQuantity: l.Quantity,
				AvailableStock:    product.TotalStock,
			})
			continue
		}

		price := product.UnitPrice()
		result.Items = append(result.Items, ValidatedLine{
			ProductID:  product.ID,
			Title:      product.Title,
			Image:      product.Image,
			Price:      price,
			Quantity:   l.Quantity,
			TotalStock: product.TotalStock,
		})
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	result.TotalAmount = total.Round(2).InexactFloat64()
	return result, nil
}

func notFound(productID string) LineError {
	return LineError{
		ProductID: productID,
		Message:   "Product not found or no longer available",
	}
}

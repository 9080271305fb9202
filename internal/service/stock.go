package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// StockReserver takes stock for order lines with conditional decrements and
// gives it back when a later step fails.
type StockReserver struct {
	products ProductStore
	logger   *zap.Logger
}

func NewStockReserver(products ProductStore) *StockReserver {
	return &StockReserver{products: products, logger: util.GetLogger()}
}

// Reserve decrements stock for every item. If any decrement fails the ones
// already applied are released before returning.
func (r *StockReserver) Reserve(ctx context.Context, orderID string, items []models.OrderItem) error {
	ctx, span := util.StartSpan(ctx, "StockReserver.Reserve")
	defer span.End()

	for i, item := range items {
		err := r.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}

		util.RecordSpanError(span, err)
		r.Release(ctx, orderID, items[:i])

		if errors.Is(err, store.ErrInsufficientStock) {
			util.StockConflictsTotal.Inc()
			return fmt.Errorf("%w: only limited stock left for %q", ErrInsufficientStock, item.Title)
		}
		if errors.Is(err, store.ErrNotFound) {
			return notFound(fmt.Sprintf("product %q", item.Title))
		}
		return fmt.Errorf("failed to reserve stock for product %s: %w", item.ProductID.Hex(), err)
	}
	return nil
}

// Release gives back stock for items. It runs even when ctx is already
// done, since the caller is usually unwinding a cancelled request. Failures
// are logged.
func (r *StockReserver) Release(ctx context.Context, orderID string, items []models.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range items {
		if err := r.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			r.logger.Error("Failed to release stock",
				zap.String("order_id", orderID),
				zap.String("product_id", item.ProductID.Hex()),
				zap.Error(err))
		}
	}
}

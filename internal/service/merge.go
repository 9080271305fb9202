package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/guestcart"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartMerger moves a guest cart into a user's server cart after login
type CartMerger struct {
	carts  *CartService
	logger *zap.Logger
}

func NewCartMerger(carts *CartService) *CartMerger {
	return &CartMerger{carts: carts, logger: util.GetLogger()}
}

// Merge adds every guest item to the server cart with the normal add rules.
// The guest cart is cleared only when every item was added; the first
// failure stops the loop and leaves the guest cart untouched so the merge can
// be retried. Items added before the failure stay in the server cart.
func (m *CartMerger) Merge(ctx context.Context, userID string, guest *guestcart.Store) (*models.CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartMerger.Merge")
	defer span.End()

	items := guest.Get()
	if len(items) == 0 {
		util.CartMergesTotal.WithLabelValues("empty").Inc()
		return m.currentCart(ctx, userID)
	}

	var cart *models.CartView
	for i, item := range items {
		var err error
		cart, err = m.carts.AddToCart(ctx, userID, item.ProductID, item.Quantity)
		if err != nil {
			util.RecordSpanError(span, err)
			util.CartMergesTotal.WithLabelValues("failed").Inc()
			m.logger.Warn("Guest cart merge aborted",
				zap.String("user_id", userID),
				zap.String("product_id", item.ProductID),
				zap.Int("merged", i),
				zap.Int("remaining", len(items)-i),
				zap.Error(err))
			return nil, fmt.Errorf("merge item %s: %w", item.ProductID, err)
		}
	}

	guest.Clear()
	util.CartMergesTotal.WithLabelValues("ok").Inc()
	m.logger.Info("Guest cart merged",
		zap.String("user_id", userID),
		zap.Int("items", len(items)))
	return cart, nil
}

func (m *CartMerger) currentCart(ctx context.Context, userID string) (*models.CartView, error) {
	cart, err := m.carts.GetCart(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &models.CartView{UserID: userID, Items: []models.CartLine{}}, nil
	}
	return cart, err
}

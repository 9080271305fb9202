package memstore

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecrementStockIsConditional(t *testing.T) {
	ctx := context.Background()
	s := New()

	product := &models.Product{Title: "Runner", Price: 80, TotalStock: 3}
	require.NoError(t, s.CreateProduct(ctx, product))

	assert.ErrorIs(t, s.DecrementStock(ctx, product.ID, 5), store.ErrInsufficientStock)
	require.NoError(t, s.DecrementStock(ctx, product.ID, 3))

	p, err := s.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalStock)
}

func TestCartVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := New()

	cart := &models.Cart{UserID: "u1"}
	require.NoError(t, s.CreateCart(ctx, cart))
	assert.ErrorIs(t, s.CreateCart(ctx, &models.Cart{UserID: "u1"}), store.ErrDuplicate)

	stale := *cart
	cart.Items = []models.CartItem{{ProductID: cart.ID, Quantity: 1}}
	require.NoError(t, s.UpdateCartItems(ctx, cart))
	assert.Equal(t, int64(2), cart.Version)

	assert.ErrorIs(t, s.UpdateCartItems(ctx, &stale), store.ErrVersionConflict)
}

func TestListProductsFilterAndSort(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, p := range []models.Product{
		{Title: "B shoe", Category: "footwear", Brand: "nike", Price: 30},
		{Title: "A shoe", Category: "footwear", Brand: "adidas", Price: 50},
		{Title: "Cap", Category: "accessories", Brand: "nike", Price: 10},
	} {
		p := p
		require.NoError(t, s.CreateProduct(ctx, &p))
	}

	products, err := s.ListProducts(ctx, store.ProductFilter{
		Categories: []string{"footwear"},
		SortBy:     store.SortPriceHighToLow,
	})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "A shoe", products[0].Title)

	found, err := s.SearchProducts(ctx, "NIKE")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

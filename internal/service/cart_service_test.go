package service

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAddToCartCreatesAndIncrements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 100, 80, 10)

	cart, err := env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "Runner", cart.Items[0].Title)
	assert.Equal(t, 80.0, cart.Items[0].SalePrice)

	cart, err = env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddToCartValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.carts.AddToCart(ctx, "u1", primitive.NewObjectID().Hex(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.carts.AddToCart(ctx, "u1", "garbage", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	p := env.product(t, "Cap", 10, 0, 1)
	_, err = env.carts.AddToCart(ctx, "", p.ID.Hex(), 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetCartDropsDeletedProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	keep := env.product(t, "Keep", 10, 0, 5)
	gone := env.product(t, "Gone", 10, 0, 5)

	_, err := env.carts.AddToCart(ctx, "u1", keep.ID.Hex(), 1)
	require.NoError(t, err)
	_, err = env.carts.AddToCart(ctx, "u1", gone.ID.Hex(), 1)
	require.NoError(t, err)

	require.NoError(t, env.store.DeleteProduct(ctx, gone.ID))

	view, err := env.carts.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, keep.ID, view.Items[0].ProductID)

	// The pruned cart was persisted
	stored, err := env.store.GetCartByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestGetCartMissing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.carts.GetCart(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 10, 0, 5)
	other := env.product(t, "Other", 10, 0, 5)

	_, err := env.carts.UpdateQuantity(ctx, "u1", p.ID.Hex(), 2)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.carts.AddToCart(ctx, "u1", p.ID.Hex(), 1)
	require.NoError(t, err)

	cart, err := env.carts.UpdateQuantity(ctx, "u1", p.ID.Hex(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	_, err = env.carts.UpdateQuantity(ctx, "u1", other.ID.Hex(), 4)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.carts.RemoveFromCart(ctx, "u1", other.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)

	cart, err = env.carts.RemoveFromCart(ctx, "u1", p.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

// racingCarts simulates another writer committing between read and write
type racingCarts struct {
	CartStore
	conflicts int
}

func (r *racingCarts) UpdateCartItems(ctx context.Context, cart *models.Cart) error {
	if r.conflicts > 0 {
		r.conflicts--
		return store.ErrVersionConflict
	}
	return r.CartStore.UpdateCartItems(ctx, cart)
}

func TestCartWriteRetriesOnVersionConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Runner", 10, 0, 5)

	carts := &racingCarts{CartStore: env.store, conflicts: 2}
	svc := NewCartService(carts, env.store)

	cart, err := svc.AddToCart(ctx, "u1", p.ID.Hex(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Zero(t, carts.conflicts)

	carts.conflicts = cartWriteAttempts
	_, err = svc.AddToCart(ctx, "u1", p.ID.Hex(), 1)
	assert.ErrorIs(t, err, ErrCartConflict)
}

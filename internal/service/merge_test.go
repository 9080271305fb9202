package service

import (
	"context"
	"testing"

	"storefront/internal/guestcart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMergeMovesGuestItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.product(t, "A", 10, 0, 5)
	b := env.product(t, "B", 20, 0, 5)

	_, err := env.carts.AddToCart(ctx, "u1", a.ID.Hex(), 1)
	require.NoError(t, err)

	guest := guestcart.New(guestcart.NewMemoryBackend(), guestcart.DefaultKey)
	require.NoError(t, guest.Add(a.ID.Hex(), 2))
	require.NoError(t, guest.Add(b.ID.Hex(), 1))

	cart, err := env.merger.Merge(ctx, "u1", guest)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 1, cart.Items[1].Quantity)
	assert.False(t, guest.HasItems())
}

func TestMergeFailureKeepsGuestCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.product(t, "A", 10, 0, 5)

	guest := guestcart.New(guestcart.NewMemoryBackend(), guestcart.DefaultKey)
	require.NoError(t, guest.Add(a.ID.Hex(), 1))
	require.NoError(t, guest.Add(primitive.NewObjectID().Hex(), 1))

	_, err := env.merger.Merge(ctx, "u1", guest)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, guest.Get(), 2)

	// the line merged before the failure stays in the server cart
	cart, err := env.carts.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestMergeEmptyGuestCart(t *testing.T) {
	env := newTestEnv(t)
	guest := guestcart.New(guestcart.NewMemoryBackend(), guestcart.DefaultKey)

	cart, err := env.merger.Merge(context.Background(), "u1", guest)
	require.NoError(t, err)
	assert.Equal(t, "u1", cart.UserID)
	assert.Empty(t, cart.Items)
}

package store

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const testMongoURI = "mongodb://localhost:27017"

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), ErrNotFound)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translate(dup), ErrDuplicate)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestSortFor(t *testing.T) {
	tests := []struct {
		sortBy string
		want   bson.D
	}{
		{"", bson.D{{Key: "price", Value: 1}}},
		{SortPriceLowToHigh, bson.D{{Key: "price", Value: 1}}},
		{SortPriceHighToLow, bson.D{{Key: "price", Value: -1}}},
		{SortTitleAToZ, bson.D{{Key: "title", Value: 1}}},
		{SortTitleZToA, bson.D{{Key: "title", Value: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			assert.Equal(t, tt.want, sortFor(tt.sortBy))
		})
	}
}

func TestDecrementStock(t *testing.T) {
	t.Skip("Integration test - requires database")

	ctx := context.Background()
	store, err := NewStore(ctx, testMongoURI, "storefront_test")
	require.NoError(t, err)
	defer store.Close(ctx)

	product := &models.Product{Title: "Runner", Price: 80, TotalStock: 3}
	require.NoError(t, store.CreateProduct(ctx, product))

	err = store.DecrementStock(ctx, product.ID, 5)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	require.NoError(t, store.DecrementStock(ctx, product.ID, 3))
	retrieved, err := store.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, retrieved.TotalStock)
}

func TestCartVersioning(t *testing.T) {
	t.Skip("Integration test - requires database")

	ctx := context.Background()
	store, err := NewStore(ctx, testMongoURI, "storefront_test")
	require.NoError(t, err)
	defer store.Close(ctx)

	cart := &models.Cart{UserID: "user-versioning"}
	require.NoError(t, store.CreateCart(ctx, cart))
	defer store.DeleteCart(ctx, cart.ID)

	stale := *cart
	require.NoError(t, store.UpdateCartItems(ctx, cart))
	assert.Equal(t, int64(2), cart.Version)

	// Second write with the old version must lose
	err = store.UpdateCartItems(ctx, &stale)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestIdempotencyKeyLookup(t *testing.T) {
	t.Skip("Integration test - requires database")

	ctx := context.Background()
	store, err := NewStore(ctx, testMongoURI, "storefront_test")
	require.NoError(t, err)
	defer store.Close(ctx)

	order := &models.Order{UserID: "user-1", IdempotencyKey: "idempotent-key-456"}
	require.NoError(t, store.CreateOrder(ctx, order))

	found, err := store.GetOrderByIdempotencyKey(ctx, "idempotent-key-456")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	dup := &models.Order{UserID: "user-1", IdempotencyKey: "idempotent-key-456"}
	assert.ErrorIs(t, store.CreateOrder(ctx, dup), ErrDuplicate)

	missing, err := store.GetOrderByIdempotencyKey(ctx, "never-used")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

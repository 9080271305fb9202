package checkout

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seed(t *testing.T, s *memstore.Store, p models.Product) *models.Product {
	t.Helper()
	require.NoError(t, s.CreateProduct(context.Background(), &p))
	return &p
}

func TestValidateStockShortage(t *testing.T) {
	s := memstore.New()
	short := seed(t, s, models.Product{Title: "Short", Price: 10, TotalStock: 3})
	ok := seed(t, s, models.Product{Title: "Plenty", Price: 25, TotalStock: 10})

	v := NewValidator(s, 0, 0)
	res, err := v.Validate(context.Background(), []Line{
		{ProductID: short.ID.Hex(), Quantity: 5},
		{ProductID: ok.ID.Hex(), Quantity: 2},
	})
	require.NoError(t, err)

	assert.False(t, res.OK())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].AvailableStock)
	assert.Equal(t, 5, res.Errors[0].RequestedQuantity)
	assert.Equal(t, "Short", res.Errors[0].Title)

	require.Len(t, res.Items, 1)
	assert.Equal(t, 50.0, res.TotalAmount)
}

func TestValidateUsesCatalogPrice(t *testing.T) {
	s := memstore.New()
	p := seed(t, s, models.Product{Title: "Sale", Price: 100, SalePrice: 80, TotalStock: 5})

	v := NewValidator(s, 0, 0)
	res, err := v.Validate(context.Background(), []Line{{ProductID: p.ID.Hex(), Quantity: 2}})
	require.NoError(t, err)

	require.True(t, res.OK())
	assert.Equal(t, 80.0, res.Items[0].Price)
	assert.Equal(t, 160.0, res.TotalAmount)

	items := res.OrderItems()
	require.Len(t, items, 1)
	assert.Equal(t, p.ID, items[0].ProductID)
}

func TestValidateAccumulatesAllErrors(t *testing.T) {
	s := memstore.New()
	v := NewValidator(s, 0, 0)

	res, err := v.Validate(context.Background(), []Line{
		{ProductID: "not-an-id", Quantity: 1},
		{ProductID: primitive.NewObjectID().Hex(), Quantity: 1},
	})
	require.NoError(t, err)
	assert.Len(t, res.Errors, 2)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.TotalAmount)
}

func TestValidateEmptyCart(t *testing.T) {
	v := NewValidator(memstore.New(), 0, 0)

	_, err := v.Validate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSanitize(t *testing.T) {
	got := Sanitize([]Line{
		{ProductID: "  abc ", Quantity: 0},
		{ProductID: "def", Quantity: 5000},
		{ProductID: "ghi", Quantity: 7},
	})

	assert.Equal(t, []Line{
		{ProductID: "abc", Quantity: 1},
		{ProductID: "def", Quantity: 999},
		{ProductID: "ghi", Quantity: 7},
	}, got)
}

func TestCheckSize(t *testing.T) {
	v := NewValidator(memstore.New(), 2, 10)

	assert.NoError(t, v.CheckSize([]Line{{"a", 5}, {"b", 5}}))
	assert.ErrorIs(t, v.CheckSize([]Line{{"a", 1}, {"b", 1}, {"c", 1}}), ErrCartTooLarge)
	assert.ErrorIs(t, v.CheckSize([]Line{{"a", 6}, {"b", 5}}), ErrCartTooLarge)
}

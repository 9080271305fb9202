package service

import (
	"context"
	"testing"

	"storefront/internal/store"
	"storefront/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestCatalogAddEditDelete(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalogService(memstore.New())

	p, err := catalog.AddProduct(ctx, &ProductInput{
		Title:      strPtr("Trail Runner"),
		Category:   strPtr("footwear"),
		Brand:      strPtr("nike"),
		Price:      floatPtr(120),
		SalePrice:  floatPtr(99),
		TotalStock: intPtr(4),
	})
	require.NoError(t, err)

	// nil fields keep their values, explicit zero resets
	edited, err := catalog.EditProduct(ctx, p.ID.Hex(), &ProductInput{SalePrice: floatPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, "Trail Runner", edited.Title)
	assert.Equal(t, 120.0, edited.Price)
	assert.Zero(t, edited.SalePrice)
	assert.Equal(t, 4, edited.TotalStock)

	_, err = catalog.EditProduct(ctx, p.ID.Hex(), &ProductInput{TotalStock: intPtr(-1)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, catalog.DeleteProduct(ctx, p.ID.Hex()))
	_, err = catalog.GetProduct(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogListAndSearch(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalogService(memstore.New())

	for _, in := range []*ProductInput{
		{Title: strPtr("Oxford"), Category: strPtr("footwear"), Brand: strPtr("clarks"), Price: floatPtr(90)},
		{Title: strPtr("Hoodie"), Category: strPtr("men"), Brand: strPtr("nike"), Price: floatPtr(60)},
		{Title: strPtr("Runner"), Category: strPtr("footwear"), Brand: strPtr("nike"), Price: floatPtr(120)},
	} {
		_, err := catalog.AddProduct(ctx, in)
		require.NoError(t, err)
	}

	products, err := catalog.ListProducts(ctx, ParseProductFilter("footwear", "", store.SortPriceHighToLow))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Runner", products[0].Title)

	products, err = catalog.ListProducts(ctx, ParseProductFilter(" footwear , men", "nike", ""))
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = catalog.Search(ctx, "NIKE")
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = catalog.Search(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = catalog.AddProduct(ctx, &ProductInput{Price: floatPtr(1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddressLifecycle(t *testing.T) {
	ctx := context.Background()
	addresses := NewAddressService(memstore.New())

	_, err := addresses.AddAddress(ctx, &AddressRequest{UserID: "u1", Address: "1 Main"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	addr, err := addresses.AddAddress(ctx, &AddressRequest{
		UserID: "u1", Address: "1 Main", City: "Springfield", Pincode: "123", Phone: "555", Notes: "gate",
	})
	require.NoError(t, err)

	updated, err := addresses.UpdateAddress(ctx, "u1", addr.ID.Hex(), &AddressRequest{City: "Shelbyville"})
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", updated.City)
	assert.Equal(t, "1 Main", updated.Address)

	_, err = addresses.UpdateAddress(ctx, "u2", addr.ID.Hex(), &AddressRequest{City: "X"})
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := addresses.ListAddresses(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, addresses.DeleteAddress(ctx, "u1", addr.ID.Hex()))
	list, err = addresses.ListAddresses(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFeatures(t *testing.T) {
	ctx := context.Background()
	features := NewFeatureService(memstore.New())

	_, err := features.AddFeature(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = features.AddFeature(ctx, "https://cdn/banner.png")
	require.NoError(t, err)
	list, err := features.ListFeatures(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

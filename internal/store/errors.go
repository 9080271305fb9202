package store

import "errors"

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when a conditional stock decrement does not match
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrVersionConflict is returned when a cart write is based on a stale version
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicate is returned when a unique index rejects an insert
	ErrDuplicate = errors.New("duplicate")
)

// ProductFilter narrows and orders shop product listings
type ProductFilter struct {
	Categories []string
	Brands     []string
	SortBy     string
}

// Product listing sort keys
const (
	SortPriceLowToHigh = "price-lowtohigh"
	SortPriceHighToLow = "price-hightolow"
	SortTitleAToZ      = "title-atoz"
	SortTitleZToA      = "title-ztoa"
)

// AddressUpdate carries the editable address fields; empty strings are left unchanged
type AddressUpdate struct {
	Address string
	City    string
	Pincode string
	Phone   string
	Notes   string
}

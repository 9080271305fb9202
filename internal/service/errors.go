package service

import (
	"errors"
	"fmt"

	"storefront/internal/store"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartConflict      = errors.New("cart was modified concurrently")
	ErrCaptureInProgress = errors.New("capture already in progress")
	ErrOrderNotPending   = errors.New("order is no longer pending")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// storeErr lifts store sentinels into the service taxonomy
func storeErr(what string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound(what)
	case errors.Is(err, store.ErrInsufficientStock):
		return fmt.Errorf("%w: %s", ErrInsufficientStock, what)
	case errors.Is(err, store.ErrVersionConflict):
		return fmt.Errorf("%w: %s", ErrCartConflict, what)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

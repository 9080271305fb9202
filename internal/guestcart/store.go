// Package guestcart keeps the cart of a shopper who has not logged in yet.
//
// A Store is bound to one storage key. Entries expire 30 days after they were
// first added and are purged lazily whenever the cart is read. Every
// operation is synchronous; storage failures are logged and degrade to an
// empty cart or a no-op instead of propagating.
package guestcart

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/util"

	"go.uber.org/zap"
)

// DefaultKey is the storage key used by browser-style single cart clients
const DefaultKey = "guest_cart"

const (
	DefaultMaxItems    = 50
	DefaultMaxQuantity = 100
	DefaultExpiry      = 30 * 24 * time.Hour
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrTooManyItems    = errors.New("guest cart product limit reached")
	ErrQuantityLimit   = errors.New("guest cart quantity limit reached")
)

// Backend persists the encoded cart. Load returns nil, nil when nothing is stored.
type Backend interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}

// Item is one guest cart entry. AddedAt is unix milliseconds.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	AddedAt   int64  `json:"addedAt"`
}

// Limits bounds the size and age of a guest cart
type Limits struct {
	MaxItems    int
	MaxQuantity int
	Expiry      time.Duration
}

// DefaultLimits returns 50 products, 100 units, 30 days
func DefaultLimits() Limits {
	return Limits{
		MaxItems:    DefaultMaxItems,
		MaxQuantity: DefaultMaxQuantity,
		Expiry:      DefaultExpiry,
	}
}

type Option func(*Store)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLimits overrides the default caps; zero fields keep their defaults
func WithLimits(l Limits) Option {
	return func(s *Store) {
		if l.MaxItems > 0 {
			s.limits.MaxItems = l.MaxItems
		}
		if l.MaxQuantity > 0 {
			s.limits.MaxQuantity = l.MaxQuantity
		}
		if l.Expiry > 0 {
			s.limits.Expiry = l.Expiry
		}
	}
}

type Store struct {
	mu       sync.Mutex
	registry *Registry
	backend  Backend
	key      string
	limits   Limits
	now      func() time.Time
	logger   *zap.Logger
}

// New binds a store to key on backend
func New(backend Backend, key string, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		key:     key,
		limits:  DefaultLimits(),
		now:     time.Now,
		logger:  util.GetLogger().With(zap.String("guest_cart_key", key)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the non-expired items, persisting the pruned list when
// anything expired.
func (s *Store) Get() []Item {
	defer s.lock()()

	return s.load()
}

// Add increments an existing entry or appends a new one stamped with the
// current time. Exceeding either cap rejects the whole add.
func (s *Store) Add(productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	defer s.lock()()

	items := s.load()
	idx := indexOf(items, productID)

	if idx < 0 && len(items) >= s.limits.MaxItems {
		return fmt.Errorf("%w: at most %d different products", ErrTooManyItems, s.limits.MaxItems)
	}
	if total(items)+quantity > s.limits.MaxQuantity {
		return fmt.Errorf("%w: at most %d items in total", ErrQuantityLimit, s.limits.MaxQuantity)
	}

	if idx >= 0 {
		items[idx].Quantity += quantity
	} else {
		items = append(items, Item{
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   s.now().UnixMilli(),
		})
	}

	if err := s.save(items); err != nil {
		return err
	}
	return nil
}

// Update sets the quantity of productID; quantity <= 0 removes the entry
func (s *Store) Update(productID string, quantity int) {
	defer s.lock()()

	items := s.load()
	idx := indexOf(items, productID)
	if idx < 0 {
		return
	}

	if quantity <= 0 {
		items = append(items[:idx], items[idx+1:]...)
	} else {
		items[idx].Quantity = quantity
	}
	_ = s.save(items)
}

// Remove deletes the entry for productID
func (s *Store) Remove(productID string) {
	s.Update(productID, 0)
}

// Clear deletes the whole cart
func (s *Store) Clear() {
	defer s.lock()()

	if err := s.backend.Delete(s.key); err != nil {
		s.logger.Error("Failed to clear guest cart", zap.Error(err))
	}
}

// Count sums the quantities of all live entries
func (s *Store) Count() int {
	return total(s.Get())
}

// HasItems reports whether any live entry exists
func (s *Store) HasItems() bool {
	return len(s.Get()) > 0
}

// lock serializes work on the key, across processes when the backend
// supports it. A backend lock failure is logged and the local lock alone
// is kept.
func (s *Store) lock() func() {
	var unlock func()
	if s.registry != nil {
		unlock = s.registry.lock(s.key)
	} else {
		s.mu.Lock()
		unlock = s.mu.Unlock
	}

	locker, ok := s.backend.(KeyLocker)
	if !ok {
		return unlock
	}
	release, err := locker.Lock(s.key)
	if err != nil {
		s.logger.Warn("Guest cart lock unavailable", zap.Error(err))
		return unlock
	}
	return func() {
		release()
		unlock()
	}
}

func (s *Store) load() []Item {
	data, err := s.backend.Load(s.key)
	if err != nil {
		s.logger.Error("Failed to load guest cart", zap.Error(err))
		return []Item{}
	}
	if len(data) == 0 {
		return []Item{}
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("Discarding unreadable guest cart", zap.Error(err))
		return []Item{}
	}

	cutoff := s.now().Add(-s.limits.Expiry).UnixMilli()
	live := make([]Item, 0, len(items))
	for _, item := range items {
		if item.AddedAt >= cutoff && item.Quantity > 0 {
			live = append(live, item)
		}
	}

	if len(live) != len(items) {
		s.logger.Debug("Purged expired guest cart entries", zap.Int("purged", len(items)-len(live)))
		_ = s.save(live)
	}
	return live
}

func (s *Store) save(items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := s.backend.Save(s.key, data); err != nil {
		s.logger.Error("Failed to save guest cart", zap.Error(err))
		return fmt.Errorf("save guest cart: %w", err)
	}
	return nil
}

func indexOf(items []Item, productID string) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func total(items []Item) int {
	sum := 0
	for _, item := range items {
		sum += item.Quantity
	}
	return sum
}

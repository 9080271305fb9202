// Package memstore keeps the document store in process memory. It backs
// local development with STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is a mutex-guarded in-memory document store
type Store struct {
	mu        sync.RWMutex
	products  map[primitive.ObjectID]models.Product
	carts     map[primitive.ObjectID]models.Cart
	orders    map[primitive.ObjectID]models.Order
	addresses map[primitive.ObjectID]models.Address
	users     map[primitive.ObjectID]models.User
	features  []models.Feature

	now func() time.Time
}

// New returns an empty store
func New() *Store {
	return &Store{
		products:  make(map[primitive.ObjectID]models.Product),
		carts:     make(map[primitive.ObjectID]models.Cart),
		orders:    make(map[primitive.ObjectID]models.Order),
		addresses: make(map[primitive.ObjectID]models.Address),
		users:     make(map[primitive.ObjectID]models.User),
		now:       time.Now,
	}
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *Store) Close(ctx context.Context) error {
	return nil
}

// Products

func (s *Store) GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id.Hex(), store.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := []models.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := []models.Product{}
	for _, p := range s.products {
		if len(filter.Categories) > 0 && !contains(filter.Categories, p.Category) {
			continue
		}
		if len(filter.Brands) > 0 && !contains(filter.Brands, p.Brand) {
			continue
		}
		products = append(products, p)
	}

	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch filter.SortBy {
		case store.SortPriceHighToLow:
			return a.Price > b.Price
		case store.SortTitleAToZ:
			return a.Title < b.Title
		case store.SortTitleZToA:
			return a.Title > b.Title
		default:
			return a.Price < b.Price
		}
	})
	return products, nil
}

func (s *Store) SearchProducts(ctx context.Context, keyword string) ([]models.Product, error) {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(keyword))
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	products := []models.Product{}
	for _, p := range s.products {
		if re.MatchString(p.Title) || re.MatchString(p.Description) ||
			re.MatchString(p.Category) || re.MatchString(p.Brand) {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Title < products[j].Title })
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = *product
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return fmt.Errorf("product %s: %w", product.ID.Hex(), store.ErrNotFound)
	}
	product.UpdatedAt = s.now()
	s.products[product.ID] = *product
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id.Hex(), store.ErrNotFound)
	}
	delete(s.products, id)
	return nil
}

func (s *Store) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id.Hex(), store.ErrNotFound)
	}
	if p.TotalStock < quantity {
		return fmt.Errorf("product %s: %w", id.Hex(), store.ErrInsufficientStock)
	}
	p.TotalStock -= quantity
	p.UpdatedAt = s.now()
	s.products[id] = p
	return nil
}

func (s *Store) IncrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id.Hex(), store.ErrNotFound)
	}
	p.TotalStock += quantity
	p.UpdatedAt = s.now()
	s.products[id] = p
	return nil
}

// Carts

func (s *Store) GetCartByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.carts {
		if c.UserID == userID {
			return copyCart(c), nil
		}
	}
	return nil, fmt.Errorf("cart for user %s: %w", userID, store.ErrNotFound)
}

func (s *Store) GetCartByID(ctx context.Context, id primitive.ObjectID) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[id]
	if !ok {
		return nil, fmt.Errorf("cart %s: %w", id.Hex(), store.ErrNotFound)
	}
	return copyCart(c), nil
}

func (s *Store) CreateCart(ctx context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.carts {
		if c.UserID == cart.UserID {
			return fmt.Errorf("cart for user %s: %w", cart.UserID, store.ErrDuplicate)
		}
	}

	now := s.now()
	cart.ID = primitive.NewObjectID()
	cart.Version = 1
	cart.CreatedAt = now
	cart.UpdatedAt = now
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	s.carts[cart.ID] = *copyCart(*cart)
	return nil
}

func (s *Store) UpdateCartItems(ctx context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.carts[cart.ID]
	if !ok || stored.Version != cart.Version {
		return fmt.Errorf("cart %s at version %d: %w", cart.ID.Hex(), cart.Version, store.ErrVersionConflict)
	}

	cart.Version++
	cart.UpdatedAt = s.now()
	stored.Items = append([]models.CartItem{}, cart.Items...)
	stored.Version = cart.Version
	stored.UpdatedAt = cart.UpdatedAt
	s.carts[cart.ID] = stored
	return nil
}

func (s *Store) DeleteCart(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[id]; !ok {
		return fmt.Errorf("cart %s: %w", id.Hex(), store.ErrNotFound)
	}
	delete(s.carts, id)
	return nil
}

func (s *Store) DeleteCartByUserID(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.carts {
		if c.UserID == userID {
			delete(s.carts, id)
			return nil
		}
	}
	return fmt.Errorf("cart for user %s: %w", userID, store.ErrNotFound)
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.IdempotencyKey != "" {
		for _, o := range s.orders {
			if o.IdempotencyKey == order.IdempotencyKey {
				return fmt.Errorf("idempotency key %s: %w", order.IdempotencyKey, store.ErrDuplicate)
			}
		}
	}

	order.ID = primitive.NewObjectID()
	s.orders[order.ID] = *copyOrder(*order)
	return nil
}

func (s *Store) GetOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), store.ErrNotFound)
	}
	return copyOrder(o), nil
}

func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.IdempotencyKey == key {
			return copyOrder(o), nil
		}
	}
	return nil, nil
}

func (s *Store) ListOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	return s.listOrders(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.listOrders(func(models.Order) bool { return true }), nil
}

func (s *Store) listOrders(keep func(models.Order) bool) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := []models.Order{}
	for _, o := range s.orders {
		if keep(o) {
			orders = append(orders, *copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderDate.After(orders[j].OrderDate) })
	return orders
}

func (s *Store) SaveOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return fmt.Errorf("order %s: %w", order.ID.Hex(), store.ErrNotFound)
	}
	s.orders[order.ID] = *copyOrder(*order)
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id.Hex(), store.ErrNotFound)
	}
	o.OrderStatus = status
	o.OrderUpdateDate = s.now()
	s.orders[id] = o
	return nil
}

// Addresses

func (s *Store) CreateAddress(ctx context.Context, addr *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	addr.ID = primitive.NewObjectID()
	addr.CreatedAt = now
	addr.UpdatedAt = now
	s.addresses[addr.ID] = *addr
	return nil
}

func (s *Store) ListAddressesByUserID(ctx context.Context, userID string) ([]models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addresses := []models.Address{}
	for _, a := range s.addresses {
		if a.UserID == userID {
			addresses = append(addresses, a)
		}
	}
	sort.Slice(addresses, func(i, j int) bool { return addresses[i].CreatedAt.Before(addresses[j].CreatedAt) })
	return addresses, nil
}

func (s *Store) UpdateAddress(ctx context.Context, userID string, id primitive.ObjectID, update store.AddressUpdate) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.addresses[id]
	if !ok || a.UserID != userID {
		return nil, fmt.Errorf("address %s: %w", id.Hex(), store.ErrNotFound)
	}
	setIf(&a.Address, update.Address)
	setIf(&a.City, update.City)
	setIf(&a.Pincode, update.Pincode)
	setIf(&a.Phone, update.Phone)
	setIf(&a.Notes, update.Notes)
	a.UpdatedAt = s.now()
	s.addresses[id] = a
	return &a, nil
}

func (s *Store) DeleteAddress(ctx context.Context, userID string, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.addresses[id]
	if !ok || a.UserID != userID {
		return fmt.Errorf("address %s: %w", id.Hex(), store.ErrNotFound)
	}
	delete(s.addresses, id)
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("user %s: %w", user.Email, store.ErrDuplicate)
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = s.now()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
}

func (s *Store) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), store.ErrNotFound)
	}
	return &u, nil
}

// Features

func (s *Store) CreateFeature(ctx context.Context, feature *models.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	feature.ID = primitive.NewObjectID()
	feature.CreatedAt = s.now()
	s.features = append(s.features, *feature)
	return nil
}

func (s *Store) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Feature{}, s.features...), nil
}

func copyCart(c models.Cart) *models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	return &c
}

func copyOrder(o models.Order) *models.Order {
	o.CartItems = append([]models.OrderItem{}, o.CartItems...)
	return &o
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const cartWriteAttempts = 3

// CartService manages the per-user server cart
type CartService struct {
	carts    CartStore
	products ProductStore
	logger   *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(carts CartStore, products ProductStore) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		logger:   util.GetLogger(),
	}
}

// AddToCart adds quantity of productID, creating the cart on first use
func (s *CartService) AddToCart(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" || quantity < 1 {
		return nil, invalid("userId, productId and a positive quantity are required")
	}
	pid, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}

	if _, err := s.products.GetProductByID(ctx, pid); err != nil {
		s.count("add", err)
		return nil, storeErr("product", err)
	}

	cart, err := s.mutate(ctx, userID, true, func(cart *models.Cart) error {
		if idx := cart.FindItem(pid); idx >= 0 {
			cart.Items[idx].Quantity += quantity
		} else {
			cart.Items = append(cart.Items, models.CartItem{ProductID: pid, Quantity: quantity})
		}
		return nil
	})
	s.count("add", err)
	if err != nil {
		util.RecordSpanError(span, err)
		return nil, err
	}

	s.logger.Debug("Item added to cart",
		zap.String("user_id", userID),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity))
	return s.view(ctx, cart)
}

// GetCart returns the cart joined with live product fields. Lines whose
// product was deleted are dropped and the pruned cart is persisted.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, invalid("user ID is required")
	}

	cart, err := s.carts.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, storeErr("cart", err)
	}
	return s.view(ctx, cart)
}

// UpdateQuantity sets the quantity of an existing line
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity")
	defer span.End()

	if strings.TrimSpace(userID) == "" || quantity < 1 {
		return nil, invalid("userId, productId and a positive quantity are required")
	}
	pid, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.mutate(ctx, userID, false, func(cart *models.Cart) error {
		idx := cart.FindItem(pid)
		if idx < 0 {
			return notFound("product not found in cart")
		}
		cart.Items[idx].Quantity = quantity
		return nil
	})
	s.count("update", err)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// RemoveFromCart deletes the line for productID
func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID string) (*models.CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveFromCart")
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, invalid("userId and productId are required")
	}
	pid, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.mutate(ctx, userID, false, func(cart *models.Cart) error {
		idx := cart.FindItem(pid)
		if idx < 0 {
			return notFound("product not found in cart")
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
	s.count("remove", err)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// mutate runs fn against the latest cart and writes it back with a version
// check, retrying on conflicts.
func (s *CartService) mutate(ctx context.Context, userID string, create bool, fn func(*models.Cart) error) (*models.Cart, error) {
	for attempt := 1; attempt <= cartWriteAttempts; attempt++ {
		cart, err := s.loadCart(ctx, userID, create)
		if err != nil {
			return nil, err
		}

		if err := fn(cart); err != nil {
			return nil, err
		}

		err = s.carts.UpdateCartItems(ctx, cart)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to save cart: %w", err)
		}

		util.CartVersionConflictsTotal.Inc()
		s.logger.Warn("Cart version conflict, retrying",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrCartConflict, cartWriteAttempts)
}

func (s *CartService) loadCart(ctx context.Context, userID string, create bool) (*models.Cart, error) {
	cart, err := s.carts.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrNotFound) || !create {
		return nil, storeErr("cart", err)
	}

	cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	err = s.carts.CreateCart(ctx, cart)
	if errors.Is(err, store.ErrDuplicate) {
		// created concurrently by another request
		cart, err = s.carts.GetCartByUserID(ctx, userID)
	}
	if err != nil {
		return nil, storeErr("cart", err)
	}
	return cart, nil
}

func (s *CartService) view(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	kept := make([]models.CartItem, 0, len(cart.Items))
	lines := make([]models.CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		kept = append(kept, item)
		lines = append(lines, models.CartLine{
			ProductID: p.ID,
			Image:     p.Image,
			Title:     p.Title,
			Price:     p.Price,
			SalePrice: p.SalePrice,
			Quantity:  item.Quantity,
		})
	}

	if len(kept) < len(cart.Items) {
		s.logger.Info("Dropping cart lines for deleted products",
			zap.String("user_id", cart.UserID),
			zap.Int("dropped", len(cart.Items)-len(kept)))
		cart.Items = kept
		if err := s.carts.UpdateCartItems(ctx, cart); err != nil {
			// the next read prunes again
			s.logger.Warn("Failed to persist pruned cart", zap.String("user_id", cart.UserID), zap.Error(err))
		}
	}

	return &models.CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     lines,
		Version:   cart.Version,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}, nil
}

func (s *CartService) count(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	util.CartOperationsTotal.WithLabelValues(operation, result).Inc()
}

func parseProductID(productID string) (primitive.ObjectID, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return primitive.NilObjectID, invalid("productId is required")
	}
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return primitive.NilObjectID, invalid("malformed productId %q", productID)
	}
	return id, nil
}

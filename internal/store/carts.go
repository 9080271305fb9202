package store

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetCartByUserID retrieves the cart owned by userID
func (s *Store) GetCartByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.Collection(collCarts).FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err != nil {
		return nil, fmt.Errorf("cart for user %s: %w", userID, translate(err))
	}
	return &cart, nil
}

// GetCartByID retrieves a cart by ID
func (s *Store) GetCartByID(ctx context.Context, id primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.Collection(collCarts).FindOne(ctx, bson.M{"_id": id}).Decode(&cart)
	if err != nil {
		return nil, fmt.Errorf("cart %s: %w", id.Hex(), translate(err))
	}
	return &cart, nil
}

// CreateCart inserts a new cart at version 1. A second cart for the same
// user fails with ErrDuplicate.
func (s *Store) CreateCart(ctx context.Context, cart *models.Cart) error {
	now := s.now()
	cart.ID = primitive.NewObjectID()
	cart.Version = 1
	cart.CreatedAt = now
	cart.UpdatedAt = now
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}

	_, err := s.db.Collection(collCarts).InsertOne(ctx, cart)
	return translate(err)
}

// UpdateCartItems writes cart.Items if the stored version still equals
// cart.Version, then advances cart.Version.
func (s *Store) UpdateCartItems(ctx context.Context, cart *models.Cart) error {
	now := s.now()
	res, err := s.db.Collection(collCarts).UpdateOne(ctx,
		bson.M{"_id": cart.ID, "version": cart.Version},
		bson.M{
			"$set": bson.M{"items": cart.Items, "updatedAt": now},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("cart %s at version %d: %w", cart.ID.Hex(), cart.Version, ErrVersionConflict)
	}

	cart.Version++
	cart.UpdatedAt = now
	return nil
}

// DeleteCart removes a cart by ID
func (s *Store) DeleteCart(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(collCarts).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("cart %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

// DeleteCartByUserID removes the cart owned by userID
func (s *Store) DeleteCartByUserID(ctx context.Context, userID string) error {
	res, err := s.db.Collection(collCarts).DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("cart for user %s: %w", userID, ErrNotFound)
	}
	return nil
}

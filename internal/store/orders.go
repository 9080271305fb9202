package store

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateOrder inserts a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = primitive.NewObjectID()

	_, err := s.db.Collection(collOrders).InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", translate(err))
	}
	return nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.db.Collection(collOrders).FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), translate(err))
	}
	return &order, nil
}

// GetOrderByIdempotencyKey returns nil, nil when no order carries key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.Collection(collOrders).FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&order)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListOrdersByUserID returns a user's orders, newest first
func (s *Store) ListOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	return s.findOrders(ctx, bson.M{"userId": userID})
}

// ListOrders returns every order, newest first
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.findOrders(ctx, bson.M{})
}

func (s *Store) findOrders(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderDate", Value: -1}})
	cur, err := s.db.Collection(collOrders).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveOrder replaces the stored order with order
func (s *Store) SaveOrder(ctx context.Context, order *models.Order) error {
	res, err := s.db.Collection(collOrders).ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("order %s: %w", order.ID.Hex(), ErrNotFound)
	}
	return nil
}

// UpdateOrderStatus sets orderStatus and stamps orderUpdateDate
func (s *Store) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.db.Collection(collOrders).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"orderStatus": status, "orderUpdateDate": s.now()}})
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

package store

import (
	"context"
	"fmt"
	"regexp"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := s.db.Collection(collProducts).FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id.Hex(), translate(err))
	}
	return &product, nil
}

// GetProductsByIDs retrieves the products that still exist among ids
func (s *Store) GetProductsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	cur, err := s.db.Collection(collProducts).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListProducts returns products matching the shop filter
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := bson.M{}
	if len(filter.Categories) > 0 {
		query["category"] = bson.M{"$in": filter.Categories}
	}
	if len(filter.Brands) > 0 {
		query["brand"] = bson.M{"$in": filter.Brands}
	}

	cur, err := s.db.Collection(collProducts).Find(ctx, query, options.Find().SetSort(sortFor(filter.SortBy)))
	if err != nil {
		return nil, err
	}

	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SearchProducts matches keyword case-insensitively against text fields
func (s *Store) SearchProducts(ctx context.Context, keyword string) ([]models.Product, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
	query := bson.M{"$or": bson.A{
		bson.M{"title": re},
		bson.M{"description": re},
		bson.M{"category": re},
		bson.M{"brand": re},
	}}

	cur, err := s.db.Collection(collProducts).Find(ctx, query)
	if err != nil {
		return nil, err
	}

	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct inserts a product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	now := s.now()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.Collection(collProducts).InsertOne(ctx, product)
	return translate(err)
}

// UpdateProduct replaces a product document
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = s.now()

	res, err := s.db.Collection(collProducts).ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", product.ID.Hex(), ErrNotFound)
	}
	return nil
}

// DeleteProduct removes a product
func (s *Store) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(collProducts).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

// DecrementStock subtracts quantity only while enough stock remains
func (s *Store) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	res, err := s.db.Collection(collProducts).UpdateOne(ctx,
		bson.M{"_id": id, "totalStock": bson.M{"$gte": quantity}},
		bson.M{
			"$inc": bson.M{"totalStock": -quantity},
			"$set": bson.M{"updatedAt": s.now()},
		})
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	count, err := s.db.Collection(collProducts).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	return fmt.Errorf("product %s: %w", id.Hex(), ErrInsufficientStock)
}

// IncrementStock gives quantity back to a product
func (s *Store) IncrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	res, err := s.db.Collection(collProducts).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"totalStock": quantity},
			"$set": bson.M{"updatedAt": s.now()},
		})
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

func sortFor(sortBy string) bson.D {
	switch sortBy {
	case SortPriceHighToLow:
		return bson.D{{Key: "price", Value: -1}}
	case SortTitleAToZ:
		return bson.D{{Key: "title", Value: 1}}
	case SortTitleZToA:
		return bson.D{{Key: "title", Value: -1}}
	default:
		return bson.D{{Key: "price", Value: 1}}
	}
}

package store

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateAddress inserts a saved address
func (s *Store) CreateAddress(ctx context.Context, addr *models.Address) error {
	now := s.now()
	addr.ID = primitive.NewObjectID()
	addr.CreatedAt = now
	addr.UpdatedAt = now

	_, err := s.db.Collection(collAddresses).InsertOne(ctx, addr)
	return translate(err)
}

// ListAddressesByUserID returns a user's saved addresses
func (s *Store) ListAddressesByUserID(ctx context.Context, userID string) ([]models.Address, error) {
	cur, err := s.db.Collection(collAddresses).Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}

	addresses := []models.Address{}
	if err := cur.All(ctx, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

// UpdateAddress applies the non-empty fields of update to an address owned by userID
func (s *Store) UpdateAddress(ctx context.Context, userID string, id primitive.ObjectID, update AddressUpdate) (*models.Address, error) {
	set := bson.M{"updatedAt": s.now()}
	for field, val := range map[string]string{
		"address": update.Address,
		"city":    update.City,
		"pincode": update.Pincode,
		"phone":   update.Phone,
		"notes":   update.Notes,
	} {
		if val != "" {
			set[field] = val
		}
	}

	var addr models.Address
	err := s.db.Collection(collAddresses).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&addr)
	if err != nil {
		return nil, fmt.Errorf("address %s: %w", id.Hex(), translate(err))
	}
	return &addr, nil
}

// DeleteAddress removes an address owned by userID
func (s *Store) DeleteAddress(ctx context.Context, userID string, id primitive.ObjectID) error {
	res, err := s.db.Collection(collAddresses).DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("address %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

// CreateUser inserts a user; a taken email fails with ErrDuplicate
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = s.now()

	_, err := s.db.Collection(collUsers).InsertOne(ctx, user)
	return translate(err)
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", email, translate(err))
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), translate(err))
	}
	return &user, nil
}

// CreateFeature inserts a banner image
func (s *Store) CreateFeature(ctx context.Context, feature *models.Feature) error {
	feature.ID = primitive.NewObjectID()
	feature.CreatedAt = s.now()

	_, err := s.db.Collection(collFeatures).InsertOne(ctx, feature)
	return translate(err)
}

// ListFeatures returns all banner images
func (s *Store) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	cur, err := s.db.Collection(collFeatures).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	features := []models.Feature{}
	if err := cur.All(ctx, &features); err != nil {
		return nil, err
	}
	return features, nil
}

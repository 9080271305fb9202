package service

import (
	"context"
	"strings"

	"storefront/internal/models"
	"storefront/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AddressService struct {
	addresses AddressStore
}

func NewAddressService(addresses AddressStore) *AddressService {
	return &AddressService{addresses: addresses}
}

type AddressRequest struct {
	UserID  string `json:"userId"`
	Address string `json:"address"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes"`
}

// AddAddress requires every field
func (s *AddressService) AddAddress(ctx context.Context, req *AddressRequest) (*models.Address, error) {
	for _, v := range []string{req.UserID, req.Address, req.City, req.Pincode, req.Phone, req.Notes} {
		if strings.TrimSpace(v) == "" {
			return nil, invalid("all fields are required")
		}
	}

	addr := &models.Address{
		UserID:  req.UserID,
		Address: req.Address,
		City:    req.City,
		Pincode: req.Pincode,
		Phone:   req.Phone,
		Notes:   req.Notes,
	}
	if err := s.addresses.CreateAddress(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *AddressService) ListAddresses(ctx context.Context, userID string) ([]models.Address, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("user ID is required")
	}
	return s.addresses.ListAddressesByUserID(ctx, userID)
}

func (s *AddressService) UpdateAddress(ctx context.Context, userID, addressID string, req *AddressRequest) (*models.Address, error) {
	id, err := parseAddressID(userID, addressID)
	if err != nil {
		return nil, err
	}

	addr, err := s.addresses.UpdateAddress(ctx, userID, id, store.AddressUpdate{
		Address: req.Address,
		City:    req.City,
		Pincode: req.Pincode,
		Phone:   req.Phone,
		Notes:   req.Notes,
	})
	if err != nil {
		return nil, storeErr("address", err)
	}
	return addr, nil
}

func (s *AddressService) DeleteAddress(ctx context.Context, userID, addressID string) error {
	id, err := parseAddressID(userID, addressID)
	if err != nil {
		return err
	}
	if err := s.addresses.DeleteAddress(ctx, userID, id); err != nil {
		return storeErr("address", err)
	}
	return nil
}

func parseAddressID(userID, addressID string) (primitive.ObjectID, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(addressID) == "" {
		return primitive.NilObjectID, invalid("user and address id is required")
	}
	id, err := primitive.ObjectIDFromHex(addressID)
	if err != nil {
		return primitive.NilObjectID, invalid("malformed address id %q", addressID)
	}
	return id, nil
}

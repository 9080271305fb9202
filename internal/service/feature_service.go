package service

import (
	"context"
	"strings"

	"storefront/internal/models"
)

// FeatureService manages the storefront banner images
type FeatureService struct {
	features FeatureStore
}

func NewFeatureService(features FeatureStore) *FeatureService {
	return &FeatureService{features: features}
}

func (s *FeatureService) AddFeature(ctx context.Context, image string) (*models.Feature, error) {
	if strings.TrimSpace(image) == "" {
		return nil, invalid("image is required")
	}

	feature := &models.Feature{Image: image}
	if err := s.features.CreateFeature(ctx, feature); err != nil {
		return nil, err
	}
	return feature, nil
}

func (s *FeatureService) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	return s.features.ListFeatures(ctx)
}

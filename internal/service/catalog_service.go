package service

import (
	"context"
	"strings"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CatalogService serves shop listings and admin product management
type CatalogService struct {
	products ProductStore
	logger   *zap.Logger
}

func NewCatalogService(products ProductStore) *CatalogService {
	return &CatalogService{products: products, logger: util.GetLogger()}
}

// ProductInput is the admin product payload. Nil fields are left unchanged on edit.
type ProductInput struct {
	Image         *string  `json:"image"`
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	Brand         *string  `json:"brand"`
	Price         *float64 `json:"price"`
	SalePrice     *float64 `json:"salePrice"`
	TotalStock    *int     `json:"totalStock"`
	AverageReview *float64 `json:"averageReview"`
}

func (in *ProductInput) apply(p *models.Product) {
	setString(&p.Image, in.Image)
	setString(&p.Title, in.Title)
	setString(&p.Description, in.Description)
	setString(&p.Category, in.Category)
	setString(&p.Brand, in.Brand)
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.SalePrice != nil {
		p.SalePrice = *in.SalePrice
	}
	if in.TotalStock != nil {
		p.TotalStock = *in.TotalStock
	}
	if in.AverageReview != nil {
		p.AverageReview = *in.AverageReview
	}
}

// ListProducts filters by category and brand and sorts by sortBy
func (s *CatalogService) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	return s.products.ListProducts(ctx, filter)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	pid, err := parseProductID(id)
	if err != nil {
		return nil, err
	}
	product, err := s.products.GetProductByID(ctx, pid)
	if err != nil {
		return nil, storeErr("product", err)
	}
	return product, nil
}

// Search matches keyword against title, description, category and brand
func (s *CatalogService) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, invalid("keyword is required")
	}
	return s.products.SearchProducts(ctx, keyword)
}

func (s *CatalogService) AddProduct(ctx context.Context, in *ProductInput) (*models.Product, error) {
	product := &models.Product{}
	in.apply(product)

	if product.Title == "" || product.Price < 0 || product.TotalStock < 0 {
		return nil, invalid("title is required and price and stock cannot be negative")
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product added", zap.String("product_id", product.ID.Hex()))
	return product, nil
}

func (s *CatalogService) ListAll(ctx context.Context) ([]models.Product, error) {
	return s.products.ListProducts(ctx, store.ProductFilter{})
}

func (s *CatalogService) EditProduct(ctx context.Context, id string, in *ProductInput) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	in.apply(product)
	if product.Price < 0 || product.SalePrice < 0 || product.TotalStock < 0 {
		return nil, invalid("price and stock cannot be negative")
	}
	if err := s.products.UpdateProduct(ctx, product); err != nil {
		return nil, storeErr("product", err)
	}
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	pid, err := parseProductID(id)
	if err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, pid); err != nil {
		return storeErr("product", err)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

// ParseProductFilter reads comma separated category and brand query values
func ParseProductFilter(category, brand, sortBy string) store.ProductFilter {
	return store.ProductFilter{
		Categories: splitCSV(category),
		Brands:     splitCSV(brand),
		SortBy:     sortBy,
	}
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

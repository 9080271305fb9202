package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductStore is the catalog part of the document store
type ProductStore interface {
	GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
	DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error
}

type CartStore interface {
	GetCartByUserID(ctx context.Context, userID string) (*models.Cart, error)
	GetCartByID(ctx context.Context, id primitive.ObjectID) (*models.Cart, error)
	CreateCart(ctx context.Context, cart *models.Cart) error
	UpdateCartItems(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, id primitive.ObjectID) error
	DeleteCartByUserID(ctx context.Context, userID string) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status string) error
}

type AddressStore interface {
	CreateAddress(ctx context.Context, addr *models.Address) error
	ListAddressesByUserID(ctx context.Context, userID string) ([]models.Address, error)
	UpdateAddress(ctx context.Context, userID string, id primitive.ObjectID, update store.AddressUpdate) (*models.Address, error)
	DeleteAddress(ctx context.Context, userID string, id primitive.ObjectID) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type FeatureStore interface {
	CreateFeature(ctx context.Context, feature *models.Feature) error
	ListFeatures(ctx context.Context) ([]models.Feature, error)
}

// Locker serializes work on one key across processes. An empty token
// means the lock is held by someone else.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// PaymentLedger records provider payments
type PaymentLedger interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	UpdatePaymentStatus(ctx context.Context, orderID, status, providerTxID string) error
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

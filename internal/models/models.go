package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the catalog entry and the source of truth for price and stock
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Image         string             `bson:"image" json:"image"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description" json:"description"`
	Category      string             `bson:"category" json:"category"`
	Brand         string             `bson:"brand" json:"brand"`
	Price         float64            `bson:"price" json:"price"`
	SalePrice     float64            `bson:"salePrice" json:"salePrice"`
	TotalStock    int                `bson:"totalStock" json:"totalStock"`
	AverageReview float64            `bson:"averageReview" json:"averageReview"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UnitPrice returns the price a buyer pays for one unit
func (p *Product) UnitPrice() float64 {
	if p.SalePrice > 0 {
		return p.SalePrice
	}
	return p.Price
}

// CartItem is one line of a server cart
type CartItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Cart is the per-user server cart. Version increases on every write.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string             `bson:"userId" json:"userId"`
	Items     []CartItem         `bson:"items" json:"items"`
	Version   int64              `bson:"version" json:"version"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FindItem returns the index of the line for productID, or -1
func (c *Cart) FindItem(productID primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// CartLine is a cart line joined with live product fields
type CartLine struct {
	ProductID primitive.ObjectID `json:"productId"`
	Image     string             `json:"image"`
	Title     string             `json:"title"`
	Price     float64            `json:"price"`
	SalePrice float64            `json:"salePrice"`
	Quantity  int                `json:"quantity"`
}

// CartView is the cart as returned to shoppers
type CartView struct {
	ID        primitive.ObjectID `json:"_id"`
	UserID    string             `json:"userId"`
	Items     []CartLine         `json:"items"`
	Version   int64              `json:"version"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AddressInfo is the shipping address copied onto an order
type AddressInfo struct {
	AddressID string `bson:"addressId" json:"addressId"`
	Address   string `bson:"address" json:"address"`
	City      string `bson:"city" json:"city"`
	Pincode   string `bson:"pincode" json:"pincode"`
	Phone     string `bson:"phone" json:"phone"`
	Notes     string `bson:"notes" json:"notes"`
}

// OrderItem is the snapshot of a cart line taken when the order is created
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Title     string             `bson:"title" json:"title"`
	Image     string             `bson:"image" json:"image"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Order represents a customer order
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID          string             `bson:"userId" json:"userId"`
	CartID          string             `bson:"cartId" json:"cartId"`
	CartItems       []OrderItem        `bson:"cartItems" json:"cartItems"`
	AddressInfo     AddressInfo        `bson:"addressInfo" json:"addressInfo"`
	OrderStatus     string             `bson:"orderStatus" json:"orderStatus"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus   string             `bson:"paymentStatus" json:"paymentStatus"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	OrderDate       time.Time          `bson:"orderDate" json:"orderDate"`
	OrderUpdateDate time.Time          `bson:"orderUpdateDate" json:"orderUpdateDate"`
	PaymentID       string             `bson:"paymentId" json:"paymentId"`
	PayerID         string             `bson:"payerId" json:"payerId"`
	IsDemoOrder     bool               `bson:"isDemoOrder" json:"isDemoOrder"`
	ProviderOrderID string             `bson:"providerOrderId" json:"providerOrderId"`
	ApprovalURL     string             `bson:"approvalUrl" json:"-"`
	IdempotencyKey  string             `bson:"idempotencyKey,omitempty" json:"-"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusInProcess  = "inProcess"
	OrderStatusInShipping = "inShipping"
	OrderStatusDelivered  = "delivered"
	OrderStatusRejected   = "rejected"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Order payment statuses
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// ValidOrderStatus reports whether an admin may set the status
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusInProcess, OrderStatusInShipping,
		OrderStatusDelivered, OrderStatusRejected, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Address is a saved shipping address
type Address struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string             `bson:"userId" json:"userId"`
	Address   string             `bson:"address" json:"address"`
	City      string             `bson:"city" json:"city"`
	Pincode   string             `bson:"pincode" json:"pincode"`
	Phone     string             `bson:"phone" json:"phone"`
	Notes     string             `bson:"notes" json:"notes"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered shopper or admin
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserName  string             `bson:"userName" json:"userName"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Feature is a storefront banner image
type Feature struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Image     string             `bson:"image" json:"image"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Payment is a ledger row for one provider payment
type Payment struct {
	ID              int64     `db:"id" json:"id"`
	OrderID         string    `db:"order_id" json:"order_id"`
	Provider        string    `db:"provider" json:"provider"`
	ProviderOrderID string    `db:"provider_order_id" json:"provider_order_id"`
	Status          string    `db:"status" json:"status"`
	ProviderTxID    string    `db:"provider_tx_id" json:"provider_tx_id,omitempty"`
	AmountCents     int64     `db:"amount_cents" json:"amount_cents"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Ledger payment statuses
const (
	LedgerStatusPending = "PENDING"
	LedgerStatusSuccess = "SUCCESS"
	LedgerStatusFailed  = "FAILED"
)

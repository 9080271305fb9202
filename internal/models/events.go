package models

import "time"

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderCompleted = "ORDER_COMPLETED"
	EventTypePaymentFailed  = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when a pending order is persisted
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	TotalAmount float64         `json:"total_amount"`
	IsDemo      bool            `json:"is_demo"`
	Items       []OrderItemData `json:"items"`
}

// OrderCompletedEvent published after capture, stock decrement and cart removal
type OrderCompletedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	PaymentID   string          `json:"payment_id"`
	TotalAmount float64         `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// PaymentFailedEvent published when the provider refuses a capture
type PaymentFailedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ItemData converts order items for event payloads
func ItemData(items []OrderItem) []OrderItemData {
	out := make([]OrderItemData, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItemData{
			ProductID: item.ProductID.Hex(),
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	return out
}

package worker

import (
	"context"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MessageSource delivers broker messages to a handler until ctx is done
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// ProductReader reads current stock levels
type ProductReader interface {
	GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}

// EventLog deduplicates redelivered events
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// StockAlertWorker watches completed orders and warns when a product they
// touched has fallen to the low stock threshold.
type StockAlertWorker struct {
	source    MessageSource
	handler   *broker.EventHandler
	products  ProductReader
	events    EventLog
	threshold int
	logger    *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker. events may be nil,
// in which case redelivered events alert again.
func NewStockAlertWorker(source MessageSource, products ProductReader, events EventLog, threshold int) *StockAlertWorker {
	w := &StockAlertWorker{
		source:    source,
		handler:   broker.NewEventHandler(),
		products:  products,
		events:    events,
		threshold: threshold,
		logger:    util.GetLogger(),
	}

	w.handler.OnOrderCompleted(w.handleOrderCompleted)
	w.handler.OnPaymentFailed(w.handlePaymentFailed)
	return w
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker", zap.Int("threshold", w.threshold))
	return w.source.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.source.Close()
}

func (w *StockAlertWorker) handleOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error {
	if w.events != nil && event.EventID != "" {
		done, err := w.events.IsEventProcessed(ctx, event.EventID)
		if err != nil {
			return err
		}
		if done {
			w.logger.Debug("Skipping processed event", zap.String("event_id", event.EventID))
			return nil
		}
	}

	for _, item := range event.Items {
		id, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			w.logger.Warn("Event carries malformed product id",
				zap.String("order_id", event.OrderID),
				zap.String("product_id", item.ProductID))
			continue
		}

		product, err := w.products.GetProductByID(ctx, id)
		if err != nil {
			// deleted products no longer need alerts
			w.logger.Debug("Product lookup failed", zap.String("product_id", item.ProductID), zap.Error(err))
			continue
		}

		if product.TotalStock <= w.threshold {
			util.LowStockAlertsTotal.Inc()
			w.logger.Warn("Product stock is low",
				zap.String("product_id", item.ProductID),
				zap.String("title", product.Title),
				zap.Int("total_stock", product.TotalStock),
				zap.String("order_id", event.OrderID))
		}
	}

	if w.events != nil && event.EventID != "" {
		return w.events.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}
	return nil
}

func (w *StockAlertWorker) handlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	w.logger.Info("Payment failed for order",
		zap.String("order_id", event.OrderID),
		zap.String("reason", event.Reason))
	return nil
}

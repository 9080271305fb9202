package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrPaymentNotFound is returned when no ledger row exists for an order
var ErrPaymentNotFound = errors.New("payment not found")

const schema = `
CREATE TABLE IF NOT EXISTS payments (
	id                BIGSERIAL PRIMARY KEY,
	order_id          TEXT NOT NULL,
	provider          TEXT NOT NULL,
	provider_order_id TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL,
	provider_tx_id    TEXT NOT NULL DEFAULT '',
	amount_cents      BIGINT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_payments_order_id ON payments (order_id);
CREATE TABLE IF NOT EXISTS processed_events (
	event_id     TEXT PRIMARY KEY,
	event_type   TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Ledger records payment attempts and consumed events in Postgres
type Ledger struct {
	db *sqlx.DB
}

// New connects to the ledger database
func New(databaseURL string) (*Ledger, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping ledger database: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Migrate creates the ledger tables if they are missing
func (l *Ledger) Migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return nil
}

// CreatePayment inserts a payment row
func (l *Ledger) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, provider, provider_order_id, status, provider_tx_id, amount_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return l.db.QueryRowxContext(ctx, query,
		payment.OrderID, payment.Provider, payment.ProviderOrderID,
		payment.Status, payment.ProviderTxID, payment.AmountCents,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

// GetPaymentByOrderID retrieves the latest payment for an order
func (l *Ledger) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := l.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for order: %s", ErrPaymentNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePaymentStatus updates the latest payment of an order
func (l *Ledger) UpdatePaymentStatus(ctx context.Context, orderID, status, providerTxID string) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, provider_tx_id = $2, updated_at = NOW()
		WHERE id = (SELECT id FROM payments WHERE order_id = $3 ORDER BY created_at DESC LIMIT 1)`,
		status, providerTxID, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w for order: %s", ErrPaymentNotFound, orderID)
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (l *Ledger) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := l.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (l *Ledger) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

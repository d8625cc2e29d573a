// Package postgres implements the OrderStore port on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopstack/shopstack-paypal/internal/core/domain"
)

// Store implements ports.OrderStore.
//
// Per-order serialization happens in SQL: status changes are guarded
// compare-and-set UPDATEs, so two concurrent webhook deliveries for the
// same order race on the row and exactly one observes the transition.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates an order store over the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pgx pool and waits for the database to answer pings.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return pool, nil
		}
		time.Sleep(time.Second)
	}

	pool.Close()
	return nil, errors.New("database did not become ready")
}

// EnsureSchema creates the orders table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id              varchar(36) PRIMARY KEY,
			paypal_order_id varchar(128) UNIQUE,
			created_at      timestamptz NOT NULL,
			status          varchar(16) NOT NULL,
			total_amount    numeric(18,2) NOT NULL,
			currency        varchar(8) NOT NULL
		)
	`)
	return err
}

// List returns all orders, most recent first.
func (s *Store) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, paypal_order_id, created_at, status, total_amount, currency
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.PayPalOrderID, &o.CreatedAt, &o.Status, &o.TotalAmount, &o.Currency); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Insert persists a newly created order.
func (s *Store) Insert(ctx context.Context, order domain.Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (id, paypal_order_id, created_at, status, total_amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.ID, order.PayPalOrderID, order.CreatedAt, order.Status, order.TotalAmount, order.Currency)
	return err
}

// FindByPayPalID returns the order with the given PayPal order id, or nil
// when none exists.
func (s *Store) FindByPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error) {
	var o domain.Order
	err := s.db.QueryRow(ctx, `
		SELECT id, paypal_order_id, created_at, status, total_amount, currency
		FROM orders
		WHERE paypal_order_id = $1
	`, paypalOrderID).Scan(&o.ID, &o.PayPalOrderID, &o.CreatedAt, &o.Status, &o.TotalAmount, &o.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// TransitionStatus atomically moves the order from `from` to `to`. The row
// count tells whether this call won the transition.
func (s *Store) TransitionStatus(ctx context.Context, paypalOrderID string, from, to domain.OrderStatus) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1
		WHERE paypal_order_id = $2 AND status = $3
	`, to, paypalOrderID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteUnlessCompleted sets the order to COMPLETED unless it already is.
func (s *Store) CompleteUnlessCompleted(ctx context.Context, paypalOrderID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1
		WHERE paypal_order_id = $2 AND status <> $1
	`, domain.StatusCompleted, paypalOrderID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteMany removes the orders with the given local ids.
func (s *Store) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM orders WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

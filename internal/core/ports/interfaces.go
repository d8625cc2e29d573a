// Package ports defines the interfaces (ports) for the PayPal integration
// service. These are contracts that adapters must implement.
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shopstack/shopstack-paypal/internal/core/domain"
)

// PaymentGateway defines the outbound calls against PayPal's checkout API.
type PaymentGateway interface {
	// CreateOrder creates a remote order with capture intent and returns
	// the PayPal order id and the buyer approval link.
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*domain.CreatedOrder, error)

	// CaptureOrder finalizes collection of funds for an approved order.
	// A non-2xx status is reported in the result, not as an error; only
	// missing input or token acquisition failure errors out.
	CaptureOrder(ctx context.Context, paypalOrderID string) (*domain.CaptureResult, error)
}

// TokenSource supplies a valid bearer token for PayPal API calls.
// Implementations cache the token and coalesce concurrent refreshes so at
// most one credential exchange is in flight per expiry window.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// OrderStore is the persistence abstraction for orders.
type OrderStore interface {
	// List returns all orders, most recent first.
	List(ctx context.Context) ([]domain.Order, error)

	// Insert persists a newly created order.
	Insert(ctx context.Context, order domain.Order) error

	// FindByPayPalID returns the order with the given PayPal order id,
	// or nil when none exists.
	FindByPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error)

	// TransitionStatus atomically moves the order identified by
	// paypalOrderID from status `from` to status `to`. It reports whether
	// this call performed the transition; false means the order was no
	// longer in `from`, i.e. a duplicate or out-of-order delivery.
	TransitionStatus(ctx context.Context, paypalOrderID string, from, to domain.OrderStatus) (bool, error)

	// CompleteUnlessCompleted atomically sets the order to COMPLETED
	// unless it already is. Reports whether the row changed.
	CompleteUnlessCompleted(ctx context.Context, paypalOrderID string) (bool, error)

	// DeleteMany removes the orders with the given local ids and returns
	// how many rows were deleted.
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

// WebhookVerifier checks the authenticity of an inbound webhook delivery.
type WebhookVerifier interface {
	// Verify returns nil when the transmission signature over the raw
	// body checks out against the certificate named in the headers.
	Verify(ctx context.Context, sig domain.WebhookSignature, body []byte) error
}

// Package service implements the core business logic.
package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopstack/shopstack-paypal/internal/core/domain"
	"github.com/shopstack/shopstack-paypal/internal/core/ports"
)

// OrderService orchestrates order creation, listing and deletion.
type OrderService struct {
	gateway ports.PaymentGateway
	store   ports.OrderStore
}

// NewOrderService creates a new order service.
func NewOrderService(gateway ports.PaymentGateway, store ports.OrderStore) *OrderService {
	return &OrderService{
		gateway: gateway,
		store:   store,
	}
}

// CreateOrder creates an order at PayPal and records it locally in CREATED.
// The approval link for the buyer is returned to the caller.
func (s *OrderService) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*domain.CreatedOrder, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.NewServiceError(domain.ErrInvalidRequest,
			"amount must be greater than zero", "VALIDATION_ERROR")
	}
	if len(currency) < 3 || len(currency) > 8 {
		return nil, domain.NewServiceError(domain.ErrInvalidRequest,
			"currency must be a 3-8 character code", "VALIDATION_ERROR")
	}

	created, err := s.gateway.CreateOrder(ctx, amount, currency)
	if err != nil {
		log.Printf("Failed to create PayPal order (amount=%s %s): %v", amount, currency, err)
		return nil, err
	}

	order := domain.Order{
		ID:            uuid.New().String(),
		PayPalOrderID: created.PayPalOrderID,
		CreatedAt:     time.Now().UTC(),
		Status:        domain.StatusCreated,
		TotalAmount:   amount,
		Currency:      currency,
	}

	if err := s.store.Insert(ctx, order); err != nil {
		// The remote order exists but the local record does not. Log the
		// PayPal id so the order can be reconciled manually.
		log.Printf("RECONCILE: PayPal order %s created but local insert failed: %v",
			created.PayPalOrderID, err)
		return nil, domain.NewServiceError(domain.ErrPersistence,
			"order created at PayPal but not recorded locally", "PERSISTENCE_ERROR")
	}

	log.Printf("Order %s created: paypal_id=%s amount=%s %s",
		order.ID, order.PayPalOrderID, amount, currency)

	return created, nil
}

// ListOrders returns all orders, most recent first.
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.store.List(ctx)
	if err != nil {
		log.Printf("Failed to list orders: %v", err)
		return nil, domain.NewServiceError(domain.ErrPersistence,
			"failed to retrieve orders", "PERSISTENCE_ERROR")
	}
	return orders, nil
}

// DeleteOrders removes the orders with the given local ids and reports how
// many were deleted.
func (s *OrderService) DeleteOrders(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, domain.ErrNoOrderIDs
	}

	count, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		log.Printf("Failed to delete orders: %v", err)
		return 0, domain.NewServiceError(domain.ErrPersistence,
			"failed to delete orders", "PERSISTENCE_ERROR")
	}
	if count == 0 {
		return 0, domain.ErrOrderNotFound
	}

	log.Printf("Deleted %d order(s)", count)
	return count, nil
}

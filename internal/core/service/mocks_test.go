package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/shopstack/shopstack-paypal/internal/core/domain"
)

// MockGateway mocks ports.PaymentGateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*domain.CreatedOrder, error) {
	args := m.Called(ctx, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreatedOrder), args.Error(1)
}

func (m *MockGateway) CaptureOrder(ctx context.Context, paypalOrderID string) (*domain.CaptureResult, error) {
	args := m.Called(ctx, paypalOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CaptureResult), args.Error(1)
}

// MockStore mocks ports.OrderStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) List(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, order domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockStore) FindByPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error) {
	args := m.Called(ctx, paypalOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockStore) TransitionStatus(ctx context.Context, paypalOrderID string, from, to domain.OrderStatus) (bool, error) {
	args := m.Called(ctx, paypalOrderID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CompleteUnlessCompleted(ctx context.Context, paypalOrderID string) (bool, error) {
	args := m.Called(ctx, paypalOrderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

// MockVerifier mocks ports.WebhookVerifier.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, sig domain.WebhookSignature, body []byte) error {
	args := m.Called(ctx, sig, body)
	return args.Error(0)
}

// memStore is an in-memory OrderStore with the same compare-and-set
// semantics as the Postgres store. Used where real concurrency matters.
type memStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order // keyed by PayPal order id
}

func newMemStore(orders ...domain.Order) *memStore {
	s := &memStore{orders: make(map[string]*domain.Order)}
	for i := range orders {
		o := orders[i]
		s.orders[o.PayPalOrderID] = &o
	}
	return s
}

func (s *memStore) List(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *memStore) Insert(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.PayPalOrderID] = &order
	return nil
}

func (s *memStore) FindByPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[paypalOrderID]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (s *memStore) TransitionStatus(ctx context.Context, paypalOrderID string, from, to domain.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[paypalOrderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (s *memStore) CompleteUnlessCompleted(ctx context.Context, paypalOrderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[paypalOrderID]
	if !ok || o.Status == domain.StatusCompleted {
		return false, nil
	}
	o.Status = domain.StatusCompleted
	return true, nil
}

func (s *memStore) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, id := range ids {
		for key, o := range s.orders {
			if o.ID == id {
				delete(s.orders, key)
				count++
			}
		}
	}
	return count, nil
}

func (s *memStore) status(paypalOrderID string) domain.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[paypalOrderID].Status
}

// countingGateway counts capture calls; used for the concurrency scenario.
type countingGateway struct {
	mu       sync.Mutex
	captures int
}

func (g *countingGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*domain.CreatedOrder, error) {
	return &domain.CreatedOrder{PayPalOrderID: "PO-1", ApproveLink: "https://paypal.test/approve"}, nil
}

func (g *countingGateway) CaptureOrder(ctx context.Context, paypalOrderID string) (*domain.CaptureResult, error) {
	g.mu.Lock()
	g.captures++
	g.mu.Unlock()
	return &domain.CaptureResult{Succeeded: true, StatusCode: 201}, nil
}

func (g *countingGateway) captureCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.captures
}

// allowAllVerifier accepts every signature; handler-level auth paths are
// exercised separately.
type allowAllVerifier struct{}

func (allowAllVerifier) Verify(ctx context.Context, sig domain.WebhookSignature, body []byte) error {
	return nil
}

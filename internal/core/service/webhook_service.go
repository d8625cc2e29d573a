// Package service implements the core business logic.
package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/shopstack/shopstack-paypal/internal/core/domain"
	"github.com/shopstack/shopstack-paypal/internal/core/ports"
)

// WebhookService drives the order lifecycle from inbound PayPal webhook
// deliveries. Deliveries are at-least-once and may arrive duplicated or
// reordered, so every transition is a compare-and-set against the store
// and replays degrade to ignored acknowledgments.
type WebhookService struct {
	gateway  ports.PaymentGateway
	store    ports.OrderStore
	verifier ports.WebhookVerifier
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(
	gateway ports.PaymentGateway,
	store ports.OrderStore,
	verifier ports.WebhookVerifier,
) *WebhookService {
	return &WebhookService{
		gateway:  gateway,
		store:    store,
		verifier: verifier,
	}
}

// Process verifies, decodes and applies one webhook delivery.
func (s *WebhookService) Process(ctx context.Context, sig domain.WebhookSignature, body []byte) (domain.WebhookOutcome, error) {
	// Step 1: reject empty payloads outright.
	if len(body) == 0 {
		return domain.WebhookOutcome{}, domain.NewServiceError(domain.ErrInvalidRequest,
			"empty webhook payload", "EMPTY_PAYLOAD")
	}

	// Step 2: authenticity. All five transmission headers are required
	// before the signature is even checked.
	if !sig.Complete() {
		log.Printf("Webhook rejected: missing transmission headers")
		return domain.WebhookOutcome{}, domain.ErrWebhookVerificationFailed
	}
	if err := s.verifier.Verify(ctx, sig, body); err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		return domain.WebhookOutcome{}, domain.ErrWebhookVerificationFailed
	}

	// Step 3: decode the event envelope.
	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return domain.WebhookOutcome{}, domain.NewServiceError(domain.ErrInvalidRequest,
			"malformed webhook JSON", "BAD_JSON")
	}
	if event.EventType == "" {
		return domain.WebhookOutcome{}, domain.NewServiceError(domain.ErrInvalidRequest,
			"event_type missing", "BAD_EVENT")
	}

	// Step 4: resolve the target order. An unknown order is acknowledged,
	// not failed: returning an error here would make PayPal retry forever
	// for orders this service never created.
	paypalOrderID := event.Resource.OrderID()
	order, err := s.store.FindByPayPalID(ctx, paypalOrderID)
	if err != nil {
		return domain.WebhookOutcome{}, domain.NewServiceError(domain.ErrPersistence,
			"order lookup failed", "PERSISTENCE_ERROR")
	}
	if order == nil {
		log.Printf("Webhook %s ignored: no order for paypal_id=%s", event.EventType, paypalOrderID)
		return domain.WebhookOutcome{Handled: false}, nil
	}

	// Step 5: apply the event to the state machine.
	return s.apply(ctx, event.EventType, paypalOrderID)
}

// apply performs the state transition for one event. Transitions are
// monotonic (CREATED -> APPROVED -> COMPLETED); anything that would move
// backwards, repeat, or is unrecognized is acknowledged as ignored.
func (s *WebhookService) apply(ctx context.Context, eventType, paypalOrderID string) (domain.WebhookOutcome, error) {
	switch eventType {
	case domain.EventOrderApproved:
		return s.applyApproved(ctx, paypalOrderID)

	case domain.EventCaptureCompleted:
		changed, err := s.store.CompleteUnlessCompleted(ctx, paypalOrderID)
		if err != nil {
			return domain.WebhookOutcome{}, domain.NewServiceError(domain.ErrPersistence,
				"failed to mark order completed", "PERSISTENCE_ERROR")
		}
		if !changed {
			log.Printf("COMPLETED replay ignored for paypal_id=%s", paypalOrderID)
			return domain.WebhookOutcome{Handled: true, Ignored: true}, nil
		}
		log.Printf("Order completed: paypal_id=%s", paypalOrderID)
		return domain.WebhookOutcome{Handled: true}, nil

	default:
		log.Printf("Unhandled webhook event type: %s", eventType)
		return domain.WebhookOutcome{Handled: false}, nil
	}
}

// applyApproved moves CREATED -> APPROVED and issues the capture. The CAS
// update decides a single winner among concurrent deliveries, so the
// capture call happens at most once per order. APPROVED is durable before
// the capture is attempted; a failed capture leaves it in place and the
// error lets PayPal redeliver (capture is idempotent per order id).
func (s *WebhookService) applyApproved(ctx context.Context, paypalOrderID string) (domain.WebhookOutcome, error) {
	applied, err := s.store.TransitionStatus(ctx, paypalOrderID, domain.StatusCreated, domain.StatusApproved)
	if err != nil {
		return domain.WebhookOutcome{}, domain.NewServiceError(domain.ErrPersistence,
			"failed to mark order approved", "PERSISTENCE_ERROR")
	}
	if !applied {
		log.Printf("APPROVED event ignored for paypal_id=%s: order not in CREATED", paypalOrderID)
		return domain.WebhookOutcome{Handled: true, Ignored: true}, nil
	}

	log.Printf("Order approved: paypal_id=%s, capturing", paypalOrderID)

	result, err := s.gateway.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		return domain.WebhookOutcome{}, err
	}
	if !result.Succeeded {
		log.Printf("Capture failed for paypal_id=%s: status %d: %s",
			paypalOrderID, result.StatusCode, result.Body)
		return domain.WebhookOutcome{}, &domain.GatewayError{
			Operation:  "capture order",
			StatusCode: result.StatusCode,
			Body:       result.Body,
		}
	}

	log.Printf("Capture issued for paypal_id=%s", paypalOrderID)
	return domain.WebhookOutcome{Handled: true}, nil
}

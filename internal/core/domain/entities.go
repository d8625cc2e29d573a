// Package domain contains the core business entities for the PayPal
// integration service. This is the innermost layer - no transport or
// storage dependencies.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an Order. Transitions only move
// forward: CREATED -> APPROVED -> COMPLETED.
type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusApproved  OrderStatus = "APPROVED"
	StatusCompleted OrderStatus = "COMPLETED"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusApproved, StatusCompleted:
		return true
	}
	return false
}

// Order is a persisted payment order. PayPalOrderID is assigned by PayPal
// at creation time and is the key webhooks resolve against.
type Order struct {
	ID            string          `json:"id"`
	PayPalOrderID string          `json:"paypal_order_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Status        OrderStatus     `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
}

// AccessToken is a short-lived PayPal bearer credential. It lives only in
// memory, owned by the token cache.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token can still be used at the given instant.
func (t AccessToken) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// Webhook event types this service acts on. Anything else is acknowledged
// and ignored.
const (
	EventOrderApproved    = "CHECKOUT.ORDER.APPROVED"
	EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
)

// WebhookEvent is the decoded PayPal webhook envelope.
type WebhookEvent struct {
	EventType string          `json:"event_type"`
	Resource  WebhookResource `json:"resource"`
}

// WebhookResource carries the event subject. For capture events the order
// id lives under supplementary_data; for order events it is the top-level id.
type WebhookResource struct {
	ID                string `json:"id"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

// OrderID resolves the PayPal order id targeted by the event, preferring
// the nested related id over the top-level resource id.
func (r WebhookResource) OrderID() string {
	if id := r.SupplementaryData.RelatedIDs.OrderID; id != "" {
		return id
	}
	return r.ID
}

// WebhookSignature holds the transport headers PayPal signs each delivery
// with. All five are required before verification is attempted.
type WebhookSignature struct {
	TransmissionID   string
	TransmissionTime string
	AuthAlgo         string
	TransmissionSig  string
	CertURL          string
}

// Complete reports whether every required header was present.
func (s WebhookSignature) Complete() bool {
	return s.TransmissionID != "" &&
		s.TransmissionTime != "" &&
		s.AuthAlgo != "" &&
		s.TransmissionSig != "" &&
		s.CertURL != ""
}

// CreatedOrder is the result of a successful remote order creation.
type CreatedOrder struct {
	PayPalOrderID string
	ApproveLink   string
}

// CaptureResult is the outcome of a capture call. A non-success HTTP status
// is an expected result, not an error.
type CaptureResult struct {
	Succeeded  bool
	StatusCode int
	Body       string
}

// WebhookOutcome is the acknowledgment returned to PayPal for a delivery.
type WebhookOutcome struct {
	Handled bool `json:"handled"`
	Ignored bool `json:"ignored,omitempty"`
}

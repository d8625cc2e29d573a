// Package domain contains the core business entities for the PayPal
// integration service.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - represent business rule violations and collaborator
// failures the service layer distinguishes between.
var (
	// ErrInvalidRequest is returned for malformed requests.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrCredentialExchange is returned when the PayPal token endpoint
	// fails or returns an unusable response.
	ErrCredentialExchange = errors.New("paypal credential exchange failed")

	// ErrWebhookVerificationFailed is returned when the transmission
	// signature of an inbound webhook does not verify.
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")

	// ErrOrderNotFound is returned when no order matches the given id(s).
	ErrOrderNotFound = errors.New("order not found")

	// ErrNoOrderIDs is returned when a bulk delete is requested with an
	// empty id list.
	ErrNoOrderIDs = errors.New("no order IDs provided")

	// ErrPersistence is returned when the order store fails.
	ErrPersistence = errors.New("order store failure")
)

// GatewayError is a non-success response from PayPal's order endpoints.
// It keeps the status and body so the caller can surface or log them.
type GatewayError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("paypal %s failed: %s", e.Operation, e.Body)
	}
	return fmt.Sprintf("paypal %s failed: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// ServiceError wraps errors with additional context.
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(err error, message, code string) *ServiceError {
	return &ServiceError{Err: err, Message: message, Code: code}
}

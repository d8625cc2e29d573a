// Package paypal implements the PaymentGateway, TokenSource and
// WebhookVerifier ports against PayPal's REST API.
package paypal

import (
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/shopstack/shopstack-paypal/config"
	"github.com/shopstack/shopstack-paypal/internal/core/domain"
)

// errServerStatus marks a 5xx response as a breaker failure while still
// handing the response back to the caller.
var errServerStatus = errors.New("paypal returned a server error status")

// Transport is the shared HTTP layer for every PayPal call. Transient
// failures (connection errors, timeouts, 5xx) are retried with exponential
// backoff, and a circuit breaker fails fast after repeated failures so a
// struggling processor is not hammered.
type Transport struct {
	rest    *resty.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

// NewTransport builds the transport with the retry and breaker policy:
// 3 retries with exponential backoff, breaker opens after 5 consecutive
// failures and stays open for 30 seconds.
func NewTransport(cfg config.PayPalConfig) *Transport {
	rest := resty.New().
		SetTimeout(cfg.HTTPTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "paypal",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Transport{
		rest:    rest,
		breaker: breaker,
		baseURL: cfg.BaseURL,
	}
}

// request returns a resty request bound to the transport's client.
func (t *Transport) request() *resty.Request {
	return t.rest.R()
}

// url joins a path onto the PayPal base URL.
func (t *Transport) url(path string) string {
	return t.baseURL + path
}

// do runs one PayPal call through the circuit breaker. A 5xx response
// counts as a breaker failure but is still returned so the caller can
// inspect status and body; 4xx responses are the caller's problem and do
// not trip the breaker.
func (t *Transport) do(operation string, fn func() (*resty.Response, error)) (*resty.Response, error) {
	result, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})

	if errors.Is(err, errServerStatus) {
		return result.(*resty.Response), nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &domain.GatewayError{
			Operation: operation,
			Body:      "circuit breaker open: " + err.Error(),
		}
	}
	if err != nil {
		return nil, &domain.GatewayError{
			Operation: operation,
			Body:      err.Error(),
		}
	}
	return result.(*resty.Response), nil
}

package paypal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/shopstack-paypal/config"
	"github.com/shopstack/shopstack-paypal/internal/core/domain"
)

// staticTokens satisfies ports.TokenSource for client tests.
type staticTokens struct{}

func (staticTokens) Token(ctx context.Context) (string, error) {
	return "tok-1", nil
}

func newTestClient(baseURL string) *Client {
	return NewClient(newTestTransport(baseURL), staticTokens{}, config.PayPalConfig{
		ReturnURL: "https://merchant.test/success",
		CancelURL: "https://merchant.test/cancel",
	})
}

func TestCreateOrderExtractsIDAndApproveLink(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": "PO-1",
			"status": "CREATED",
			"links": [
				{"rel": "self", "href": "https://paypal.test/v2/checkout/orders/PO-1"},
				{"rel": "approve", "href": "https://paypal.test/checkoutnow?token=PO-1"},
				{"rel": "capture", "href": "https://paypal.test/v2/checkout/orders/PO-1/capture"}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	created, err := client.CreateOrder(context.Background(), decimal.RequireFromString("10.00"), "USD")

	require.NoError(t, err)
	assert.Equal(t, "PO-1", created.PayPalOrderID)
	assert.Equal(t, "https://paypal.test/checkoutnow?token=PO-1", created.ApproveLink)

	assert.Equal(t, "CAPTURE", gotBody["intent"])
	units := gotBody["purchase_units"].([]interface{})
	amount := units[0].(map[string]interface{})["amount"].(map[string]interface{})
	assert.Equal(t, "USD", amount["currency_code"])
	assert.Equal(t, "10.00", amount["value"])
	appCtx := gotBody["application_context"].(map[string]interface{})
	assert.Equal(t, "https://merchant.test/success", appCtx["return_url"])
	assert.Equal(t, "https://merchant.test/cancel", appCtx["cancel_url"])
}

func TestCreateOrderApprovalLinkMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "PO-1", "links": [{"rel": "self", "href": "x"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.CreateOrder(context.Background(), decimal.RequireFromString("10.00"), "USD")

	var gatewayErr *domain.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Contains(t, gatewayErr.Error(), "approval link missing")
}

func TestCreateOrderNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"name":"INVALID_REQUEST"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.CreateOrder(context.Background(), decimal.RequireFromString("10.00"), "USD")

	var gatewayErr *domain.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, http.StatusBadRequest, gatewayErr.StatusCode)
	assert.Contains(t, gatewayErr.Body, "INVALID_REQUEST")
}

func TestCaptureOrderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders/PO-1/capture", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "PO-1", "status": "COMPLETED"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.CaptureOrder(context.Background(), "PO-1")

	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Equal(t, http.StatusCreated, result.StatusCode)
}

func TestCaptureOrderNonSuccessIsResultNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"name":"UNPROCESSABLE_ENTITY"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.CaptureOrder(context.Background(), "PO-1")

	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Equal(t, http.StatusUnprocessableEntity, result.StatusCode)
	assert.Contains(t, result.Body, "UNPROCESSABLE_ENTITY")
}

func TestCaptureOrderRequiresID(t *testing.T) {
	client := newTestClient("http://paypal.invalid")

	_, err := client.CaptureOrder(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestBreakerOpensAfterConsecutiveServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, `{"name":"INTERNAL_SERVER_ERROR"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	// Five 5xx responses reach the caller as capture results while feeding
	// the breaker's consecutive-failure count.
	for i := 0; i < 5; i++ {
		result, err := client.CaptureOrder(context.Background(), "PO-1")
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
	}
	assert.Equal(t, 5, hits)

	// The breaker is now open: the next call fails fast without touching
	// the network.
	_, err := client.CaptureOrder(context.Background(), "PO-1")
	var gatewayErr *domain.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.True(t, strings.Contains(gatewayErr.Error(), "circuit breaker open"))
	assert.Equal(t, 5, hits)
}

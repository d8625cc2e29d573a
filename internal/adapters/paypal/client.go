package paypal

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/shopstack/shopstack-paypal/config"
	"github.com/shopstack/shopstack-paypal/internal/core/domain"
	"github.com/shopstack/shopstack-paypal/internal/core/ports"
)

// Client implements ports.PaymentGateway against PayPal's checkout API.
type Client struct {
	transport *Transport
	tokens    ports.TokenSource
	returnURL string
	cancelURL string
}

// NewClient creates a PayPal gateway client.
func NewClient(transport *Transport, tokens ports.TokenSource, cfg config.PayPalConfig) *Client {
	return &Client{
		transport: transport,
		tokens:    tokens,
		returnURL: cfg.ReturnURL,
		cancelURL: cfg.CancelURL,
	}
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount orderAmount `json:"amount"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type orderLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type createOrderResponse struct {
	ID    string      `json:"id"`
	Links []orderLink `json:"links"`
}

// CreateOrder creates a remote order with capture intent and returns the
// PayPal order id plus the link the buyer must follow to approve it.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*domain.CreatedOrder, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{
			{Amount: orderAmount{CurrencyCode: currency, Value: amount.StringFixed(2)}},
		},
		ApplicationContext: applicationContext{
			ReturnURL: c.returnURL,
			CancelURL: c.cancelURL,
		},
	}

	resp, err := c.transport.do("create order", func() (*resty.Response, error) {
		return c.transport.request().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(c.transport.url("/v2/checkout/orders"))
	})
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, &domain.GatewayError{
			Operation:  "create order",
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}

	var created createOrderResponse
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, &domain.GatewayError{
			Operation: "create order",
			Body:      "malformed create-order response: " + err.Error(),
		}
	}

	approveLink := ""
	for _, link := range created.Links {
		if link.Rel == "approve" {
			approveLink = link.Href
			break
		}
	}
	if created.ID == "" || approveLink == "" {
		return nil, &domain.GatewayError{
			Operation: "create order",
			Body:      "approval link missing",
		}
	}

	log.Printf("PayPal order created: id=%s", created.ID)
	return &domain.CreatedOrder{
		PayPalOrderID: created.ID,
		ApproveLink:   approveLink,
	}, nil
}

// CaptureOrder finalizes collection of funds for an approved order. The
// capture endpoint requires an empty JSON body. A non-success status is an
// expected outcome carried in the result, not an error.
func (c *Client) CaptureOrder(ctx context.Context, paypalOrderID string) (*domain.CaptureResult, error) {
	if paypalOrderID == "" {
		return nil, domain.NewServiceError(domain.ErrInvalidRequest,
			"paypal order id is required", "VALIDATION_ERROR")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.do("capture order", func() (*resty.Response, error) {
		return c.transport.request().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json").
			Post(c.transport.url("/v2/checkout/orders/" + paypalOrderID + "/capture"))
	})
	if err != nil {
		return nil, err
	}

	return &domain.CaptureResult{
		Succeeded:  resp.IsSuccess(),
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}, nil
}

// Package api contains the HTTP handlers and routing for the PayPal
// integration service.
package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/shopstack/shopstack-paypal/internal/core/domain"
	"github.com/shopstack/shopstack-paypal/internal/core/service"
)

// Handler contains the HTTP handlers for the API.
type Handler struct {
	orders   *service.OrderService
	webhooks *service.WebhookService
}

// NewHandler creates a new API handler.
func NewHandler(orders *service.OrderService, webhooks *service.WebhookService) *Handler {
	return &Handler{
		orders:   orders,
		webhooks: webhooks,
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CreateOrderRequest is the JSON body for the create-order endpoint.
type CreateOrderRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"required,min=3,max=8"`
}

// CreateOrderResponse carries the approval URL the buyer is redirected to.
type CreateOrderResponse struct {
	URL string `json:"url"`
}

// CreateOrder handles POST /api/paypal/create-order.
// Creates an order at PayPal, records it locally and returns the approval
// link.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  "VALIDATION_ERROR",
		})
		return
	}

	created, err := h.orders.CreateOrder(c.Request.Context(), req.Amount, req.Currency)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateOrderResponse{URL: created.ApproveLink})
}

// Webhook handles POST /api/paypal/webhook.
// The raw body is needed for signature verification, so it is read before
// any JSON decoding happens.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unreadable body", Code: "BAD_BODY"})
		return
	}

	sig := domain.WebhookSignature{
		TransmissionID:   c.GetHeader("PAYPAL-TRANSMISSION-ID"),
		TransmissionTime: c.GetHeader("PAYPAL-TRANSMISSION-TIME"),
		AuthAlgo:         c.GetHeader("PAYPAL-AUTH-ALGO"),
		TransmissionSig:  c.GetHeader("PAYPAL-TRANSMISSION-SIG"),
		CertURL:          c.GetHeader("PAYPAL-CERT-URL"),
	}

	outcome, err := h.webhooks.Process(c.Request.Context(), sig, body)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// OrderView is one row of the order listing.
type OrderView struct {
	ID            string `json:"id"`
	PayPalOrderID string `json:"paypal_order_id"`
	CreatedAt     string `json:"created_at"`
	Status        string `json:"status"`
	TotalAmount   string `json:"total_amount"`
	Currency      string `json:"currency"`
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, OrderView{
			ID:            o.ID,
			PayPalOrderID: o.PayPalOrderID,
			CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339),
			Status:        string(o.Status),
			TotalAmount:   o.TotalAmount.StringFixed(2),
			Currency:      o.Currency,
		})
	}
	c.JSON(http.StatusOK, views)
}

// DeleteOrdersResponse reports how many orders a bulk delete removed.
type DeleteOrdersResponse struct {
	Deleted int64 `json:"deleted"`
}

// DeleteOrders handles POST /api/orders/delete with a JSON array of ids.
func (h *Handler) DeleteOrders(c *gin.Context) {
	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: expected a JSON array of order ids",
			Code:  "VALIDATION_ERROR",
		})
		return
	}

	count, err := h.orders.DeleteOrders(c.Request.Context(), ids)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, DeleteOrdersResponse{Deleted: count})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "paypal-integration"})
}

// handleServiceError maps domain errors to HTTP responses. The distinction
// matters for webhooks: 4xx stops PayPal's redelivery, 5xx invites it.
func handleServiceError(c *gin.Context, err error) {
	var gatewayErr *domain.GatewayError

	switch {
	case errors.Is(err, domain.ErrNoOrderIDs):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No order IDs provided", Code: "NO_IDS"})

	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No orders found to delete", Code: "NOT_FOUND"})

	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"})

	case errors.Is(err, domain.ErrWebhookVerificationFailed):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid webhook signature", Code: "UNAUTHORIZED"})

	case errors.Is(err, domain.ErrCredentialExchange):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Failed to obtain PayPal access token", Code: "TOKEN_ERROR"})

	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: gatewayErr.Error(), Code: "GATEWAY_ERROR"})

	case errors.Is(err, domain.ErrPersistence):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Storage failure", Code: "PERSISTENCE_ERROR"})

	default:
		log.Printf("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Code: "SERVER_ERROR"})
	}
}

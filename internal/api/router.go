// Package api contains the HTTP handlers and routing for the PayPal
// integration service.
package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with all routes and middleware.
func SetupRouter(handler *Handler, ginMode string) *gin.Engine {
	gin.SetMode(ginMode)

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())

	// Health check endpoint (no auth required)
	router.GET("/health", handler.Health)

	api := router.Group("/api")
	{
		paypal := api.Group("/paypal")
		{
			paypal.POST("/create-order", handler.CreateOrder)

			// Called by PayPal; authenticity comes from the transmission
			// signature, not from any session auth.
			paypal.POST("/webhook", handler.Webhook)
		}

		orders := api.Group("/orders")
		{
			orders.GET("", handler.ListOrders)
			orders.POST("/delete", handler.DeleteOrders)
		}
	}

	return router
}

// PayPal integration service.
//
// This is the main entry point. It wires up all dependencies and starts
// the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopstack/shopstack-paypal/config"
	"github.com/shopstack/shopstack-paypal/internal/adapters/paypal"
	"github.com/shopstack/shopstack-paypal/internal/adapters/postgres"
	"github.com/shopstack/shopstack-paypal/internal/api"
	"github.com/shopstack/shopstack-paypal/internal/core/service"
)

func main() {
	log.Println("Starting PayPal integration service...")

	// Load configuration
	cfg := config.Load()
	log.Printf("Configuration loaded: Port=%s, PayPalBaseURL=%s", cfg.Server.Port, cfg.PayPal.BaseURL)

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Database
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	pool, err := postgres.Connect(ctx, cfg.Database.URL)
	cancel()
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatalf("Schema error: %v", err)
	}
	log.Println("Connected to orders database")

	// Wire up dependencies (manual dependency injection)
	//
	// Infrastructure layer
	transport := paypal.NewTransport(cfg.PayPal)
	tokens := paypal.NewTokenCache(transport, cfg.PayPal)
	gateway := paypal.NewClient(transport, tokens, cfg.PayPal)
	verifier := paypal.NewVerifier(cfg.PayPal)
	store := postgres.NewStore(pool)

	// Service layer
	orderService := service.NewOrderService(gateway, store)
	webhookService := service.NewWebhookService(gateway, store, verifier)

	// API layer
	handler := api.NewHandler(orderService, webhookService)
	router := api.SetupRouter(handler, cfg.Server.GinMode)

	// Start server in a goroutine
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		log.Printf("Server listening on %s", serverAddr)
		if err := router.Run(serverAddr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}

// validateConfig checks that required configuration values are set.
func validateConfig(cfg *config.Config) error {
	if cfg.PayPal.ClientID == "" {
		return fmt.Errorf("PAYPAL_CLIENT_ID is required")
	}
	if cfg.PayPal.Secret == "" {
		return fmt.Errorf("PAYPAL_SECRET is required")
	}
	if cfg.PayPal.WebhookID == "" {
		log.Println("Warning: PAYPAL_WEBHOOK_ID not set, webhook verification will reject all deliveries")
	}
	return nil
}

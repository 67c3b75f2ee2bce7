package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"lottopay/api"
	"lottopay/chain"
	"lottopay/config"
	"lottopay/database"
	"lottopay/events"
	"lottopay/metrics"
	"lottopay/repository"
	"lottopay/service"
)

// How far back a PENDING withdrawal must date from before startup
// reconciliation will touch it. Anything younger may still be in flight.
const reconcileOlderThan = 5 * time.Minute

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting lottopay settlement engine...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()
	metrics.Subscribe(eventBus)
	registerOperatorAlerts(eventBus)

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// One chain client shared by every sender: the signing wallet's message
	// sequence must have no gaps, so all sends serialize through it
	chainClient := chain.NewClient(cfg.ChainAPIURL, cfg.ChainAPIKey, cfg.WalletAddress)

	// Initialize services
	log.Println("Initializing services...")
	depositService := service.NewDepositService(uowFactory, chainClient, cfg)
	withdrawalService := service.NewWithdrawalService(uowFactory, chainClient, cfg)
	payoutService := service.NewPayoutService(uowFactory, chainClient, cfg)
	fairnessService := service.NewFairnessService(uowFactory)
	log.Println("Services initialized successfully")

	// Resolve withdrawals left PENDING by a crash between debit and outcome
	log.Println("Reconciling pending withdrawals...")
	if err := withdrawalService.ReconcilePendingWithdrawals(ctx, reconcileOlderThan); err != nil {
		return fmt.Errorf("failed to reconcile pending withdrawals: %w", err)
	}

	// Start background workers
	stopDepositWorker := service.StartDepositWorker(ctx, depositService, cfg.DepositPollInterval)
	stopPayoutWorker := service.StartPayoutWorker(ctx, payoutService, cfg.PayoutInterval)

	// Start HTTP server
	server := api.NewServer(cfg, depositService, withdrawalService, payoutService, fairnessService)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.Printf("Engine is running in %s mode...", cfg.Environment)
	select {
	case err := <-serverErr:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Println("Shutting down...")
	stopDepositWorker()
	stopPayoutWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	log.Println("Shutdown completed")
	return nil
}

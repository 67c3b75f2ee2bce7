package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// StartDepositWorker starts a background worker that polls the chain for new
// inbound transfers. Returns a cleanup function to stop the worker gracefully.
func StartDepositWorker(ctx context.Context, deposits DepositService, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	poll := func() {
		if err := deposits.CheckDeposits(ctx); err != nil {
			log.Errorf("Error checking deposits: %v", err)
		}
	}

	go func() {
		log.Info("Deposit monitor started")

		// Run immediately on startup
		poll()

		for {
			select {
			case <-ctx.Done():
				log.Info("Deposit monitor shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Deposit monitor shutting down (stop requested)...")
				return
			case <-ticker.C:
				poll()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

// StartPayoutWorker starts a background worker that drains the payout queue
// on a fixed interval. Returns a cleanup function to stop the worker
// gracefully.
func StartPayoutWorker(ctx context.Context, payouts PayoutService, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	run := func() {
		result, err := payouts.ProcessPendingPayouts(ctx)
		if err != nil {
			log.Errorf("Error processing payouts: %v", err)
			return
		}
		// nil result means another pass was already running
		if result == nil || result.Processed == 0 {
			return
		}
		log.WithFields(log.Fields{
			"processed": result.Processed,
			"completed": result.Completed,
			"failed":    result.Failed,
			"deferred":  result.Deferred,
		}).Info("Payout pass finished")
	}

	go func() {
		log.Info("Payout processor started")

		for {
			select {
			case <-ctx.Done():
				log.Info("Payout processor shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Payout processor shutting down (stop requested)...")
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

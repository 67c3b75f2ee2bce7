package cmd

import (
	"context"

	"lottopay/events"

	log "github.com/sirupsen/logrus"
)

// registerOperatorAlerts wires log handlers for events that need a human.
// A deployment with a paging system would hang its notifier here too.
func registerOperatorAlerts(bus *events.Bus) {
	bus.Subscribe(events.EventTypeDepositUnmatched, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.DepositUnmatchedEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"txHash":      e.TxHash,
			"memo":        e.Memo,
			"amount":      e.Amount,
			"currency":    e.Currency,
			"fromAddress": e.FromAddress,
		}).Warn("Unmatched deposit held for manual review")
	})

	bus.Subscribe(events.EventTypePayoutFailed, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.PayoutFailedEvent)
		if !ok || !e.Operator {
			return
		}
		log.WithFields(log.Fields{
			"payoutID": e.PayoutID,
			"userID":   e.UserID,
			"drawID":   e.DrawID,
			"amount":   e.Amount,
			"currency": e.Currency,
			"reason":   e.Reason,
		}).Error("Payout failed terminally, operator intervention required")
	})

	bus.Subscribe(events.EventTypeReserveShortfall, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.ReserveShortfallEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"lotteryID": e.LotteryID,
			"currency":  e.Currency,
			"amount":    e.Amount,
		}).Warn("Reserve pool could not cover gas fee, top up required")
	})
}

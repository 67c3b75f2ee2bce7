// Package metrics exposes prometheus counters for the settlement engine.
// Counters are fed from the event bus so instrumentation stays out of the
// money paths.
package metrics

import (
	"context"

	"lottopay/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	depositsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottopay_deposits_credited_total",
		Help: "Deposits credited to user balances",
	}, []string{"currency"})

	depositsUnmatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lottopay_deposits_unmatched_total",
		Help: "Inbound transfers held for manual review",
	})

	withdrawalsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottopay_withdrawals_completed_total",
		Help: "Withdrawals sent on chain",
	}, []string{"currency"})

	withdrawalsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottopay_withdrawals_failed_total",
		Help: "Withdrawals refunded after a failed send",
	}, []string{"currency"})

	payoutsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottopay_payouts_completed_total",
		Help: "Prize payouts sent on chain",
	}, []string{"currency"})

	payoutsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottopay_payouts_failed_total",
		Help: "Prize payouts that reached a terminal failure",
	}, []string{"currency"})

	reserveShortfalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lottopay_reserve_shortfalls_total",
		Help: "Gas reservations the reserve pool could not cover",
	})
)

// Subscribe registers counter handlers on the event bus
func Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeDepositCredited, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.DepositCreditedEvent); ok {
			depositsCredited.WithLabelValues(string(e.Currency)).Inc()
		}
	})
	bus.Subscribe(events.EventTypeDepositUnmatched, func(ctx context.Context, event events.Event) {
		depositsUnmatched.Inc()
	})
	bus.Subscribe(events.EventTypeWithdrawalCompleted, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.WithdrawalCompletedEvent); ok {
			withdrawalsCompleted.WithLabelValues(string(e.Currency)).Inc()
		}
	})
	bus.Subscribe(events.EventTypeWithdrawalFailed, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.WithdrawalFailedEvent); ok {
			withdrawalsFailed.WithLabelValues(string(e.Currency)).Inc()
		}
	})
	bus.Subscribe(events.EventTypePayoutCompleted, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.PayoutCompletedEvent); ok {
			payoutsCompleted.WithLabelValues(string(e.Currency)).Inc()
		}
	})
	bus.Subscribe(events.EventTypePayoutFailed, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.PayoutFailedEvent); ok {
			payoutsFailed.WithLabelValues(string(e.Currency)).Inc()
		}
	})
	bus.Subscribe(events.EventTypeReserveShortfall, func(ctx context.Context, event events.Event) {
		reserveShortfalls.Inc()
	})
}

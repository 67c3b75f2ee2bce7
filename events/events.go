package events

import (
	"context"
	"sync"

	"lottopay/models"

	log "github.com/sirupsen/logrus"

	"github.com/shopspring/decimal"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeDepositCredited     EventType = "deposit_credited"
	EventTypeDepositUnmatched    EventType = "deposit_unmatched"
	EventTypeWithdrawalCompleted EventType = "withdrawal_completed"
	EventTypeWithdrawalFailed    EventType = "withdrawal_failed"
	EventTypePayoutCompleted     EventType = "payout_completed"
	EventTypePayoutFailed        EventType = "payout_failed"
	EventTypeReserveShortfall    EventType = "reserve_shortfall"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// DepositCreditedEvent represents a deposit credited to a user's balance
type DepositCreditedEvent struct {
	UserID   int64
	Amount   decimal.Decimal
	Currency models.Currency
	TxHash   string
	Memo     string
}

func (e DepositCreditedEvent) Type() EventType {
	return EventTypeDepositCredited
}

// DepositUnmatchedEvent represents an inbound transfer whose memo did not
// resolve to any user. Routed to operators for manual review.
type DepositUnmatchedEvent struct {
	Amount      decimal.Decimal
	Currency    models.Currency
	TxHash      string
	Memo        string
	FromAddress string
}

func (e DepositUnmatchedEvent) Type() EventType {
	return EventTypeDepositUnmatched
}

// WithdrawalCompletedEvent represents a withdrawal sent on chain
type WithdrawalCompletedEvent struct {
	UserID        int64
	TransactionID int64
	Amount        decimal.Decimal
	Currency      models.Currency
	TxHash        string
}

func (e WithdrawalCompletedEvent) Type() EventType {
	return EventTypeWithdrawalCompleted
}

// WithdrawalFailedEvent represents a withdrawal whose send failed; the debit
// has already been refunded when this event fires
type WithdrawalFailedEvent struct {
	UserID        int64
	TransactionID int64
	Amount        decimal.Decimal
	Currency      models.Currency
	Reason        string
}

func (e WithdrawalFailedEvent) Type() EventType {
	return EventTypeWithdrawalFailed
}

// PayoutCompletedEvent represents a prize payout sent on chain
type PayoutCompletedEvent struct {
	PayoutID int64
	UserID   int64
	DrawID   int64
	Amount   decimal.Decimal
	Currency models.Currency
	TxHash   string
}

func (e PayoutCompletedEvent) Type() EventType {
	return EventTypePayoutCompleted
}

// PayoutFailedEvent represents a payout that reached a terminal failure.
// Operator indicates the failure needs manual intervention.
type PayoutFailedEvent struct {
	PayoutID int64
	UserID   int64
	DrawID   int64
	Amount   decimal.Decimal
	Currency models.Currency
	Reason   string
	Operator bool
}

func (e PayoutFailedEvent) Type() EventType {
	return EventTypePayoutFailed
}

// ReserveShortfallEvent represents a gas reservation that could not be
// covered by the reserve pool
type ReserveShortfallEvent struct {
	LotteryID int64
	Currency  models.Currency
	Amount    decimal.Decimal
}

func (e ReserveShortfallEvent) Type() EventType {
	return EventTypeReserveShortfall
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// A transactional event bus for holding pending events coupled to the Unit of Work.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// called after successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Use background context for event emission so handlers outlive the
	// transaction context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

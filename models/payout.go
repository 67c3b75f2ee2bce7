package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus represents the lifecycle state of a payout
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// Payout is a system-owed disbursement to a winning ticket holder. Created by
// draw settlement in status pending, driven to a terminal state only by the
// payout processor, never deleted. TxHash is set exactly once, on the
// transition into completed.
type Payout struct {
	ID               int64           `db:"id"`
	DrawID           int64           `db:"draw_id"`
	LotteryID        int64           `db:"lottery_id"`
	UserID           int64           `db:"user_id"`
	Amount           decimal.Decimal `db:"amount"`
	Currency         Currency        `db:"currency"`
	RecipientAddress string          `db:"recipient_address"`
	Status           PayoutStatus    `db:"status"`
	Attempts         int             `db:"attempts"`
	MaxAttempts      int             `db:"max_attempts"`
	SplitIndex       *int            `db:"split_index"`
	SplitTotal       *int            `db:"split_total"`
	TxHash           *string         `db:"tx_hash"`
	// Retryable distinguishes a cap-deferred failure (re-queueable) from an
	// exhausted-retries or unsupported-currency failure (terminal).
	Retryable   bool       `db:"retryable"`
	LastError   *string    `db:"last_error"`
	CreatedAt   time.Time  `db:"created_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// PayoutRecipient identifies one winner of a jackpot split
type PayoutRecipient struct {
	UserID  int64
	Address string
}

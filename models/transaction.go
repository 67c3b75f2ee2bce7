package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency identifies which asset a money movement is denominated in
type Currency string

const (
	// CurrencyNative is the chain's base coin
	CurrencyNative Currency = "native"
	// CurrencyToken is the stablecoin token carried on the chain
	CurrencyToken Currency = "token"
)

// Valid reports whether the currency is one the engine supports
func (c Currency) Valid() bool {
	return c == CurrencyNative || c == CurrencyToken
}

// TransactionType represents the kind of money movement
type TransactionType string

const (
	TransactionTypeDeposit        TransactionType = "deposit"
	TransactionTypeWithdrawal     TransactionType = "withdrawal"
	TransactionTypePayout         TransactionType = "payout"
	TransactionTypeTicketPurchase TransactionType = "ticket_purchase"
)

// TransactionStatus represents the lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	// TransactionStatusUnmatched marks an inbound transfer whose memo did not
	// resolve to any user. Held for manual review, never credited.
	TransactionStatusUnmatched TransactionStatus = "UNMATCHED"
)

// Transaction is the audit record of a money movement. TxHash, when present,
// is globally unique; that uniqueness is what makes deposit crediting
// idempotent.
type Transaction struct {
	ID          int64             `db:"id"`
	UserID      *int64            `db:"user_id"`
	Type        TransactionType   `db:"type"`
	Amount      decimal.Decimal   `db:"amount"`
	Currency    Currency          `db:"currency"`
	Status      TransactionStatus `db:"status"`
	TxHash      *string           `db:"tx_hash"`
	Reference   *string           `db:"reference"`
	FromAddress string            `db:"from_address"`
	ToAddress   string            `db:"to_address"`
	LastError   *string           `db:"last_error"`
	CreatedAt   time.Time         `db:"created_at"`
	CompletedAt *time.Time        `db:"completed_at"`
}

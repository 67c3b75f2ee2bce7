package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInsufficientPool reports a pool debit the pool balance cannot cover, as
// opposed to an infrastructure failure while recording it
var ErrInsufficientPool = errors.New("insufficient pool balance")

// FundPool names one of the per-lottery accounting pools
type FundPool string

const (
	FundPoolPrize    FundPool = "prize_pool"
	FundPoolReserve  FundPool = "reserve_pool"
	FundPoolPlatform FundPool = "platform_pool"
)

// FundTransactionType represents the kind of pool mutation
type FundTransactionType string

const (
	FundTransactionTypeGasFee       FundTransactionType = "gas_fee"
	FundTransactionTypePrizePayout  FundTransactionType = "prize_payout"
	FundTransactionTypeTicketIncome FundTransactionType = "ticket_income"
	FundTransactionTypeTopUp        FundTransactionType = "top_up"
)

// LotteryFund is the per (lottery, currency) accounting unit. Pool values are
// never negative.
type LotteryFund struct {
	LotteryID    int64           `db:"lottery_id"`
	Currency     Currency        `db:"currency"`
	PrizePool    decimal.Decimal `db:"prize_pool"`
	ReservePool  decimal.Decimal `db:"reserve_pool"`
	PlatformPool decimal.Decimal `db:"platform_pool"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// FundTransaction is an append-only ledger line paired with every pool
// mutation. Replaying all deltas for a pool from zero reproduces the current
// pool value.
type FundTransaction struct {
	ID               int64               `db:"id"`
	LotteryID        int64               `db:"lottery_id"`
	Currency         Currency            `db:"currency"`
	Type             FundTransactionType `db:"type"`
	Amount           decimal.Decimal     `db:"amount"`
	Pool             FundPool            `db:"pool"`
	PoolBalanceAfter decimal.Decimal     `db:"pool_balance_after"`
	Reference        *string             `db:"reference"`
	CreatedAt        time.Time           `db:"created_at"`
}

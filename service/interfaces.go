package service

import (
	"context"
	"time"

	"lottopay/chain"
	"lottopay/events"
	"lottopay/models"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user balance data access
type UserRepository interface {
	// GetByID retrieves a user by id
	GetByID(ctx context.Context, userID int64) (*models.User, error)

	// AddBalance adds to a user's balance atomically
	AddBalance(ctx context.Context, userID int64, amount decimal.Decimal) error

	// DeductBalance deducts from a user's balance atomically, failing if
	// insufficient funds
	DeductBalance(ctx context.Context, userID int64, amount decimal.Decimal) error
}

// TransactionFilter narrows and paginates transaction history queries
type TransactionFilter struct {
	Type  *models.TransactionType
	Page  int
	Limit int
}

// TransactionRepository defines the interface for money movement audit records
type TransactionRepository interface {
	// Create inserts a new transaction record. Fails if the external tx hash
	// is already recorded; that uniqueness is the deposit idempotency gate.
	Create(ctx context.Context, txn *models.Transaction) error

	// GetByID retrieves a transaction by id
	GetByID(ctx context.Context, id int64) (*models.Transaction, error)

	// ExistsByTxHash reports whether an external hash is already recorded
	ExistsByTxHash(ctx context.Context, txHash string) (bool, error)

	// MarkCompleted sets status COMPLETED with the external hash
	MarkCompleted(ctx context.Context, id int64, txHash string) error

	// MarkFailed sets status FAILED with the failure reason
	MarkFailed(ctx context.Context, id int64, reason string) error

	// GetByUser returns a page of a user's transactions, newest first, with
	// the total count for pagination
	GetByUser(ctx context.Context, userID int64, filter TransactionFilter) ([]*models.Transaction, int64, error)

	// SumCompletedByUserSince sums completed transactions of one type for a
	// user since the given time
	SumCompletedByUserSince(ctx context.Context, userID int64, txType models.TransactionType, since time.Time) (decimal.Decimal, error)

	// GetStalePending returns transactions of one type stuck in PENDING since
	// before the given time, oldest first
	GetStalePending(ctx context.Context, txType models.TransactionType, olderThan time.Time) ([]*models.Transaction, error)
}

// PayoutRepository defines the interface for the payout queue
type PayoutRepository interface {
	// CreateBatch inserts payouts in one statement, all pending
	CreateBatch(ctx context.Context, payouts []*models.Payout) error

	// GetByID retrieves a payout by id
	GetByID(ctx context.Context, id int64) (*models.Payout, error)

	// GetPending returns pending payouts ordered by creation time
	GetPending(ctx context.Context, limit int) ([]*models.Payout, error)

	// MarkProcessing transitions pending -> processing; returns false if the
	// payout was no longer pending (guards duplicate pickup)
	MarkProcessing(ctx context.Context, id int64) (bool, error)

	// MarkCompleted transitions processing -> completed and records the hash
	MarkCompleted(ctx context.Context, id int64, txHash string) error

	// MarkFailed transitions to failed. retryable marks a cap deferral that
	// an operator may re-queue, as opposed to a terminal failure.
	MarkFailed(ctx context.Context, id int64, reason string, retryable bool) error

	// MarkFailedAttempt terminally fails a processing payout whose last
	// permitted send attempt just failed, recording that attempt with the
	// failure
	MarkFailedAttempt(ctx context.Context, id int64, reason string) error

	// ReturnToPending increments attempts and puts a processing payout back
	// in the queue for the next pass
	ReturnToPending(ctx context.Context, id int64, reason string) error

	// SumCompletedSince sums completed payout amounts in a currency since the
	// given time
	SumCompletedSince(ctx context.Context, currency models.Currency, since time.Time) (decimal.Decimal, error)

	// RequeueRetryableFailed returns cap-deferred failures to pending and
	// reports how many were re-queued
	RequeueRetryableFailed(ctx context.Context) (int64, error)
}

// FundRepository defines the interface for per-lottery pool accounting.
// Every mutation pairs the pool update with an appended FundTransaction in
// the same statement sequence; callers run it inside a unit of work.
type FundRepository interface {
	// GetOrCreate retrieves the fund row for (lottery, currency), creating a
	// zeroed one if absent
	GetOrCreate(ctx context.Context, lotteryID int64, currency models.Currency) (*models.LotteryFund, error)

	// ReserveGas atomically checks reserve_pool >= amount, decrements it and
	// appends a gas_fee fund transaction. Returns false without mutation if
	// the reserve cannot cover the amount.
	ReserveGas(ctx context.Context, lotteryID int64, currency models.Currency, amount decimal.Decimal) (bool, error)

	// RecordPayout decrements the prize pool and appends a prize_payout fund
	// transaction referencing the external hash. A pool that cannot cover the
	// amount reports models.ErrInsufficientPool.
	RecordPayout(ctx context.Context, lotteryID int64, currency models.Currency, amount decimal.Decimal, txHash string) error

	// CreditPool adds to a pool and appends a fund transaction
	CreditPool(ctx context.Context, lotteryID int64, currency models.Currency, pool models.FundPool, txType models.FundTransactionType, amount decimal.Decimal) error

	// GetFundTransactions returns the audit log for (lottery, currency),
	// oldest first
	GetFundTransactions(ctx context.Context, lotteryID int64, currency models.Currency) ([]*models.FundTransaction, error)
}

// DepositMemoRepository defines the interface for single-use deposit memos
type DepositMemoRepository interface {
	// Create mints a new memo for a user
	Create(ctx context.Context, userID int64, memo string) (*models.DepositMemo, error)

	// GetUnusedByUser returns the user's current unused memo, nil if none
	GetUnusedByUser(ctx context.Context, userID int64) (*models.DepositMemo, error)

	// GetUnusedByMemo returns an unused memo matching the exact string, nil
	// if none
	GetUnusedByMemo(ctx context.Context, memo string) (*models.DepositMemo, error)

	// MarkUsed consumes a memo; returns false if it was already used. The
	// check and the write are one atomic step so no two inbound transfers can
	// consume the same memo.
	MarkUsed(ctx context.Context, id int64) (bool, error)
}

// CursorRepository persists the deposit monitor's position in the chain's
// transaction history
type CursorRepository interface {
	Get(ctx context.Context, account string) (string, error)
	Set(ctx context.Context, account string, cursor string) error
}

// DrawRepository defines read-only access to executed draws
type DrawRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Draw, error)
}

// ChainClient defines the ledger operations the settlement engine needs.
// Implementations must serialize sends internally: all outgoing transfers
// share one signing wallet whose message sequence must have no gaps.
type ChainClient interface {
	WalletAddress() string
	GetBalance(ctx context.Context, currency models.Currency) (decimal.Decimal, error)
	GetTransactions(ctx context.Context, cursor string, limit int) ([]chain.InboundTransfer, string, error)
	SendNative(ctx context.Context, to string, amount decimal.Decimal, comment string) (string, error)
	SendToken(ctx context.Context, to string, amount decimal.Decimal, comment string) (string, error)
	FindTransferByComment(ctx context.Context, comment string) (*chain.OutboundTransfer, error)
}

// DepositService defines the interface for deposit monitoring
type DepositService interface {
	// GetDepositInfo returns the wallet address, the user's current memo
	// (minting one if needed) and the minimum deposit per currency
	GetDepositInfo(ctx context.Context, userID int64) ([]*models.DepositInfo, error)

	// CheckDeposits polls the chain for new inbound transfers and credits
	// matching users. Safe to invoke concurrently with itself; crediting is
	// idempotent on the external hash.
	CheckDeposits(ctx context.Context) error
}

// WithdrawalService defines the interface for user-initiated payouts
type WithdrawalService interface {
	// RequestWithdrawal validates and executes a withdrawal. Expected
	// failures come back in the result, not as an error.
	RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, toAddress string, currency models.Currency) (*models.WithdrawalResult, error)

	// GetWithdrawalInfo returns the user's balance and daily allowance
	GetWithdrawalInfo(ctx context.Context, userID int64) (*models.WithdrawalInfo, error)

	// GetTransactionHistory returns a page of the user's transactions
	GetTransactionHistory(ctx context.Context, userID int64, filter TransactionFilter) ([]*models.Transaction, int64, error)

	// ReconcilePendingWithdrawals resolves withdrawals left PENDING by a
	// crash between debit and outcome: complete if the transfer landed on
	// chain, otherwise refund and fail. Run at startup.
	ReconcilePendingWithdrawals(ctx context.Context, olderThan time.Duration) error
}

// PayoutService defines the interface for the prize payout queue
type PayoutService interface {
	// EnqueueJackpotPayouts splits a prize total equally across winners and
	// queues one payout per winner
	EnqueueJackpotPayouts(ctx context.Context, drawID, lotteryID int64, currency models.Currency, total decimal.Decimal, winners []models.PayoutRecipient) ([]*models.Payout, error)

	// ProcessPendingPayouts drains a batch of the payout queue. At most one
	// pass runs at a time per process; overlapping invocations return
	// immediately with no result.
	ProcessPendingPayouts(ctx context.Context) (*models.PayoutRunResult, error)

	// RequeueCappedPayouts returns cap-deferred payouts to the queue
	RequeueCappedPayouts(ctx context.Context) (int64, error)
}

// FairnessService defines the interface for draw verification
type FairnessService interface {
	// VerifyDraw recomputes a draw's winning numbers from its revealed seeds
	// and checks them and the server-seed commitment against the stored draw
	VerifyDraw(ctx context.Context, drawID int64) (*models.DrawVerification, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	TransactionRepository() TransactionRepository
	PayoutRepository() PayoutRepository
	FundRepository() FundRepository
	DepositMemoRepository() DepositMemoRepository
	CursorRepository() CursorRepository
	DrawRepository() DrawRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

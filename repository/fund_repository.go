package repository

import (
	"context"
	"fmt"

	"lottopay/database"
	"lottopay/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// FundRepository implements the service.FundRepository interface. Every pool
// mutation appends a matching fund_transactions row carrying the pool balance
// after the change; callers run mutations inside a unit of work so the pair
// commits or rolls back together.
type FundRepository struct {
	q queryable
}

// NewFundRepository creates a new fund repository
func NewFundRepository(db *database.DB) *FundRepository {
	return &FundRepository{q: db.Pool}
}

// newFundRepositoryWithTx creates a new fund repository with a transaction
func newFundRepositoryWithTx(tx queryable) *FundRepository {
	return &FundRepository{q: tx}
}

// GetOrCreate retrieves the fund row for (lottery, currency), creating a
// zeroed one if absent
func (r *FundRepository) GetOrCreate(ctx context.Context, lotteryID int64, currency models.Currency) (*models.LotteryFund, error) {
	query := `
		INSERT INTO lottery_funds (lottery_id, currency)
		VALUES ($1, $2)
		ON CONFLICT (lottery_id, currency) DO UPDATE SET lottery_id = EXCLUDED.lottery_id
		RETURNING lottery_id, currency, prize_pool, reserve_pool, platform_pool, updated_at
	`

	var fund models.LotteryFund
	err := r.q.QueryRow(ctx, query, lotteryID, currency).Scan(
		&fund.LotteryID,
		&fund.Currency,
		&fund.PrizePool,
		&fund.ReservePool,
		&fund.PlatformPool,
		&fund.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get fund for lottery %d (%s): %w", lotteryID, currency, err)
	}

	return &fund, nil
}

// ReserveGas atomically checks reserve_pool >= amount, decrements it and
// appends a gas_fee fund transaction. Returns false without mutation if the
// reserve cannot cover the amount.
func (r *FundRepository) ReserveGas(ctx context.Context, lotteryID int64, currency models.Currency, amount decimal.Decimal) (bool, error) {
	query := `
		UPDATE lottery_funds
		SET reserve_pool = reserve_pool - $3, updated_at = NOW()
		WHERE lottery_id = $1 AND currency = $2 AND reserve_pool >= $3
		RETURNING reserve_pool
	`

	var balanceAfter decimal.Decimal
	err := r.q.QueryRow(ctx, query, lotteryID, currency, amount).Scan(&balanceAfter)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to reserve gas for lottery %d: %w", lotteryID, err)
	}

	if err := r.appendFundTransaction(ctx, lotteryID, currency, models.FundTransactionTypeGasFee, amount.Neg(), models.FundPoolReserve, balanceAfter, nil); err != nil {
		return false, err
	}

	return true, nil
}

// RecordPayout decrements the prize pool and appends a prize_payout fund
// transaction referencing the external hash
func (r *FundRepository) RecordPayout(ctx context.Context, lotteryID int64, currency models.Currency, amount decimal.Decimal, txHash string) error {
	query := `
		UPDATE lottery_funds
		SET prize_pool = prize_pool - $3, updated_at = NOW()
		WHERE lottery_id = $1 AND currency = $2 AND prize_pool >= $3
		RETURNING prize_pool
	`

	var balanceAfter decimal.Decimal
	err := r.q.QueryRow(ctx, query, lotteryID, currency, amount).Scan(&balanceAfter)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("prize pool for lottery %d (%s) cannot cover %s: %w", lotteryID, currency, amount, models.ErrInsufficientPool)
	}
	if err != nil {
		return fmt.Errorf("failed to record payout for lottery %d: %w", lotteryID, err)
	}

	return r.appendFundTransaction(ctx, lotteryID, currency, models.FundTransactionTypePrizePayout, amount.Neg(), models.FundPoolPrize, balanceAfter, &txHash)
}

// CreditPool adds to a pool and appends a fund transaction
func (r *FundRepository) CreditPool(ctx context.Context, lotteryID int64, currency models.Currency, pool models.FundPool, txType models.FundTransactionType, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	var column string
	switch pool {
	case models.FundPoolPrize:
		column = "prize_pool"
	case models.FundPoolReserve:
		column = "reserve_pool"
	case models.FundPoolPlatform:
		column = "platform_pool"
	default:
		return fmt.Errorf("unknown pool %q", pool)
	}

	query := fmt.Sprintf(`
		UPDATE lottery_funds
		SET %s = %s + $3, updated_at = NOW()
		WHERE lottery_id = $1 AND currency = $2
		RETURNING %s`, column, column, column)

	var balanceAfter decimal.Decimal
	err := r.q.QueryRow(ctx, query, lotteryID, currency, amount).Scan(&balanceAfter)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("fund for lottery %d (%s) not found", lotteryID, currency)
	}
	if err != nil {
		return fmt.Errorf("failed to credit %s for lottery %d: %w", pool, lotteryID, err)
	}

	return r.appendFundTransaction(ctx, lotteryID, currency, txType, amount, pool, balanceAfter, nil)
}

// GetFundTransactions returns the audit log for (lottery, currency), oldest
// first
func (r *FundRepository) GetFundTransactions(ctx context.Context, lotteryID int64, currency models.Currency) ([]*models.FundTransaction, error) {
	query := `
		SELECT id, lottery_id, currency, type, amount, pool, pool_balance_after, reference, created_at
		FROM fund_transactions
		WHERE lottery_id = $1 AND currency = $2
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, lotteryID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to get fund transactions for lottery %d: %w", lotteryID, err)
	}
	defer rows.Close()

	var txns []*models.FundTransaction
	for rows.Next() {
		var ft models.FundTransaction
		err := rows.Scan(
			&ft.ID,
			&ft.LotteryID,
			&ft.Currency,
			&ft.Type,
			&ft.Amount,
			&ft.Pool,
			&ft.PoolBalanceAfter,
			&ft.Reference,
			&ft.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund transaction: %w", err)
		}
		txns = append(txns, &ft)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fund transactions: %w", err)
	}

	return txns, nil
}

func (r *FundRepository) appendFundTransaction(ctx context.Context, lotteryID int64, currency models.Currency, txType models.FundTransactionType, amount decimal.Decimal, pool models.FundPool, balanceAfter decimal.Decimal, reference *string) error {
	query := `
		INSERT INTO fund_transactions (lottery_id, currency, type, amount, pool, pool_balance_after, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query, lotteryID, currency, txType, amount, pool, balanceAfter, reference)
	if err != nil {
		return fmt.Errorf("failed to append fund transaction: %w", err)
	}

	return nil
}

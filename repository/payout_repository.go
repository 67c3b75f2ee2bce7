package repository

import (
	"context"
	"fmt"
	"time"

	"lottopay/database"
	"lottopay/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PayoutRepository implements the service.PayoutRepository interface
type PayoutRepository struct {
	q queryable
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *database.DB) *PayoutRepository {
	return &PayoutRepository{q: db.Pool}
}

// newPayoutRepositoryWithTx creates a new payout repository with a transaction
func newPayoutRepositoryWithTx(tx queryable) *PayoutRepository {
	return &PayoutRepository{q: tx}
}

const payoutColumns = `
	id, draw_id, lottery_id, user_id, amount, currency, recipient_address,
	status, attempts, max_attempts, split_index, split_total, tx_hash,
	retryable, last_error, created_at, completed_at`

func scanPayout(row pgx.Row) (*models.Payout, error) {
	var p models.Payout
	err := row.Scan(
		&p.ID,
		&p.DrawID,
		&p.LotteryID,
		&p.UserID,
		&p.Amount,
		&p.Currency,
		&p.RecipientAddress,
		&p.Status,
		&p.Attempts,
		&p.MaxAttempts,
		&p.SplitIndex,
		&p.SplitTotal,
		&p.TxHash,
		&p.Retryable,
		&p.LastError,
		&p.CreatedAt,
		&p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateBatch inserts payouts in one statement, all pending
func (r *PayoutRepository) CreateBatch(ctx context.Context, payouts []*models.Payout) error {
	if len(payouts) == 0 {
		return nil
	}

	query := `
		INSERT INTO payouts
		(draw_id, lottery_id, user_id, amount, currency, recipient_address, max_attempts, split_index, split_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, status, attempts, created_at
	`

	for _, p := range payouts {
		err := r.q.QueryRow(ctx, query,
			p.DrawID,
			p.LotteryID,
			p.UserID,
			p.Amount,
			p.Currency,
			p.RecipientAddress,
			p.MaxAttempts,
			p.SplitIndex,
			p.SplitTotal,
		).Scan(&p.ID, &p.Status, &p.Attempts, &p.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create payout for user %d: %w", p.UserID, err)
		}
	}

	return nil
}

// GetByID retrieves a payout by id
func (r *PayoutRepository) GetByID(ctx context.Context, id int64) (*models.Payout, error) {
	query := `SELECT` + payoutColumns + `
		FROM payouts WHERE id = $1`

	p, err := scanPayout(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout %d: %w", id, err)
	}

	return p, nil
}

// GetPending returns pending payouts ordered by creation time
func (r *PayoutRepository) GetPending(ctx context.Context, limit int) ([]*models.Payout, error) {
	query := `SELECT` + payoutColumns + `
		FROM payouts
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, models.PayoutStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*models.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payouts: %w", err)
	}

	return payouts, nil
}

// MarkProcessing transitions pending -> processing; returns false if the
// payout was no longer pending
func (r *PayoutRepository) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE payouts
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query, models.PayoutStatusProcessing, id, models.PayoutStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark payout %d processing: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

// MarkCompleted transitions processing -> completed and records the hash.
// The status guard makes the hash assignment a set-exactly-once transition.
func (r *PayoutRepository) MarkCompleted(ctx context.Context, id int64, txHash string) error {
	query := `
		UPDATE payouts
		SET status = $1, tx_hash = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4 AND tx_hash IS NULL
	`

	result, err := r.q.Exec(ctx, query, models.PayoutStatusCompleted, txHash, id, models.PayoutStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to complete payout %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payout %d was not in processing state", id)
	}

	return nil
}

// MarkFailed transitions to failed
func (r *PayoutRepository) MarkFailed(ctx context.Context, id int64, reason string, retryable bool) error {
	query := `
		UPDATE payouts
		SET status = $1, last_error = $2, retryable = $3, completed_at = NOW()
		WHERE id = $4
	`

	result, err := r.q.Exec(ctx, query, models.PayoutStatusFailed, reason, retryable, id)
	if err != nil {
		return fmt.Errorf("failed to fail payout %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payout %d not found", id)
	}

	return nil
}

// MarkFailedAttempt terminally fails a processing payout whose last permitted
// send attempt just failed, recording that attempt with the failure
func (r *PayoutRepository) MarkFailedAttempt(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE payouts
		SET status = $1, attempts = attempts + 1, last_error = $2, retryable = FALSE, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.Exec(ctx, query, models.PayoutStatusFailed, reason, id, models.PayoutStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to fail payout %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payout %d was not in processing state", id)
	}

	return nil
}

// ReturnToPending increments attempts and puts a processing payout back in
// the queue for the next pass. No busy-retry within the same pass.
func (r *PayoutRepository) ReturnToPending(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE payouts
		SET status = $1, attempts = attempts + 1, last_error = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.Exec(ctx, query, models.PayoutStatusPending, reason, id, models.PayoutStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to return payout %d to pending: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payout %d was not in processing state", id)
	}

	return nil
}

// SumCompletedSince sums completed payout amounts in a currency since the
// given time
func (r *PayoutRepository) SumCompletedSince(ctx context.Context, currency models.Currency, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payouts
		WHERE currency = $1 AND status = $2 AND completed_at >= $3
	`

	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, query, currency, models.PayoutStatusCompleted, since).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum completed payouts: %w", err)
	}

	return sum, nil
}

// RequeueRetryableFailed returns cap-deferred failures to pending
func (r *PayoutRepository) RequeueRetryableFailed(ctx context.Context) (int64, error) {
	query := `
		UPDATE payouts
		SET status = $1, retryable = FALSE, last_error = NULL, completed_at = NULL
		WHERE status = $2 AND retryable
	`

	result, err := r.q.Exec(ctx, query, models.PayoutStatusPending, models.PayoutStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue capped payouts: %w", err)
	}

	return result.RowsAffected(), nil
}

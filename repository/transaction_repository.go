package repository

import (
	"context"
	"fmt"
	"time"

	"lottopay/database"
	"lottopay/models"
	"lottopay/service"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements the service.TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

const transactionColumns = `
	id, user_id, type, amount, currency, status, tx_hash, reference,
	from_address, to_address, last_error, created_at, completed_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Type,
		&txn.Amount,
		&txn.Currency,
		&txn.Status,
		&txn.TxHash,
		&txn.Reference,
		&txn.FromAddress,
		&txn.ToAddress,
		&txn.LastError,
		&txn.CreatedAt,
		&txn.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Create inserts a new transaction record. The unique index on tx_hash
// rejects a duplicate external hash here, which is what makes deposit
// crediting idempotent.
func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions
		(user_id, type, amount, currency, status, tx_hash, reference, from_address, to_address, last_error, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		txn.UserID,
		txn.Type,
		txn.Amount,
		txn.Currency,
		txn.Status,
		txn.TxHash,
		txn.Reference,
		txn.FromAddress,
		txn.ToAddress,
		txn.LastError,
		txn.CompletedAt,
	).Scan(&txn.ID, &txn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by id
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions WHERE id = $1`

	txn, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}

	return txn, nil
}

// ExistsByTxHash reports whether an external hash is already recorded
func (r *TransactionRepository) ExistsByTxHash(ctx context.Context, txHash string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE tx_hash = $1)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, txHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check tx hash: %w", err)
	}

	return exists, nil
}

// MarkCompleted sets status COMPLETED with the external hash
func (r *TransactionRepository) MarkCompleted(ctx context.Context, id int64, txHash string) error {
	query := `
		UPDATE transactions
		SET status = $1, tx_hash = $2, completed_at = NOW()
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, models.TransactionStatusCompleted, txHash, id)
	if err != nil {
		return fmt.Errorf("failed to complete transaction %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d not found", id)
	}

	return nil
}

// MarkFailed sets status FAILED with the failure reason
func (r *TransactionRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE transactions
		SET status = $1, last_error = $2, completed_at = NOW()
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, models.TransactionStatusFailed, reason, id)
	if err != nil {
		return fmt.Errorf("failed to fail transaction %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d not found", id)
	}

	return nil
}

// GetByUser returns a page of a user's transactions, newest first, with the
// total count for pagination
func (r *TransactionRepository) GetByUser(ctx context.Context, userID int64, filter service.TransactionFilter) ([]*models.Transaction, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := `WHERE user_id = $1`
	args := []any{userID}
	if filter.Type != nil {
		where += ` AND type = $2`
		args = append(args, *filter.Type)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions ` + where
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := fmt.Sprintf(`SELECT`+transactionColumns+`
		FROM transactions %s
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, total, nil
}

// SumCompletedByUserSince sums completed transactions of one type for a user
// since the given time
func (r *TransactionRepository) SumCompletedByUserSince(ctx context.Context, userID int64, txType models.TransactionType, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND type = $2 AND status = $3 AND completed_at >= $4
	`

	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, query, userID, txType, models.TransactionStatusCompleted, since).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s transactions for user %d: %w", txType, userID, err)
	}

	return sum, nil
}

// GetStalePending returns transactions of one type stuck in PENDING since
// before the given time, oldest first
func (r *TransactionRepository) GetStalePending(ctx context.Context, txType models.TransactionType, olderThan time.Time) ([]*models.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE type = $1 AND status = $2 AND created_at < $3
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query, txType, models.TransactionStatusPending, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale pending transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}

package repository

import (
	"context"
	"fmt"

	"lottopay/database"
	"lottopay/models"

	"github.com/jackc/pgx/v5"
)

// DepositMemoRepository implements the service.DepositMemoRepository interface
type DepositMemoRepository struct {
	q queryable
}

// NewDepositMemoRepository creates a new deposit memo repository
func NewDepositMemoRepository(db *database.DB) *DepositMemoRepository {
	return &DepositMemoRepository{q: db.Pool}
}

// newDepositMemoRepositoryWithTx creates a new deposit memo repository with a transaction
func newDepositMemoRepositoryWithTx(tx queryable) *DepositMemoRepository {
	return &DepositMemoRepository{q: tx}
}

const depositMemoColumns = `id, user_id, memo, used, created_at, used_at`

func scanDepositMemo(row pgx.Row) (*models.DepositMemo, error) {
	var m models.DepositMemo
	err := row.Scan(&m.ID, &m.UserID, &m.Memo, &m.Used, &m.CreatedAt, &m.UsedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create mints a new memo for a user
func (r *DepositMemoRepository) Create(ctx context.Context, userID int64, memo string) (*models.DepositMemo, error) {
	query := `
		INSERT INTO deposit_memos (user_id, memo)
		VALUES ($1, $2)
		RETURNING ` + depositMemoColumns

	m, err := scanDepositMemo(r.q.QueryRow(ctx, query, userID, memo))
	if err != nil {
		return nil, fmt.Errorf("failed to create deposit memo for user %d: %w", userID, err)
	}

	return m, nil
}

// GetUnusedByUser returns the user's current unused memo, nil if none
func (r *DepositMemoRepository) GetUnusedByUser(ctx context.Context, userID int64) (*models.DepositMemo, error) {
	query := `
		SELECT ` + depositMemoColumns + `
		FROM deposit_memos
		WHERE user_id = $1 AND NOT used
		ORDER BY created_at DESC
		LIMIT 1
	`

	m, err := scanDepositMemo(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unused memo for user %d: %w", userID, err)
	}

	return m, nil
}

// GetUnusedByMemo returns an unused memo matching the exact string, nil if none
func (r *DepositMemoRepository) GetUnusedByMemo(ctx context.Context, memo string) (*models.DepositMemo, error) {
	query := `
		SELECT ` + depositMemoColumns + `
		FROM deposit_memos
		WHERE memo = $1 AND NOT used
	`

	m, err := scanDepositMemo(r.q.QueryRow(ctx, query, memo))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up memo: %w", err)
	}

	return m, nil
}

// MarkUsed consumes a memo; returns false if it was already used. The
// conditional UPDATE makes consumption atomic so two inbound transfers cannot
// both claim the same memo.
func (r *DepositMemoRepository) MarkUsed(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE deposit_memos
		SET used = TRUE, used_at = NOW()
		WHERE id = $1 AND NOT used
	`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark memo %d used: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

package repository

import (
	"context"
	"fmt"

	"lottopay/database"

	"github.com/jackc/pgx/v5"
)

// CursorRepository implements the service.CursorRepository interface. The
// deposit monitor persists its position per watched account so a restart
// resumes where the last poll left off.
type CursorRepository struct {
	q queryable
}

// NewCursorRepository creates a new cursor repository
func NewCursorRepository(db *database.DB) *CursorRepository {
	return &CursorRepository{q: db.Pool}
}

// newCursorRepositoryWithTx creates a new cursor repository with a transaction
func newCursorRepositoryWithTx(tx queryable) *CursorRepository {
	return &CursorRepository{q: tx}
}

// Get returns the stored cursor for an account, empty string if none
func (r *CursorRepository) Get(ctx context.Context, account string) (string, error) {
	query := `SELECT last_cursor FROM chain_cursors WHERE account = $1`

	var cursor string
	err := r.q.QueryRow(ctx, query, account).Scan(&cursor)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cursor for %s: %w", account, err)
	}

	return cursor, nil
}

// Set upserts the cursor for an account
func (r *CursorRepository) Set(ctx context.Context, account string, cursor string) error {
	query := `
		INSERT INTO chain_cursors (account, last_cursor)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET last_cursor = EXCLUDED.last_cursor, updated_at = NOW()
	`

	_, err := r.q.Exec(ctx, query, account, cursor)
	if err != nil {
		return fmt.Errorf("failed to set cursor for %s: %w", account, err)
	}

	return nil
}

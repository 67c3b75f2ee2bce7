package repository

import (
	"context"
	"fmt"

	"lottopay/database"
	"lottopay/models"

	"github.com/jackc/pgx/v5"
)

// DrawRepository implements the service.DrawRepository interface
type DrawRepository struct {
	q queryable
}

// NewDrawRepository creates a new draw repository
func NewDrawRepository(db *database.DB) *DrawRepository {
	return &DrawRepository{q: db.Pool}
}

// newDrawRepositoryWithTx creates a new draw repository with a transaction
func newDrawRepositoryWithTx(tx queryable) *DrawRepository {
	return &DrawRepository{q: tx}
}

// GetByID retrieves a draw by id
func (r *DrawRepository) GetByID(ctx context.Context, id int64) (*models.Draw, error) {
	query := `
		SELECT id, lottery_id, server_seed_hash, server_seed, client_seed,
		       nonce, winning_numbers, numbers_count, numbers_max, drawn_at, created_at
		FROM draws
		WHERE id = $1
	`

	var draw models.Draw
	var numbers []int32
	err := r.q.QueryRow(ctx, query, id).Scan(
		&draw.ID,
		&draw.LotteryID,
		&draw.ServerSeedHash,
		&draw.ServerSeed,
		&draw.ClientSeed,
		&draw.Nonce,
		&numbers,
		&draw.NumbersCount,
		&draw.NumbersMax,
		&draw.DrawnAt,
		&draw.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw %d: %w", id, err)
	}

	draw.WinningNumbers = make([]int, len(numbers))
	for i, n := range numbers {
		draw.WinningNumbers[i] = int(n)
	}

	return &draw, nil
}

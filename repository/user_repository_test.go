package repository

import (
	"context"
	"testing"

	"lottopay/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Balance(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, err := repo.Create(ctx, "player")
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero())

	t.Run("add and deduct", func(t *testing.T) {
		require.NoError(t, repo.AddBalance(ctx, user.ID, decimal.RequireFromString("50")))
		require.NoError(t, repo.DeductBalance(ctx, user.ID, decimal.RequireFromString("20")))

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.RequireFromString("30")))
	})

	t.Run("deduct refuses insufficient balance", func(t *testing.T) {
		err := repo.DeductBalance(ctx, user.ID, decimal.RequireFromString("1000"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient balance")

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.RequireFromString("30")))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		assert.Error(t, repo.AddBalance(ctx, user.ID, decimal.Zero))
		assert.Error(t, repo.DeductBalance(ctx, user.ID, decimal.RequireFromString("-5")))
	})

	t.Run("unknown user", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 99999)
		require.NoError(t, err)
		assert.Nil(t, got)

		assert.Error(t, repo.AddBalance(ctx, 99999, decimal.NewFromInt(1)))
	})
}

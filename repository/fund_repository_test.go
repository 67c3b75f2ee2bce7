package repository

import (
	"context"
	"errors"
	"testing"

	"lottopay/models"
	"lottopay/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFundRepository_GetOrCreate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewFundRepository(testDB.DB)
	ctx := context.Background()

	t.Run("creates zeroed fund when absent", func(t *testing.T) {
		fund, err := repo.GetOrCreate(ctx, 1, models.CurrencyNative)
		require.NoError(t, err)
		require.NotNil(t, fund)

		assert.Equal(t, int64(1), fund.LotteryID)
		assert.Equal(t, models.CurrencyNative, fund.Currency)
		assert.True(t, fund.PrizePool.IsZero())
		assert.True(t, fund.ReservePool.IsZero())
		assert.True(t, fund.PlatformPool.IsZero())
	})

	t.Run("returns existing fund with balances", func(t *testing.T) {
		_, err := repo.GetOrCreate(ctx, 2, models.CurrencyToken)
		require.NoError(t, err)

		err = repo.CreditPool(ctx, 2, models.CurrencyToken, models.FundPoolPrize, models.FundTransactionTypeTopUp, decimal.RequireFromString("500"))
		require.NoError(t, err)

		fund, err := repo.GetOrCreate(ctx, 2, models.CurrencyToken)
		require.NoError(t, err)
		assert.True(t, fund.PrizePool.Equal(decimal.RequireFromString("500")))
	})

	t.Run("currencies are separate funds", func(t *testing.T) {
		native, err := repo.GetOrCreate(ctx, 3, models.CurrencyNative)
		require.NoError(t, err)
		token, err := repo.GetOrCreate(ctx, 3, models.CurrencyToken)
		require.NoError(t, err)

		err = repo.CreditPool(ctx, 3, models.CurrencyNative, models.FundPoolReserve, models.FundTransactionTypeTopUp, decimal.RequireFromString("10"))
		require.NoError(t, err)

		native, err = repo.GetOrCreate(ctx, 3, models.CurrencyNative)
		require.NoError(t, err)
		token, err = repo.GetOrCreate(ctx, 3, models.CurrencyToken)
		require.NoError(t, err)

		assert.True(t, native.ReservePool.Equal(decimal.RequireFromString("10")))
		assert.True(t, token.ReservePool.IsZero())
	})
}

func TestFundRepository_ReserveGas(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewFundRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, 1, models.CurrencyNative)
	require.NoError(t, err)
	err = repo.CreditPool(ctx, 1, models.CurrencyNative, models.FundPoolReserve, models.FundTransactionTypeTopUp, decimal.RequireFromString("1.0"))
	require.NoError(t, err)

	t.Run("reserves when covered", func(t *testing.T) {
		ok, err := repo.ReserveGas(ctx, 1, models.CurrencyNative, decimal.RequireFromString("0.3"))
		require.NoError(t, err)
		assert.True(t, ok)

		fund, err := repo.GetOrCreate(ctx, 1, models.CurrencyNative)
		require.NoError(t, err)
		assert.True(t, fund.ReservePool.Equal(decimal.RequireFromString("0.7")))
	})

	t.Run("refuses without mutation when short", func(t *testing.T) {
		ok, err := repo.ReserveGas(ctx, 1, models.CurrencyNative, decimal.RequireFromString("5.0"))
		require.NoError(t, err)
		assert.False(t, ok)

		fund, err := repo.GetOrCreate(ctx, 1, models.CurrencyNative)
		require.NoError(t, err)
		assert.True(t, fund.ReservePool.Equal(decimal.RequireFromString("0.7")))
	})

	t.Run("appends a negative gas_fee ledger line", func(t *testing.T) {
		txns, err := repo.GetFundTransactions(ctx, 1, models.CurrencyNative)
		require.NoError(t, err)

		var gasLines []*models.FundTransaction
		for _, ft := range txns {
			if ft.Type == models.FundTransactionTypeGasFee {
				gasLines = append(gasLines, ft)
			}
		}

		// The refused reservation must not have appended anything
		require.Len(t, gasLines, 1)
		assert.True(t, gasLines[0].Amount.Equal(decimal.RequireFromString("-0.3")))
		assert.Equal(t, models.FundPoolReserve, gasLines[0].Pool)
		assert.True(t, gasLines[0].PoolBalanceAfter.Equal(decimal.RequireFromString("0.7")))
	})
}

func TestFundRepository_RecordPayout(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewFundRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, 1, models.CurrencyToken)
	require.NoError(t, err)
	err = repo.CreditPool(ctx, 1, models.CurrencyToken, models.FundPoolPrize, models.FundTransactionTypeTicketIncome, decimal.RequireFromString("1000"))
	require.NoError(t, err)

	t.Run("debits prize pool and references the hash", func(t *testing.T) {
		err := repo.RecordPayout(ctx, 1, models.CurrencyToken, decimal.RequireFromString("400"), "hash-abc")
		require.NoError(t, err)

		fund, err := repo.GetOrCreate(ctx, 1, models.CurrencyToken)
		require.NoError(t, err)
		assert.True(t, fund.PrizePool.Equal(decimal.RequireFromString("600")))

		txns, err := repo.GetFundTransactions(ctx, 1, models.CurrencyToken)
		require.NoError(t, err)
		last := txns[len(txns)-1]
		assert.Equal(t, models.FundTransactionTypePrizePayout, last.Type)
		require.NotNil(t, last.Reference)
		assert.Equal(t, "hash-abc", *last.Reference)
	})

	t.Run("fails when pool cannot cover", func(t *testing.T) {
		err := repo.RecordPayout(ctx, 1, models.CurrencyToken, decimal.RequireFromString("9999"), "hash-def")
		require.Error(t, err)
		// Callers tell a shortfall apart from infrastructure failures
		assert.True(t, errors.Is(err, models.ErrInsufficientPool))

		fund, err := repo.GetOrCreate(ctx, 1, models.CurrencyToken)
		require.NoError(t, err)
		assert.True(t, fund.PrizePool.Equal(decimal.RequireFromString("600")))
	})
}

func TestFundRepository_AuditReplay(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewFundRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, 7, models.CurrencyNative)
	require.NoError(t, err)

	// A mix of credits and debits against the prize pool
	require.NoError(t, repo.CreditPool(ctx, 7, models.CurrencyNative, models.FundPoolPrize, models.FundTransactionTypeTicketIncome, decimal.RequireFromString("300")))
	require.NoError(t, repo.CreditPool(ctx, 7, models.CurrencyNative, models.FundPoolPrize, models.FundTransactionTypeTopUp, decimal.RequireFromString("50")))
	require.NoError(t, repo.RecordPayout(ctx, 7, models.CurrencyNative, decimal.RequireFromString("120"), "hash-replay"))

	txns, err := repo.GetFundTransactions(ctx, 7, models.CurrencyNative)
	require.NoError(t, err)

	// Replaying all prize pool deltas from zero reproduces the current value
	replayed := decimal.Zero
	for _, ft := range txns {
		if ft.Pool == models.FundPoolPrize {
			replayed = replayed.Add(ft.Amount)
			assert.True(t, replayed.Equal(ft.PoolBalanceAfter),
				"running balance diverged at fund transaction %d", ft.ID)
		}
	}

	fund, err := repo.GetOrCreate(ctx, 7, models.CurrencyNative)
	require.NoError(t, err)
	assert.True(t, replayed.Equal(fund.PrizePool))
	assert.True(t, fund.PrizePool.Equal(decimal.RequireFromString("230")))
}

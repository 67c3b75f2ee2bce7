package repository

import (
	"context"
	"testing"
	"time"

	"lottopay/models"
	"lottopay/repository/testutil"
	"lottopay/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRepository_TxHashUniqueness(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewTransactionRepository(testDB.DB)
	ctx := context.Background()

	user, err := userRepo.Create(ctx, "depositor")
	require.NoError(t, err)

	hash := "chain-hash-1"
	txn := testutil.CreateTestTransaction(user.ID, models.TransactionTypeDeposit, "25")
	txn.TxHash = &hash
	txn.Status = models.TransactionStatusCompleted
	require.NoError(t, repo.Create(ctx, txn))

	exists, err := repo.ExistsByTxHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByTxHash(ctx, "chain-hash-2")
	require.NoError(t, err)
	assert.False(t, exists)

	// The unique index is the idempotency gate: a second record carrying the
	// same external hash must be rejected
	dup := testutil.CreateTestTransaction(user.ID, models.TransactionTypeDeposit, "25")
	dup.TxHash = &hash
	assert.Error(t, repo.Create(ctx, dup))
}

func TestTransactionRepository_Lifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewTransactionRepository(testDB.DB)
	ctx := context.Background()

	user, err := userRepo.Create(ctx, "withdrawer")
	require.NoError(t, err)

	t.Run("complete records hash and timestamp", func(t *testing.T) {
		txn := testutil.CreateTestTransaction(user.ID, models.TransactionTypeWithdrawal, "10")
		require.NoError(t, repo.Create(ctx, txn))

		require.NoError(t, repo.MarkCompleted(ctx, txn.ID, "send-hash"))

		got, err := repo.GetByID(ctx, txn.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.TransactionStatusCompleted, got.Status)
		require.NotNil(t, got.TxHash)
		assert.Equal(t, "send-hash", *got.TxHash)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("fail records the reason", func(t *testing.T) {
		txn := testutil.CreateTestTransaction(user.ID, models.TransactionTypeWithdrawal, "10")
		require.NoError(t, repo.Create(ctx, txn))

		require.NoError(t, repo.MarkFailed(ctx, txn.ID, "transfer failed"))

		got, err := repo.GetByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusFailed, got.Status)
		require.NotNil(t, got.LastError)
		assert.Equal(t, "transfer failed", *got.LastError)
	})

	t.Run("unknown id errors", func(t *testing.T) {
		assert.Error(t, repo.MarkCompleted(ctx, 99999, "hash"))
		assert.Error(t, repo.MarkFailed(ctx, 99999, "reason"))
	})
}

func TestTransactionRepository_GetByUser(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewTransactionRepository(testDB.DB)
	ctx := context.Background()

	user, err := userRepo.Create(ctx, "history")
	require.NoError(t, err)
	other, err := userRepo.Create(ctx, "someone-else")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestTransaction(user.ID, models.TransactionTypeDeposit, "5")))
	}
	require.NoError(t, repo.Create(ctx, testutil.CreateTestTransaction(user.ID, models.TransactionTypeWithdrawal, "2")))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestTransaction(other.ID, models.TransactionTypeDeposit, "7")))

	t.Run("pages with total count", func(t *testing.T) {
		txns, total, err := repo.GetByUser(ctx, user.ID, service.TransactionFilter{Page: 1, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, txns, 3)

		txns, _, err = repo.GetByUser(ctx, user.ID, service.TransactionFilter{Page: 2, Limit: 3})
		require.NoError(t, err)
		assert.Len(t, txns, 1)
	})

	t.Run("filters by type", func(t *testing.T) {
		withdrawalType := models.TransactionTypeWithdrawal
		txns, total, err := repo.GetByUser(ctx, user.ID, service.TransactionFilter{Type: &withdrawalType, Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, txns, 1)
		assert.Equal(t, models.TransactionTypeWithdrawal, txns[0].Type)
	})

	t.Run("never returns another user's rows", func(t *testing.T) {
		txns, total, err := repo.GetByUser(ctx, other.ID, service.TransactionFilter{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, txns, 1)
		assert.Equal(t, &other.ID, txns[0].UserID)
	})
}

func TestTransactionRepository_SumCompletedByUserSince(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewTransactionRepository(testDB.DB)
	ctx := context.Background()

	user, err := userRepo.Create(ctx, "limited")
	require.NoError(t, err)

	since := time.Now().Add(-1 * time.Hour)

	sum, err := repo.SumCompletedByUserSince(ctx, user.ID, models.TransactionTypeWithdrawal, since)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())

	for _, amount := range []string{"10", "15.5"} {
		txn := testutil.CreateTestTransaction(user.ID, models.TransactionTypeWithdrawal, amount)
		require.NoError(t, repo.Create(ctx, txn))
		require.NoError(t, repo.MarkCompleted(ctx, txn.ID, "hash-"+amount))
	}

	// Pending rows must not count against the limit
	require.NoError(t, repo.Create(ctx, testutil.CreateTestTransaction(user.ID, models.TransactionTypeWithdrawal, "100")))

	sum, err = repo.SumCompletedByUserSince(ctx, user.ID, models.TransactionTypeWithdrawal, since)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("25.5")), "got %s", sum)
}

func TestTransactionRepository_GetStalePending(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewTransactionRepository(testDB.DB)
	ctx := context.Background()

	user, err := userRepo.Create(ctx, "stuck")
	require.NoError(t, err)

	stale := testutil.CreateTestTransaction(user.ID, models.TransactionTypeWithdrawal, "10")
	require.NoError(t, repo.Create(ctx, stale))
	completed := testutil.CreateTestTransaction(user.ID, models.TransactionTypeWithdrawal, "10")
	require.NoError(t, repo.Create(ctx, completed))
	require.NoError(t, repo.MarkCompleted(ctx, completed.ID, "hash"))

	txns, err := repo.GetStalePending(ctx, models.TransactionTypeWithdrawal, time.Now().Add(1*time.Minute))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, stale.ID, txns[0].ID)

	// Nothing is stale relative to a cutoff in the past
	txns, err = repo.GetStalePending(ctx, models.TransactionTypeWithdrawal, time.Now().Add(-1*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, txns)
}

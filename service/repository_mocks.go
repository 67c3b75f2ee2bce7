package service

import (
	"context"
	"time"

	"lottopay/chain"
	"lottopay/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) AddBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) DeductBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ExistsByTxHash(ctx context.Context, txHash string) (bool, error) {
	args := m.Called(ctx, txHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) MarkCompleted(ctx context.Context, id int64, txHash string) error {
	args := m.Called(ctx, id, txHash)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByUser(ctx context.Context, userID int64, filter TransactionFilter) ([]*models.Transaction, int64, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) SumCompletedByUserSince(ctx context.Context, userID int64, txType models.TransactionType, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, txType, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionRepository) GetStalePending(ctx context.Context, txType models.TransactionType, olderThan time.Time) ([]*models.Transaction, error) {
	args := m.Called(ctx, txType, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// MockPayoutRepository is a mock implementation of PayoutRepository
type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) CreateBatch(ctx context.Context, payouts []*models.Payout) error {
	args := m.Called(ctx, payouts)
	return args.Error(0)
}

func (m *MockPayoutRepository) GetByID(ctx context.Context, id int64) (*models.Payout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payout), args.Error(1)
}

func (m *MockPayoutRepository) GetPending(ctx context.Context, limit int) ([]*models.Payout, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payout), args.Error(1)
}

func (m *MockPayoutRepository) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPayoutRepository) MarkCompleted(ctx context.Context, id int64, txHash string) error {
	args := m.Called(ctx, id, txHash)
	return args.Error(0)
}

func (m *MockPayoutRepository) MarkFailed(ctx context.Context, id int64, reason string, retryable bool) error {
	args := m.Called(ctx, id, reason, retryable)
	return args.Error(0)
}

func (m *MockPayoutRepository) MarkFailedAttempt(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockPayoutRepository) ReturnToPending(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockPayoutRepository) SumCompletedSince(ctx context.Context, currency models.Currency, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, currency, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPayoutRepository) RequeueRetryableFailed(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockFundRepository is a mock implementation of FundRepository
type MockFundRepository struct {
	mock.Mock
}

func (m *MockFundRepository) GetOrCreate(ctx context.Context, lotteryID int64, currency models.Currency) (*models.LotteryFund, error) {
	args := m.Called(ctx, lotteryID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LotteryFund), args.Error(1)
}

func (m *MockFundRepository) ReserveGas(ctx context.Context, lotteryID int64, currency models.Currency, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, lotteryID, currency, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockFundRepository) RecordPayout(ctx context.Context, lotteryID int64, currency models.Currency, amount decimal.Decimal, txHash string) error {
	args := m.Called(ctx, lotteryID, currency, amount, txHash)
	return args.Error(0)
}

func (m *MockFundRepository) CreditPool(ctx context.Context, lotteryID int64, currency models.Currency, pool models.FundPool, txType models.FundTransactionType, amount decimal.Decimal) error {
	args := m.Called(ctx, lotteryID, currency, pool, txType, amount)
	return args.Error(0)
}

func (m *MockFundRepository) GetFundTransactions(ctx context.Context, lotteryID int64, currency models.Currency) ([]*models.FundTransaction, error) {
	args := m.Called(ctx, lotteryID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FundTransaction), args.Error(1)
}

// MockDepositMemoRepository is a mock implementation of DepositMemoRepository
type MockDepositMemoRepository struct {
	mock.Mock
}

func (m *MockDepositMemoRepository) Create(ctx context.Context, userID int64, memo string) (*models.DepositMemo, error) {
	args := m.Called(ctx, userID, memo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositMemo), args.Error(1)
}

func (m *MockDepositMemoRepository) GetUnusedByUser(ctx context.Context, userID int64) (*models.DepositMemo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositMemo), args.Error(1)
}

func (m *MockDepositMemoRepository) GetUnusedByMemo(ctx context.Context, memo string) (*models.DepositMemo, error) {
	args := m.Called(ctx, memo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositMemo), args.Error(1)
}

func (m *MockDepositMemoRepository) MarkUsed(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockCursorRepository is a mock implementation of CursorRepository
type MockCursorRepository struct {
	mock.Mock
}

func (m *MockCursorRepository) Get(ctx context.Context, account string) (string, error) {
	args := m.Called(ctx, account)
	return args.String(0), args.Error(1)
}

func (m *MockCursorRepository) Set(ctx context.Context, account string, cursor string) error {
	args := m.Called(ctx, account, cursor)
	return args.Error(0)
}

// MockDrawRepository is a mock implementation of DrawRepository
type MockDrawRepository struct {
	mock.Mock
}

func (m *MockDrawRepository) GetByID(ctx context.Context, id int64) (*models.Draw, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Draw), args.Error(1)
}

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) WalletAddress() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockChainClient) GetBalance(ctx context.Context, currency models.Currency) (decimal.Decimal, error) {
	args := m.Called(ctx, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockChainClient) GetTransactions(ctx context.Context, cursor string, limit int) ([]chain.InboundTransfer, string, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]chain.InboundTransfer), args.String(1), args.Error(2)
}

func (m *MockChainClient) SendNative(ctx context.Context, to string, amount decimal.Decimal, comment string) (string, error) {
	args := m.Called(ctx, to, amount, comment)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) SendToken(ctx context.Context, to string, amount decimal.Decimal, comment string) (string, error) {
	args := m.Called(ctx, to, amount, comment)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) FindTransferByComment(ctx context.Context, comment string) (*chain.OutboundTransfer, error) {
	args := m.Called(ctx, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.OutboundTransfer), args.Error(1)
}

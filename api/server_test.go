package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lottopay/config"
	"lottopay/models"
	"lottopay/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDepositService struct {
	mock.Mock
}

func (m *MockDepositService) GetDepositInfo(ctx context.Context, userID int64) ([]*models.DepositInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DepositInfo), args.Error(1)
}

func (m *MockDepositService) CheckDeposits(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, toAddress string, currency models.Currency) (*models.WithdrawalResult, error) {
	args := m.Called(ctx, userID, amount, toAddress, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalResult), args.Error(1)
}

func (m *MockWithdrawalService) GetWithdrawalInfo(ctx context.Context, userID int64) (*models.WithdrawalInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalInfo), args.Error(1)
}

func (m *MockWithdrawalService) GetTransactionHistory(ctx context.Context, userID int64, filter service.TransactionFilter) ([]*models.Transaction, int64, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockWithdrawalService) ReconcilePendingWithdrawals(ctx context.Context, olderThan time.Duration) error {
	args := m.Called(ctx, olderThan)
	return args.Error(0)
}

type MockPayoutService struct {
	mock.Mock
}

func (m *MockPayoutService) EnqueueJackpotPayouts(ctx context.Context, drawID, lotteryID int64, currency models.Currency, total decimal.Decimal, winners []models.PayoutRecipient) ([]*models.Payout, error) {
	args := m.Called(ctx, drawID, lotteryID, currency, total, winners)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payout), args.Error(1)
}

func (m *MockPayoutService) ProcessPendingPayouts(ctx context.Context) (*models.PayoutRunResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PayoutRunResult), args.Error(1)
}

func (m *MockPayoutService) RequeueCappedPayouts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockFairnessService struct {
	mock.Mock
}

func (m *MockFairnessService) VerifyDraw(ctx context.Context, drawID int64) (*models.DrawVerification, error) {
	args := m.Called(ctx, drawID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawVerification), args.Error(1)
}

type serverFixture struct {
	server      *Server
	deposits    *MockDepositService
	withdrawals *MockWithdrawalService
	payouts     *MockPayoutService
	fairness    *MockFairnessService
}

func newServerFixture() *serverFixture {
	f := &serverFixture{
		deposits:    new(MockDepositService),
		withdrawals: new(MockWithdrawalService),
		payouts:     new(MockPayoutService),
		fairness:    new(MockFairnessService),
	}
	f.server = NewServer(&config.Config{Environment: "test"}, f.deposits, f.withdrawals, f.payouts, f.fairness)
	return f
}

func (f *serverFixture) do(method, path, body string, asUser int64) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if asUser > 0 {
		req.Header.Set("X-User-ID", fmt.Sprintf("%d", asUser))
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Healthz(t *testing.T) {
	f := newServerFixture()

	w := f.do(http.MethodGet, "/healthz", "", 0)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_RequiresUserHeader(t *testing.T) {
	f := newServerFixture()

	for _, path := range []string{"/v1/deposits/info", "/v1/withdrawals/info", "/v1/transactions"} {
		w := f.do(http.MethodGet, path, "", 0)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestServer_GetDepositInfo(t *testing.T) {
	f := newServerFixture()
	f.deposits.On("GetDepositInfo", mock.Anything, int64(42)).Return([]*models.DepositInfo{
		{Address: "wallet", Memo: "dep_abc", MinDeposit: decimal.NewFromInt(1), Currency: models.CurrencyNative},
	}, nil)

	w := f.do(http.MethodGet, "/v1/deposits/info", "", 42)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dep_abc")
}

func TestServer_RequestWithdrawal(t *testing.T) {
	f := newServerFixture()
	hash := "tx-hash"
	f.withdrawals.On("RequestWithdrawal", mock.Anything, int64(42),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(10)) }),
		"EQAddr", models.CurrencyNative).
		Return(&models.WithdrawalResult{Success: true, TxHash: &hash, Balance: decimal.NewFromInt(40)}, nil)

	w := f.do(http.MethodPost, "/v1/withdrawals", `{"amount":"10","toAddress":"EQAddr","currency":"native"}`, 42)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tx-hash")
}

func TestServer_RequestWithdrawal_ExpectedFailure(t *testing.T) {
	f := newServerFixture()
	f.withdrawals.On("RequestWithdrawal", mock.Anything, int64(42), mock.Anything, mock.Anything, models.CurrencyNative).
		Return(&models.WithdrawalResult{Success: false, Error: "insufficient balance", Balance: decimal.NewFromInt(5)}, nil)

	w := f.do(http.MethodPost, "/v1/withdrawals", `{"amount":"10","toAddress":"EQAddr","currency":"native"}`, 42)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient balance")
}

func TestServer_RequestWithdrawal_BadBody(t *testing.T) {
	f := newServerFixture()

	w := f.do(http.MethodPost, "/v1/withdrawals", `{"amount":"not-a-number","toAddress":"EQAddr","currency":"native"}`, 42)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/v1/withdrawals", `{"toAddress":"EQAddr"}`, 42)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.withdrawals.AssertNotCalled(t, "RequestWithdrawal", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestServer_TransactionHistory(t *testing.T) {
	f := newServerFixture()
	withdrawalType := models.TransactionTypeWithdrawal
	f.withdrawals.On("GetTransactionHistory", mock.Anything, int64(42),
		service.TransactionFilter{Type: &withdrawalType, Page: 2, Limit: 10}).
		Return([]*models.Transaction{
			{ID: 7, Type: models.TransactionTypeWithdrawal, Amount: decimal.NewFromInt(10), Currency: models.CurrencyNative, Status: models.TransactionStatusCompleted, CreatedAt: time.Now()},
		}, int64(11), nil)

	w := f.do(http.MethodGet, "/v1/transactions?type=withdrawal&page=2&limit=10", "", 42)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":11`)
	assert.Contains(t, w.Body.String(), `"page":2`)
}

func TestServer_ProcessPayouts(t *testing.T) {
	f := newServerFixture()
	f.payouts.On("ProcessPendingPayouts", mock.Anything).
		Return(&models.PayoutRunResult{Processed: 3, Completed: 2, Failed: 1}, nil).Once()

	w := f.do(http.MethodPost, "/v1/admin/payouts/process", "", 0)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"processed":3`)

	// A second trigger while a run is in flight reports conflict
	f.payouts.On("ProcessPendingPayouts", mock.Anything).Return(nil, nil).Once()
	w = f.do(http.MethodPost, "/v1/admin/payouts/process", "", 0)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestServer_RequeuePayouts(t *testing.T) {
	f := newServerFixture()
	f.payouts.On("RequeueCappedPayouts", mock.Anything).Return(int64(4), nil)

	w := f.do(http.MethodPost, "/v1/admin/payouts/requeue", "", 0)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requeued":4`)
}

func TestServer_VerifyDraw(t *testing.T) {
	f := newServerFixture()
	f.fairness.On("VerifyDraw", mock.Anything, int64(9)).
		Return(&models.DrawVerification{DrawID: 9, IsValid: true, WinningNumbers: []int{1, 2, 3}}, nil)
	f.fairness.On("VerifyDraw", mock.Anything, int64(404)).
		Return(nil, fmt.Errorf("draw 404 not found"))

	w := f.do(http.MethodGet, "/v1/draws/9/verification", "", 0)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isValid":true`)

	w = f.do(http.MethodGet, "/v1/draws/404/verification", "", 0)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/v1/draws/abc/verification", "", 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

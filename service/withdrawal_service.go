package service

import (
	"context"
	"fmt"
	"time"

	"lottopay/chain"
	"lottopay/config"
	"lottopay/events"
	"lottopay/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/shopspring/decimal"
)

type withdrawalService struct {
	uowFactory  UnitOfWorkFactory
	chainClient ChainClient
	cfg         *config.Config
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(uowFactory UnitOfWorkFactory, chainClient ChainClient, cfg *config.Config) WithdrawalService {
	return &withdrawalService{
		uowFactory:  uowFactory,
		chainClient: chainClient,
		cfg:         cfg,
	}
}

// failure builds a non-error failure result carrying the user's current balance
func failure(balance decimal.Decimal, format string, args ...any) *models.WithdrawalResult {
	return &models.WithdrawalResult{
		Success: false,
		Error:   fmt.Sprintf(format, args...),
		Balance: balance,
	}
}

func (s *withdrawalService) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, toAddress string, currency models.Currency) (*models.WithdrawalResult, error) {
	if !currency.Valid() {
		return failure(decimal.Zero, "unsupported currency %q", currency), nil
	}
	if !chain.ValidateAddress(toAddress) {
		return failure(decimal.Zero, "invalid recipient address"), nil
	}

	minWithdrawal := s.cfg.MinWithdrawalNative
	fee := s.cfg.WithdrawalFeeNative
	if currency == models.CurrencyToken {
		minWithdrawal = s.cfg.MinWithdrawalToken
		fee = s.cfg.WithdrawalFeeToken
	}
	if amount.LessThan(minWithdrawal) {
		return failure(decimal.Zero, "minimum withdrawal is %s %s", minWithdrawal, currency), nil
	}
	// The recipient receives the full amount; the fee is debited on top
	totalDebit := amount.Add(fee)

	// Phase one: validate against balance and daily limit, debit optimistically
	// and book a PENDING withdrawal, all in one transaction. The unique
	// reference travels as the transfer comment so a crash between debit and
	// outcome can be reconciled against the chain later.
	reference := "wd_" + uuid.New().String()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", userID)
	}

	if user.Balance.LessThan(totalDebit) {
		return failure(user.Balance, "insufficient balance: have %s, need %s", user.Balance, totalDebit), nil
	}

	limit, used, err := s.dailyAllowance(ctx, uow, userID)
	if err != nil {
		return nil, err
	}
	if used.Add(amount).GreaterThan(limit) {
		return failure(user.Balance, "daily withdrawal limit exceeded: %s of %s used today", used, limit), nil
	}

	txn := &models.Transaction{
		UserID:    &userID,
		Type:      models.TransactionTypeWithdrawal,
		Amount:    amount,
		Currency:  currency,
		Status:    models.TransactionStatusPending,
		Reference: &reference,
		ToAddress: toAddress,
	}
	if err := uow.TransactionRepository().Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	}

	if err := uow.UserRepository().DeductBalance(ctx, userID, totalDebit); err != nil {
		return nil, fmt.Errorf("failed to debit user %d: %w", userID, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	newBalance := user.Balance.Sub(totalDebit)

	// Phase two: move the money. The debit is already committed, so every
	// outcome below must settle the PENDING record one way or the other.
	txHash, sendErr := s.send(ctx, currency, toAddress, amount, reference)
	if sendErr != nil {
		if err := s.refund(ctx, userID, txn.ID, totalDebit, currency, sendErr.Error()); err != nil {
			// The refund itself failed; reconciliation picks the PENDING
			// record up at next startup
			log.WithError(err).WithField("transactionID", txn.ID).
				Error("Failed to refund failed withdrawal")
			return nil, err
		}
		return failure(user.Balance, "transfer failed: %v", sendErr), nil
	}

	uow = s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TransactionRepository().MarkCompleted(ctx, txn.ID, txHash); err != nil {
		return nil, fmt.Errorf("failed to complete withdrawal: %w", err)
	}

	uow.EventBus().Publish(events.WithdrawalCompletedEvent{
		UserID:        userID,
		TransactionID: txn.ID,
		Amount:        amount,
		Currency:      currency,
		TxHash:        txHash,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":   userID,
		"amount":   amount,
		"currency": currency,
		"txHash":   txHash,
	}).Info("Withdrawal completed")

	return &models.WithdrawalResult{
		Success: true,
		TxHash:  &txHash,
		Balance: newBalance,
	}, nil
}

func (s *withdrawalService) send(ctx context.Context, currency models.Currency, to string, amount decimal.Decimal, comment string) (string, error) {
	if currency == models.CurrencyToken {
		return s.chainClient.SendToken(ctx, to, amount, comment)
	}
	return s.chainClient.SendNative(ctx, to, amount, comment)
}

// feeFor returns the withdrawal fee for a currency
func (s *withdrawalService) feeFor(currency models.Currency) decimal.Decimal {
	if currency == models.CurrencyToken {
		return s.cfg.WithdrawalFeeToken
	}
	return s.cfg.WithdrawalFeeNative
}

// refund is the compensating action for an optimistic debit whose send
// failed; amount is the full debit including the fee
func (s *withdrawalService) refund(ctx context.Context, userID, transactionID int64, amount decimal.Decimal, currency models.Currency, reason string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.UserRepository().AddBalance(ctx, userID, amount); err != nil {
		return fmt.Errorf("failed to refund user %d: %w", userID, err)
	}
	if err := uow.TransactionRepository().MarkFailed(ctx, transactionID, reason); err != nil {
		return fmt.Errorf("failed to mark withdrawal failed: %w", err)
	}

	uow.EventBus().Publish(events.WithdrawalFailedEvent{
		UserID:        userID,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      currency,
		Reason:        reason,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":        userID,
		"transactionID": transactionID,
		"reason":        reason,
	}).Warn("Withdrawal failed, balance refunded")

	return nil
}

// dailyAllowance computes the smart daily limit and today's usage. Winnings
// paid out today raise the limit above the base so winners are not locked out
// of their own prizes.
func (s *withdrawalService) dailyAllowance(ctx context.Context, uow UnitOfWork, userID int64) (limit, used decimal.Decimal, err error) {
	midnight := StartOfToday(s.cfg.Location())

	winnings, err := uow.TransactionRepository().SumCompletedByUserSince(ctx, userID, models.TransactionTypePayout, midnight)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum today's winnings: %w", err)
	}
	used, err = uow.TransactionRepository().SumCompletedByUserSince(ctx, userID, models.TransactionTypeWithdrawal, midnight)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum today's withdrawals: %w", err)
	}

	return s.cfg.BaseDailyWithdrawalLimit.Add(winnings), used, nil
}

func (s *withdrawalService) GetWithdrawalInfo(ctx context.Context, userID int64) (*models.WithdrawalInfo, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", userID)
	}

	limit, used, err := s.dailyAllowance(ctx, uow, userID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	remaining := limit.Sub(used)
	if remaining.Sign() < 0 {
		remaining = decimal.Zero
	}

	return &models.WithdrawalInfo{
		Balance:        user.Balance,
		DailyLimit:     limit,
		UsedToday:      used,
		RemainingToday: remaining,
		FeeNative:      s.cfg.WithdrawalFeeNative,
		FeeToken:       s.cfg.WithdrawalFeeToken,
	}, nil
}

func (s *withdrawalService) GetTransactionHistory(ctx context.Context, userID int64, filter TransactionFilter) ([]*models.Transaction, int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txns, total, err := uow.TransactionRepository().GetByUser(ctx, userID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get transaction history: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return txns, total, nil
}

// ReconcilePendingWithdrawals resolves withdrawals left PENDING by a crash
// between the optimistic debit and the send outcome. The chain is the source
// of truth: if a transfer carrying the withdrawal's reference landed, the
// withdrawal completed; otherwise the money never moved and the debit is
// refunded.
func (s *withdrawalService) ReconcilePendingWithdrawals(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stale, err := uow.TransactionRepository().GetStalePending(ctx, models.TransactionTypeWithdrawal, cutoff)
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("failed to get stale withdrawals: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, txn := range stale {
		if err := s.reconcile(ctx, txn); err != nil {
			log.WithError(err).WithField("transactionID", txn.ID).
				Error("Failed to reconcile pending withdrawal")
		}
	}

	return nil
}

func (s *withdrawalService) reconcile(ctx context.Context, txn *models.Transaction) error {
	if txn.Reference == nil || txn.UserID == nil {
		return fmt.Errorf("withdrawal %d has no reference or user", txn.ID)
	}

	transfer, err := s.chainClient.FindTransferByComment(ctx, *txn.Reference)
	if err != nil {
		return fmt.Errorf("failed to look up transfer: %w", err)
	}

	if transfer == nil {
		// The send never landed; undo the full debit, fee included
		refund := txn.Amount.Add(s.feeFor(txn.Currency))
		return s.refund(ctx, *txn.UserID, txn.ID, refund, txn.Currency, "reconciled: transfer not found on chain")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TransactionRepository().MarkCompleted(ctx, txn.ID, transfer.Hash); err != nil {
		return fmt.Errorf("failed to complete reconciled withdrawal: %w", err)
	}

	uow.EventBus().Publish(events.WithdrawalCompletedEvent{
		UserID:        *txn.UserID,
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		TxHash:        transfer.Hash,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"transactionID": txn.ID,
		"txHash":        transfer.Hash,
	}).Info("Reconciled pending withdrawal as completed")

	return nil
}

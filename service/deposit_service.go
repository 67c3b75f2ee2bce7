package service

import (
	"context"
	"fmt"

	"lottopay/chain"
	"lottopay/config"
	"lottopay/events"
	"lottopay/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// depositBatchSize bounds how many inbound transfers one poll requests from
// the gateway.
const depositBatchSize = 100

type depositService struct {
	uowFactory  UnitOfWorkFactory
	chainClient ChainClient
	cfg         *config.Config
}

// NewDepositService creates a new deposit service
func NewDepositService(uowFactory UnitOfWorkFactory, chainClient ChainClient, cfg *config.Config) DepositService {
	return &depositService{
		uowFactory:  uowFactory,
		chainClient: chainClient,
		cfg:         cfg,
	}
}

func (s *depositService) GetDepositInfo(ctx context.Context, userID int64) ([]*models.DepositInfo, error) {
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

	// Reuse the current unused memo; a fresh one is minted only after the
	// prior one has been consumed by a deposit
	memo, err := uow.DepositMemoRepository().GetUnusedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit memo: %w", err)
	}
	if memo == nil {
		memo, err = uow.DepositMemoRepository().Create(ctx, userID, "dep_"+uuid.New().String())
		if err != nil {
			return nil, fmt.Errorf("failed to mint deposit memo: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	address := s.chainClient.WalletAddress()
	return []*models.DepositInfo{
		{
			Address:    address,
			Memo:       memo.Memo,
			MinDeposit: s.cfg.MinDepositNative,
			Currency:   models.CurrencyNative,
		},
		{
			Address:    address,
			Memo:       memo.Memo,
			MinDeposit: s.cfg.MinDepositToken,
			Currency:   models.CurrencyToken,
		},
	}, nil
}

func (s *depositService) CheckDeposits(ctx context.Context) error {
	account := s.chainClient.WalletAddress()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	cursor, err := uow.CursorRepository().Get(ctx, account)
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("failed to get cursor: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	transfers, nextCursor, err := s.chainClient.GetTransactions(ctx, cursor, depositBatchSize)
	if err != nil {
		return fmt.Errorf("failed to poll chain transactions: %w", err)
	}

	for _, transfer := range transfers {
		if err := s.processTransfer(ctx, transfer); err != nil {
			// Stop before advancing the cursor past this transfer so the next
			// poll retries it. Crediting is idempotent on the hash, so the
			// already processed prefix is skipped cleanly.
			return fmt.Errorf("failed to process transfer %s: %w", transfer.Hash, err)
		}
	}

	if nextCursor != cursor {
		uow = s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()
		if err := uow.CursorRepository().Set(ctx, account, nextCursor); err != nil {
			return fmt.Errorf("failed to advance cursor: %w", err)
		}
		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	return nil
}

// processTransfer handles one inbound transfer in its own transaction so a
// poisoned transfer cannot roll back its neighbors' credits.
func (s *depositService) processTransfer(ctx context.Context, transfer chain.InboundTransfer) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Idempotency gate: a hash seen before was fully handled before
	exists, err := uow.TransactionRepository().ExistsByTxHash(ctx, transfer.Hash)
	if err != nil {
		return fmt.Errorf("failed to check tx hash: %w", err)
	}
	if exists {
		return uow.Commit()
	}

	if !transfer.Currency.Valid() {
		log.WithFields(log.Fields{
			"txHash":   transfer.Hash,
			"currency": transfer.Currency,
		}).Warn("Ignoring inbound transfer in unknown currency")
		return uow.Commit()
	}

	// Zero-amount notifications (token ops, bounces) carry no money to hold
	if transfer.Amount.Sign() <= 0 {
		return uow.Commit()
	}

	if transfer.Amount.LessThan(s.cfg.MinDeposit(string(transfer.Currency))) {
		return s.recordUnmatched(ctx, uow, transfer, "below minimum deposit")
	}

	memo, err := uow.DepositMemoRepository().GetUnusedByMemo(ctx, transfer.Comment)
	if err != nil {
		return fmt.Errorf("failed to look up memo: %w", err)
	}
	if memo == nil {
		return s.recordUnmatched(ctx, uow, transfer, "no matching memo")
	}

	consumed, err := uow.DepositMemoRepository().MarkUsed(ctx, memo.ID)
	if err != nil {
		return fmt.Errorf("failed to consume memo: %w", err)
	}
	if !consumed {
		return s.recordUnmatched(ctx, uow, transfer, "memo already consumed")
	}

	if err := uow.UserRepository().AddBalance(ctx, memo.UserID, transfer.Amount); err != nil {
		return fmt.Errorf("failed to credit user %d: %w", memo.UserID, err)
	}

	txHash := transfer.Hash
	now := transfer.Timestamp
	txn := &models.Transaction{
		UserID:      &memo.UserID,
		Type:        models.TransactionTypeDeposit,
		Amount:      transfer.Amount,
		Currency:    transfer.Currency,
		Status:      models.TransactionStatusCompleted,
		TxHash:      &txHash,
		FromAddress: transfer.FromAddress,
		ToAddress:   s.chainClient.WalletAddress(),
		CompletedAt: &now,
	}
	if err := uow.TransactionRepository().Create(ctx, txn); err != nil {
		return fmt.Errorf("failed to record deposit: %w", err)
	}

	uow.EventBus().Publish(events.DepositCreditedEvent{
		UserID:   memo.UserID,
		Amount:   transfer.Amount,
		Currency: transfer.Currency,
		TxHash:   transfer.Hash,
		Memo:     transfer.Comment,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":   memo.UserID,
		"amount":   transfer.Amount,
		"currency": transfer.Currency,
		"txHash":   transfer.Hash,
	}).Info("Deposit credited")

	return nil
}

// recordUnmatched books an inbound transfer no user can be credited for. The
// UNMATCHED record keeps the hash so the transfer is never reprocessed, and
// operators review the queue manually.
func (s *depositService) recordUnmatched(ctx context.Context, uow UnitOfWork, transfer chain.InboundTransfer, reason string) error {
	txHash := transfer.Hash
	txn := &models.Transaction{
		Type:        models.TransactionTypeDeposit,
		Amount:      transfer.Amount,
		Currency:    transfer.Currency,
		Status:      models.TransactionStatusUnmatched,
		TxHash:      &txHash,
		FromAddress: transfer.FromAddress,
		ToAddress:   s.chainClient.WalletAddress(),
		LastError:   &reason,
	}
	if err := uow.TransactionRepository().Create(ctx, txn); err != nil {
		return fmt.Errorf("failed to record unmatched deposit: %w", err)
	}

	uow.EventBus().Publish(events.DepositUnmatchedEvent{
		Amount:      transfer.Amount,
		Currency:    transfer.Currency,
		TxHash:      transfer.Hash,
		Memo:        transfer.Comment,
		FromAddress: transfer.FromAddress,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"txHash": transfer.Hash,
		"memo":   transfer.Comment,
		"reason": reason,
	}).Warn("Inbound transfer held for review")

	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lottopay/config"
	"lottopay/events"
	"lottopay/models"

	log "github.com/sirupsen/logrus"

	"github.com/shopspring/decimal"
)

// amountPrecision is the decimal precision of chain amounts; jackpot shares
// are truncated to it so no share carries dust the chain cannot represent.
const amountPrecision = 9

type payoutService struct {
	uowFactory  UnitOfWorkFactory
	chainClient ChainClient
	cfg         *config.Config

	// single-flight guard: overlapping processor invocations return
	// immediately instead of queueing behind the running pass
	mu   sync.Mutex
	busy bool
}

// NewPayoutService creates a new payout service
func NewPayoutService(uowFactory UnitOfWorkFactory, chainClient ChainClient, cfg *config.Config) PayoutService {
	return &payoutService{
		uowFactory:  uowFactory,
		chainClient: chainClient,
		cfg:         cfg,
	}
}

func (s *payoutService) EnqueueJackpotPayouts(ctx context.Context, drawID, lotteryID int64, currency models.Currency, total decimal.Decimal, winners []models.PayoutRecipient) ([]*models.Payout, error) {
	if !currency.Valid() {
		return nil, fmt.Errorf("unsupported currency %q", currency)
	}
	if total.Sign() <= 0 {
		return nil, fmt.Errorf("prize total must be positive")
	}
	if len(winners) == 0 {
		return nil, fmt.Errorf("no winners to pay")
	}

	// Equal split truncated to chain precision; the rounding remainder rides
	// on the first share so the shares sum to exactly the total
	n := int64(len(winners))
	share := total.DivRound(decimal.NewFromInt(n), amountPrecision+1).Truncate(amountPrecision)
	remainder := total.Sub(share.Mul(decimal.NewFromInt(n)))

	payouts := make([]*models.Payout, len(winners))
	for i, winner := range winners {
		amount := share
		if i == 0 {
			amount = amount.Add(remainder)
		}
		idx := i + 1
		splitTotal := len(winners)
		payouts[i] = &models.Payout{
			DrawID:           drawID,
			LotteryID:        lotteryID,
			UserID:           winner.UserID,
			Amount:           amount,
			Currency:         currency,
			RecipientAddress: winner.Address,
			MaxAttempts:      s.cfg.PayoutMaxAttempts,
			SplitIndex:       &idx,
			SplitTotal:       &splitTotal,
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PayoutRepository().CreateBatch(ctx, payouts); err != nil {
		return nil, fmt.Errorf("failed to enqueue payouts: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"drawID":  drawID,
		"winners": len(winners),
		"total":   total,
	}).Info("Jackpot payouts enqueued")

	return payouts, nil
}

func (s *payoutService) ProcessPendingPayouts(ctx context.Context) (*models.PayoutRunResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, nil
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	pending, err := uow.PayoutRepository().GetPending(ctx, s.cfg.PayoutBatchSize)
	if err != nil {
		uow.Rollback()
		return nil, fmt.Errorf("failed to get pending payouts: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result := &models.PayoutRunResult{}

	// Strictly sequential: each payout's send must observe the completed
	// state of the one before it, both for the wallet's message sequence and
	// for the daily cap accounting
	for _, payout := range pending {
		if ctx.Err() != nil {
			break
		}
		result.Processed++
		if err := s.processPayout(ctx, payout, result); err != nil {
			log.WithError(err).WithField("payoutID", payout.ID).
				Error("Failed to process payout")
		}
	}

	return result, nil
}

func (s *payoutService) processPayout(ctx context.Context, payout *models.Payout, result *models.PayoutRunResult) error {
	if !payout.Currency.Valid() {
		result.Failed++
		return s.failTerminal(ctx, payout, fmt.Sprintf("unsupported currency %q", payout.Currency), false)
	}

	// Daily cap check against what has already been disbursed today
	dailyCap := s.cfg.DailyPayoutCapNative
	if payout.Currency == models.CurrencyToken {
		dailyCap = s.cfg.DailyPayoutCapToken
	}
	midnight := StartOfToday(s.cfg.Location())

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	disbursed, err := uow.PayoutRepository().SumCompletedSince(ctx, payout.Currency, midnight)
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("failed to sum today's payouts: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if disbursed.Add(payout.Amount).GreaterThan(dailyCap) {
		result.Deferred++
		return s.deferPayout(ctx, payout, fmt.Sprintf("daily payout cap reached: %s of %s disbursed", disbursed, dailyCap))
	}

	// Claim the payout; losing the claim means another pass already took it
	uow = s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	claimed, err := uow.PayoutRepository().MarkProcessing(ctx, payout.ID)
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("failed to claim payout: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if !claimed {
		result.Processed--
		return nil
	}

	if ok, err := s.reserveGas(ctx, payout); err != nil {
		return err
	} else if !ok {
		// block policy: park the payout as a re-queueable failure until the
		// reserve is topped up
		result.Deferred++
		return s.failRetryable(ctx, payout, "reserve pool cannot cover gas fee")
	}

	comment := fmt.Sprintf("po_%d", payout.ID)
	var txHash string
	if payout.Currency == models.CurrencyToken {
		txHash, err = s.chainClient.SendToken(ctx, payout.RecipientAddress, payout.Amount, comment)
	} else {
		txHash, err = s.chainClient.SendNative(ctx, payout.RecipientAddress, payout.Amount, comment)
	}

	if err != nil {
		return s.handleSendFailure(ctx, payout, err, result)
	}

	if err := s.complete(ctx, payout, txHash); err != nil {
		return err
	}
	result.Completed++
	return nil
}

// reserveGas debits the estimated gas fee from the lottery's reserve pool.
// Returns false only under the block policy; under warn a shortfall is
// surfaced to operators and the send proceeds on general wallet funds.
func (s *payoutService) reserveGas(ctx context.Context, payout *models.Payout) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.FundRepository().GetOrCreate(ctx, payout.LotteryID, payout.Currency); err != nil {
		return false, err
	}

	reserved, err := uow.FundRepository().ReserveGas(ctx, payout.LotteryID, payout.Currency, s.cfg.GasFeeEstimate)
	if err != nil {
		return false, fmt.Errorf("failed to reserve gas: %w", err)
	}

	if !reserved {
		uow.EventBus().Publish(events.ReserveShortfallEvent{
			LotteryID: payout.LotteryID,
			Currency:  payout.Currency,
			Amount:    s.cfg.GasFeeEstimate,
		})
		if err := uow.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit transaction: %w", err)
		}

		if s.cfg.ReserveShortfallPolicy == config.ReserveShortfallBlock {
			return false, nil
		}
		log.WithFields(log.Fields{
			"lotteryID": payout.LotteryID,
			"currency":  payout.Currency,
		}).Warn("Reserve pool cannot cover gas fee, proceeding on wallet funds")
		return true, nil
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// complete settles a sent payout: queue state, prize pool debit, audit
// transaction and user notification commit together.
func (s *payoutService) complete(ctx context.Context, payout *models.Payout, txHash string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PayoutRepository().MarkCompleted(ctx, payout.ID, txHash); err != nil {
		return fmt.Errorf("failed to complete payout: %w", err)
	}

	if err := uow.FundRepository().RecordPayout(ctx, payout.LotteryID, payout.Currency, payout.Amount, txHash); err != nil {
		if !errors.Is(err, models.ErrInsufficientPool) {
			// Infrastructure failure; the rollback leaves the payout in
			// processing and a later pass settles it
			return fmt.Errorf("failed to record payout in fund ledger: %w", err)
		}
		// The money is already on chain; completion must not be lost to a
		// pool shortfall. Settle without the pool debit and page operators
		// through the log.
		uow.Rollback()
		log.WithError(err).WithFields(log.Fields{
			"payoutID":  payout.ID,
			"lotteryID": payout.LotteryID,
		}).Error("Prize pool cannot cover completed payout, settling without pool debit")
		return s.completeWithoutPoolDebit(ctx, payout, txHash)
	}

	if err := s.recordCompletion(ctx, uow, payout, txHash); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"payoutID": payout.ID,
		"userID":   payout.UserID,
		"amount":   payout.Amount,
		"txHash":   txHash,
	}).Info("Payout completed")

	return nil
}

func (s *payoutService) completeWithoutPoolDebit(ctx context.Context, payout *models.Payout, txHash string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PayoutRepository().MarkCompleted(ctx, payout.ID, txHash); err != nil {
		return fmt.Errorf("failed to complete payout: %w", err)
	}
	if err := s.recordCompletion(ctx, uow, payout, txHash); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// recordCompletion books the payout-type audit transaction and queues the
// user notification. The audit record is what feeds the smart daily
// withdrawal limit.
func (s *payoutService) recordCompletion(ctx context.Context, uow UnitOfWork, payout *models.Payout, txHash string) error {
	userID := payout.UserID
	hash := txHash
	now := time.Now()
	txn := &models.Transaction{
		UserID:      &userID,
		Type:        models.TransactionTypePayout,
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Status:      models.TransactionStatusCompleted,
		TxHash:      &hash,
		ToAddress:   payout.RecipientAddress,
		CompletedAt: &now,
	}
	if err := uow.TransactionRepository().Create(ctx, txn); err != nil {
		return fmt.Errorf("failed to record payout transaction: %w", err)
	}

	uow.EventBus().Publish(events.PayoutCompletedEvent{
		PayoutID: payout.ID,
		UserID:   payout.UserID,
		DrawID:   payout.DrawID,
		Amount:   payout.Amount,
		Currency: payout.Currency,
		TxHash:   txHash,
	})

	return nil
}

// handleSendFailure retries a failed send on a later pass until attempts are
// exhausted, then fails terminally and notifies both the winner and operators.
func (s *payoutService) handleSendFailure(ctx context.Context, payout *models.Payout, sendErr error, result *models.PayoutRunResult) error {
	if payout.Attempts+1 >= payout.MaxAttempts {
		result.Failed++
		return s.failTerminal(ctx, payout, fmt.Sprintf("send failed after %d attempts: %v", payout.Attempts+1, sendErr), true)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PayoutRepository().ReturnToPending(ctx, payout.ID, sendErr.Error()); err != nil {
		return fmt.Errorf("failed to return payout to queue: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"payoutID": payout.ID,
		"attempt":  payout.Attempts + 1,
	}).Warn("Payout send failed, returned to queue")

	return nil
}

// failTerminal fails a payout for good and notifies both the winner and
// operators. countAttempt records the failed send attempt with the failure so
// the stored counter matches the number of sends actually tried.
func (s *payoutService) failTerminal(ctx context.Context, payout *models.Payout, reason string, countAttempt bool) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	var markErr error
	if countAttempt {
		markErr = uow.PayoutRepository().MarkFailedAttempt(ctx, payout.ID, reason)
	} else {
		markErr = uow.PayoutRepository().MarkFailed(ctx, payout.ID, reason, false)
	}
	if markErr != nil {
		return fmt.Errorf("failed to fail payout: %w", markErr)
	}

	uow.EventBus().Publish(events.PayoutFailedEvent{
		PayoutID: payout.ID,
		UserID:   payout.UserID,
		DrawID:   payout.DrawID,
		Amount:   payout.Amount,
		Currency: payout.Currency,
		Reason:   reason,
		Operator: true,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"payoutID": payout.ID,
		"reason":   reason,
	}).Error("Payout failed terminally")

	return nil
}

// deferPayout parks a still-pending payout as a re-queueable failure
func (s *payoutService) deferPayout(ctx context.Context, payout *models.Payout, reason string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PayoutRepository().MarkFailed(ctx, payout.ID, reason, true); err != nil {
		return fmt.Errorf("failed to defer payout: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"payoutID": payout.ID,
		"reason":   reason,
	}).Warn("Payout deferred")

	return nil
}

// failRetryable marks a claimed payout as a re-queueable failure
func (s *payoutService) failRetryable(ctx context.Context, payout *models.Payout, reason string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PayoutRepository().MarkFailed(ctx, payout.ID, reason, true); err != nil {
		return fmt.Errorf("failed to park payout: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *payoutService) RequeueCappedPayouts(ctx context.Context) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	requeued, err := uow.PayoutRepository().RequeueRetryableFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue capped payouts: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("requeued", requeued).Info("Capped payouts returned to queue")
	return requeued, nil
}

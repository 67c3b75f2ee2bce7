package service

import (
	"context"
	"fmt"

	"lottopay/fairness"
	"lottopay/models"
)

type fairnessService struct {
	uowFactory UnitOfWorkFactory
}

// NewFairnessService creates a new fairness service
func NewFairnessService(uowFactory UnitOfWorkFactory) FairnessService {
	return &fairnessService{
		uowFactory: uowFactory,
	}
}

func (s *fairnessService) VerifyDraw(ctx context.Context, drawID int64) (*models.DrawVerification, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	draw, err := uow.DrawRepository().GetByID(ctx, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw: %w", err)
	}
	if draw == nil {
		return nil, fmt.Errorf("draw %d not found", drawID)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	verification := &models.DrawVerification{
		DrawID:         draw.ID,
		ServerSeed:     draw.ServerSeed,
		ServerSeedHash: draw.ServerSeedHash,
		ClientSeed:     draw.ClientSeed,
		Nonce:          draw.Nonce,
		WinningNumbers: draw.WinningNumbers,
	}

	// Verification is only meaningful once both seeds are revealed post-draw
	if draw.ServerSeed == nil || draw.ClientSeed == nil {
		return verification, nil
	}

	// The revealed server seed must match the pre-draw commitment, and
	// recomputing the outcome from the seeds must reproduce the stored numbers
	commitmentOK := fairness.SeedHash(*draw.ServerSeed) == draw.ServerSeedHash
	numbersOK := fairness.Verify(*draw.ServerSeed, *draw.ClientSeed, draw.Nonce,
		draw.WinningNumbers, draw.NumbersCount, draw.NumbersMax)

	verification.IsValid = commitmentOK && numbersOK

	return verification, nil
}

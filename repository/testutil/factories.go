package testutil

import (
	"lottopay/models"

	"github.com/shopspring/decimal"
)

// CreateTestTransaction creates a pending test transaction with default values
func CreateTestTransaction(userID int64, txType models.TransactionType, amount string) *models.Transaction {
	uid := userID
	return &models.Transaction{
		UserID:   &uid,
		Type:     txType,
		Amount:   decimal.RequireFromString(amount),
		Currency: models.CurrencyNative,
		Status:   models.TransactionStatusPending,
	}
}

// CreateTestPayout creates a test payout with default values
func CreateTestPayout(drawID, lotteryID, userID int64, amount string) *models.Payout {
	return &models.Payout{
		DrawID:           drawID,
		LotteryID:        lotteryID,
		UserID:           userID,
		Amount:           decimal.RequireFromString(amount),
		Currency:         models.CurrencyNative,
		RecipientAddress: "EQTestRecipientAddressAAAAAAAAAAAAAAAAAAAAAAAAAA",
		MaxAttempts:      3,
	}
}

// CreateTestPayoutWithCurrency creates a test payout in a specific currency
func CreateTestPayoutWithCurrency(drawID, lotteryID, userID int64, amount string, currency models.Currency) *models.Payout {
	p := CreateTestPayout(drawID, lotteryID, userID, amount)
	p.Currency = currency
	return p
}

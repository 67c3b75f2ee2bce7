package models

import "github.com/shopspring/decimal"

// WithdrawalResult is the structured outcome of a withdrawal request.
// Expected failures (validation, send failure) are reported here, not as
// errors.
type WithdrawalResult struct {
	Success bool            `json:"success"`
	TxHash  *string         `json:"txHash,omitempty"`
	Error   string          `json:"error,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

// DepositInfo tells a user where and how to send funds
type DepositInfo struct {
	Address    string          `json:"address"`
	Memo       string          `json:"memo"`
	MinDeposit decimal.Decimal `json:"minDeposit"`
	Currency   Currency        `json:"currency"`
}

// WithdrawalInfo summarizes a user's withdrawal allowance for today. Fees are
// per currency.
type WithdrawalInfo struct {
	Balance        decimal.Decimal `json:"balance"`
	DailyLimit     decimal.Decimal `json:"dailyLimit"`
	UsedToday      decimal.Decimal `json:"usedToday"`
	RemainingToday decimal.Decimal `json:"remainingToday"`
	FeeNative      decimal.Decimal `json:"feeNative"`
	FeeToken       decimal.Decimal `json:"feeToken"`
}

// PayoutRunResult summarizes one pass of the payout processor
type PayoutRunResult struct {
	Processed int
	Completed int
	Failed    int
	Deferred  int
}

package chain

import (
	"time"

	"lottopay/models"

	"github.com/shopspring/decimal"
)

// InboundTransfer is a transfer received by the platform wallet, as reported
// by the ledger gateway. Cursor is an opaque position token; transfers come
// back oldest first so the last cursor seen resumes the scan.
type InboundTransfer struct {
	Hash        string          `json:"hash"`
	FromAddress string          `json:"from_address"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    models.Currency `json:"currency"`
	Comment     string          `json:"comment"`
	Cursor      string          `json:"cursor"`
	Timestamp   time.Time       `json:"timestamp"`
}

// OutboundTransfer is a transfer sent from the platform wallet, used when
// reconciling sends whose outcome was lost to a crash or timeout.
type OutboundTransfer struct {
	Hash      string          `json:"hash"`
	ToAddress string          `json:"to_address"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  models.Currency `json:"currency"`
	Comment   string          `json:"comment"`
	Timestamp time.Time       `json:"timestamp"`
}

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"lottopay/models"
	"lottopay/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// WithdrawalRequest is the body of POST /v1/withdrawals. Amount is a string
// so clients never round it through a float.
type WithdrawalRequest struct {
	Amount    string `json:"amount" binding:"required"`
	ToAddress string `json:"toAddress" binding:"required"`
	Currency  string `json:"currency" binding:"required"`
}

// TransactionResponse is the history representation of a transaction
type TransactionResponse struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	TxHash      *string         `json:"txHash,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

func (s *Server) getDepositInfo(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	info, err := s.deposits.GetDepositInfo(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).WithField("userID", id).Error("Failed to get deposit info")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get deposit info"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deposits": info})
}

func (s *Server) requestWithdrawal(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	result, err := s.withdrawals.RequestWithdrawal(c.Request.Context(), id, amount, req.ToAddress, models.Currency(req.Currency))
	if err != nil {
		log.WithError(err).WithField("userID", id).Error("Withdrawal request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "withdrawal failed"})
		return
	}

	// Expected failures (validation, limits, send failure after refund) come
	// back in the result body, not as transport errors
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

func (s *Server) getWithdrawalInfo(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	info, err := s.withdrawals.GetWithdrawalInfo(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).WithField("userID", id).Error("Failed to get withdrawal info")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get withdrawal info"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (s *Server) getTransactionHistory(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := service.TransactionFilter{Page: page, Limit: limit}
	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(v)
		filter.Type = &txType
	}

	txns, total, err := s.withdrawals.GetTransactionHistory(c.Request.Context(), id, filter)
	if err != nil {
		log.WithError(err).WithField("userID", id).Error("Failed to get transaction history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get transaction history"})
		return
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, TransactionResponse{
			ID:          txn.ID,
			Type:        string(txn.Type),
			Amount:      txn.Amount,
			Currency:    string(txn.Currency),
			Status:      string(txn.Status),
			TxHash:      txn.TxHash,
			CreatedAt:   txn.CreatedAt,
			CompletedAt: txn.CompletedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": responses,
		"total":        total,
		"page":         page,
		"limit":        limit,
	})
}

func (s *Server) verifyDraw(c *gin.Context) {
	drawID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || drawID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draw id"})
		return
	}

	verification, err := s.fairness.VerifyDraw(c.Request.Context(), drawID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": "draw not found"})
			return
		}
		log.WithError(err).WithField("drawID", drawID).Error("Failed to verify draw")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify draw"})
		return
	}

	c.JSON(http.StatusOK, verification)
}

func (s *Server) processPayouts(c *gin.Context) {
	result, err := s.payouts.ProcessPendingPayouts(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Manual payout run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payout run failed"})
		return
	}
	if result == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a payout run is already in progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processed": result.Processed,
		"completed": result.Completed,
		"failed":    result.Failed,
		"deferred":  result.Deferred,
	})
}

func (s *Server) requeuePayouts(c *gin.Context) {
	requeued, err := s.payouts.RequeueCappedPayouts(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to requeue capped payouts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to requeue payouts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requeued": requeued})
}

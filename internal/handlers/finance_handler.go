package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "brokerage/internal/errors"
	"brokerage/internal/models"
	"brokerage/internal/services"
)

const (
	// IdempotencyKeyHeader carries a caller-chosen key that makes RecordTransaction safe to retry.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayedHeader is set on responses that return a previously recorded entry.
	IdempotentReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
)

// FinanceHandler handles ledger, statement, and report requests.
type FinanceHandler struct {
	ledgerService    services.LedgerServicer
	statementService services.StatementServicer
	auditService     services.AuditServicer
}

// NewFinanceHandler creates a new FinanceHandler.
func NewFinanceHandler(ledgerService services.LedgerServicer, statementService services.StatementServicer, auditService services.AuditServicer) *FinanceHandler {
	return &FinanceHandler{
		ledgerService:    ledgerService,
		statementService: statementService,
		auditService:     auditService,
	}
}

// RecordTransactionRequest represents the request payload for a ledger entry.
type RecordTransactionRequest struct {
	PolicyID        string           `json:"policy_id" binding:"required,uuid"`
	Type            string           `json:"type" binding:"required,ledger_type" example:"ClientPayment"`
	Amount          *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"2500.00"`
	PaymentMethod   string           `json:"payment_method" binding:"required,payment_method" example:"BankTransfer"`
	ReferenceNumber string           `json:"reference_number" binding:"max=100" example:"FT24153XYZ"`
	TransactionDate string           `json:"transaction_date" example:"2024-06-02"`
	Status          *string          `json:"status" binding:"omitempty,ledger_status" example:"Cleared"`
	Note            string           `json:"note" binding:"max=2000"`
}

// UpdateTransactionStatusRequest changes the mutable part of a ledger entry.
type UpdateTransactionStatusRequest struct {
	Status string  `json:"status" binding:"required,ledger_status" example:"Bounced"`
	Note   *string `json:"note" binding:"omitempty,max=2000"`
}

// RecordTransaction handles appending an entry to a policy's ledger
// @Summary     Record a transaction
// @Description Append a ledger entry. Client and carrier are copied from the policy. Send an Idempotency-Key header to make retries safe; a replay returns the original entry with status 200 and the Idempotent-Replayed header.
// @Tags        finance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key header string                   false "Caller-chosen retry key"
// @Param       request         body   RecordTransactionRequest true  "Transaction details"
// @Success     201 {object} models.Transaction "Transaction recorded"
// @Success     200 {object} models.Transaction "Replay of a previously recorded transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Policy not found"
// @Failure     409 {object} ErrorResponse "Same idempotency key still in flight"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /finance/transactions [post]
func (h *FinanceHandler) RecordTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Idempotency-Key must be at most 255 characters"))
		return
	}

	var req RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	in := services.RecordTransactionInput{
		PolicyID:        req.PolicyID,
		Type:            models.TransactionType(req.Type),
		Amount:          req.Amount,
		PaymentMethod:   models.PaymentMethod(req.PaymentMethod),
		ReferenceNumber: req.ReferenceNumber,
		Note:            req.Note,
	}
	if req.TransactionDate != "" {
		if in.TransactionDate, err = parseFlexibleTime(req.TransactionDate); err != nil {
			respondWithError(c, invalidInput(err))
			return
		}
	}
	if req.Status != nil {
		status := models.TransactionStatus(*req.Status)
		in.Status = &status
	}

	transaction, replayed, err := h.ledgerService.RecordTransaction(c.Request.Context(), userID, in, idempotencyKey)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if replayed {
		c.Header(IdempotentReplayedHeader, "true")
		c.JSON(http.StatusOK, gin.H{"transaction": transaction})
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "RECORD_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{
			"policy_id": transaction.PolicyID,
			"type":      transaction.Type,
			"amount":    transaction.Amount,
			"status":    transaction.Status,
		})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransaction handles the retrieval of a single ledger entry
// @Summary     Get a transaction
// @Tags        finance
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /finance/transactions/{id} [get]
func (h *FinanceHandler) GetTransaction(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.ledgerService.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransactionStatus handles status changes on a ledger entry
// @Summary     Update a transaction's status
// @Description Change status (and optionally the note) of a recorded entry. All other fields are immutable.
// @Tags        finance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                         true "Transaction ID"
// @Param       request body UpdateTransactionStatusRequest true "New status"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /finance/transactions/{id}/status [patch]
func (h *FinanceHandler) UpdateTransactionStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	transaction, err := h.ledgerService.UpdateTransactionStatus(c.Request.Context(), transactionID, models.TransactionStatus(req.Status), req.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_TRANSACTION_STATUS", "transaction", transactionID, c.ClientIP(),
		map[string]interface{}{"status": transaction.Status})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// ListPolicyTransactions handles listing a policy's ledger
// @Summary     List a policy's transactions
// @Description All ledger entries of a policy in recording order, any status
// @Tags        finance
// @Produce     json
// @Security    BearerAuth
// @Param       policyId path string true "Policy ID"
// @Success     200 {array}  models.Transaction "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid policy ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Policy not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /finance/policy/{policyId}/transactions [get]
func (h *FinanceHandler) ListPolicyTransactions(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	policyID, err := parsePathID(c, "policyId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.ledgerService.ListPolicyTransactions(c.Request.Context(), policyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions, "count": len(transactions)})
}

// GetPolicyStatement handles the per-policy financial statement
// @Summary     Get a policy statement
// @Description Premium and commission of the policy with balances computed from cleared entries, plus the full ledger
// @Tags        finance
// @Produce     json
// @Security    BearerAuth
// @Param       policyId path string true "Policy ID"
// @Success     200 {object} finance.Statement "Statement"
// @Failure     400 {object} ErrorResponse "Invalid policy ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Policy not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /finance/policy/{policyId} [get]
func (h *FinanceHandler) GetPolicyStatement(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	policyID, err := parsePathID(c, "policyId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	statement, err := h.statementService.GetPolicyStatement(c.Request.Context(), policyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, statement)
}

// GetFinancialReport handles the cross-policy transaction report
// @Summary     Financial report
// @Description Transactions across all policies, newest first, optionally bounded by date. A date-only end_date includes that whole day.
// @Tags        finance
// @Produce     json
// @Security    BearerAuth
// @Param       start_date query string false "Lower bound (RFC3339 or YYYY-MM-DD)"
// @Param       end_date   query string false "Upper bound (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} map[string]interface{} "Transactions and count"
// @Failure     400 {object} ErrorResponse "Invalid date"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /finance/report [get]
func (h *FinanceHandler) GetFinancialReport(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	var rng services.ReportRange
	if raw := c.Query("start_date"); raw != "" {
		from, err := parseFlexibleTime(raw)
		if err != nil {
			respondWithError(c, invalidInput(err))
			return
		}
		rng.From = &from
	}
	if raw := c.Query("end_date"); raw != "" {
		to, err := parseRangeEnd(raw)
		if err != nil {
			respondWithError(c, invalidInput(err))
			return
		}
		rng.To = &to
	}

	transactions, err := h.statementService.GetFinancialReport(c.Request.Context(), rng)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions, "count": len(transactions)})
}

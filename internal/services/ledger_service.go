package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "brokerage/internal/errors"
	"brokerage/internal/idempotency"
	"brokerage/internal/logger"
	"brokerage/internal/metrics"
	"brokerage/internal/models"
)

// ledgerService handles the append-only transaction ledger.
type ledgerService struct {
	db   *gorm.DB
	idem *idempotency.Store
	now  func() time.Time
}

// NewLedgerService creates a new LedgerServicer. A nil store disables idempotent replay.
func NewLedgerService(db *gorm.DB, idem *idempotency.Store) LedgerServicer {
	return &ledgerService{db: db, idem: idem, now: time.Now}
}

// RecordTransaction appends a ledger entry against a policy. The policy may be
// deactivated; it only has to exist. Client and carrier are copied from it.
func (s *ledgerService) RecordTransaction(ctx context.Context, userID string, in RecordTransactionInput, idempotencyKey string) (*models.Transaction, bool, error) {
	if err := validateLedgerEntry(in); err != nil {
		return nil, false, err
	}

	replayID, err := s.idem.Reserve(ctx, userID, idempotencyKey)
	if err != nil {
		if errors.Is(err, idempotency.ErrInFlight) {
			return nil, false, apperrors.ErrIdempotencyInFlight
		}
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if replayID != "" {
		txn, err := s.GetTransaction(ctx, replayID)
		if err != nil {
			return nil, false, err
		}
		metrics.IdempotentReplay()
		return txn, true, nil
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := s.idem.Release(ctx, userID, idempotencyKey); err != nil {
			logger.FromContext(ctx).Warnw("failed to release idempotency key", "error", err, "user_id", userID)
		}
	}()

	db := s.db.WithContext(ctx)

	var policy models.Policy
	if err := db.Select("id", "client_id", "carrier_id").First(&policy, "id = ?", in.PolicyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apperrors.ErrPolicyNotFound
		}
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	date := in.TransactionDate
	if date.IsZero() {
		date = s.now()
	}
	status := models.TransactionStatusCleared
	if in.Status != nil {
		status = *in.Status
	}

	txn := &models.Transaction{
		PolicyID:        policy.ID,
		ClientID:        policy.ClientID,
		CarrierID:       policy.CarrierID,
		Type:            in.Type,
		Amount:          *in.Amount,
		PaymentMethod:   in.PaymentMethod,
		ReferenceNumber: strings.TrimSpace(in.ReferenceNumber),
		TransactionDate: date.UTC(),
		Status:          status,
		Note:            in.Note,
		CreatedBy:       userID,
	}
	if err := db.Create(txn).Error; err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	committed = true

	if err := s.idem.Complete(ctx, userID, idempotencyKey, txn.ID); err != nil {
		log := logger.FromContext(ctx)
		log.Warnw("failed to store idempotency result, releasing key",
			"error", err,
			"user_id", userID,
			"transaction_id", txn.ID,
		)
		// A pending marker would turn every retry into IDEMPOTENCY_IN_FLIGHT
		// until the TTL lapses.
		if err := s.idem.Release(ctx, userID, idempotencyKey); err != nil {
			log.Errorw("idempotency key left pending", "error", err, "user_id", userID)
		}
	}

	metrics.LedgerEntryRecorded(string(txn.Type), string(txn.Status))
	return txn, false, nil
}

func validateLedgerEntry(in RecordTransactionInput) error {
	if in.PolicyID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "policy ID is required")
	}
	if !in.Type.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	if !in.PaymentMethod.Valid() {
		return apperrors.ErrInvalidPaymentMethod
	}
	if in.Amount == nil || !in.Amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if err := checkMoneyScale(in.Amount); err != nil {
		return err
	}
	if in.Status != nil && !in.Status.Valid() {
		return apperrors.ErrInvalidLedgerStatus
	}
	return nil
}

// GetTransaction returns a single ledger entry.
func (s *ledgerService) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.WithContext(ctx).First(&txn, "id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &txn, nil
}

// UpdateTransactionStatus moves an entry between Pending, Cleared and Bounced,
// optionally replacing its note. No other entry is touched; balances are
// always recomputed from scratch.
func (s *ledgerService) UpdateTransactionStatus(ctx context.Context, transactionID string, status models.TransactionStatus, note *string) (*models.Transaction, error) {
	if !status.Valid() {
		return nil, apperrors.ErrInvalidLedgerStatus
	}

	txn, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	cols := map[string]interface{}{"status": status}
	if note != nil {
		cols["note"] = *note
	}

	if err := s.db.WithContext(ctx).Model(txn).Updates(cols).Error; err != nil {
		if errors.Is(err, apperrors.ErrLedgerImmutable) {
			return nil, apperrors.ErrLedgerImmutable
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetTransaction(ctx, transactionID)
}

// ListPolicyTransactions returns every entry recorded against a policy, oldest first.
func (s *ledgerService) ListPolicyTransactions(ctx context.Context, policyID string) ([]models.Transaction, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Policy{}).Where("id = ?", policyID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrPolicyNotFound
	}

	txns := []models.Transaction{}
	if err := db.Where("policy_id = ?", policyID).
		Order("transaction_date ASC, created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txns, nil
}

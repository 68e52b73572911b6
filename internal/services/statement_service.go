package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "brokerage/internal/errors"
	"brokerage/internal/finance"
	"brokerage/internal/models"
)

// statementService computes statements and reports from raw ledger entries.
// Nothing is cached; every call reads the ledger afresh.
type statementService struct {
	db *gorm.DB
}

// NewStatementService creates a new StatementServicer.
func NewStatementService(db *gorm.DB) StatementServicer {
	return &statementService{db: db}
}

// GetPolicyStatement reconciles a policy's ledger against its premium.
func (s *statementService) GetPolicyStatement(ctx context.Context, policyID string) (*finance.Statement, error) {
	db := s.db.WithContext(ctx)

	var policy models.Policy
	if err := db.Select("id", "policy_number", "premium_amount", "commission_amount").
		First(&policy, "id = ?", policyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPolicyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.Transaction
	if err := db.Where("policy_id = ?", policyID).
		Order("transaction_date ASC, created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	statement := finance.BuildStatement(policy, entries)
	return &statement, nil
}

// GetFinancialReport lists every entry dated within rng, inclusive, newest first,
// each with its client attached. Missing bounds are open.
func (s *statementService) GetFinancialReport(ctx context.Context, rng ReportRange) ([]models.Transaction, error) {
	query := s.db.WithContext(ctx).Preload("Client")
	if rng.From != nil {
		query = query.Where("transaction_date >= ?", rng.From.UTC())
	}
	if rng.To != nil {
		query = query.Where("transaction_date <= ?", rng.To.UTC())
	}

	entries := []models.Transaction{}
	if err := query.Order("transaction_date DESC, created_at DESC").Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entries, nil
}

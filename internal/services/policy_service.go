package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "brokerage/internal/errors"
	"brokerage/internal/lifecycle"
	"brokerage/internal/logger"
	"brokerage/internal/metrics"
	"brokerage/internal/models"
	"brokerage/internal/pagination"
)

const sweepBatchSize = 500

// policyService handles policy lifecycle business logic.
type policyService struct {
	db                 *gorm.DB
	expiringSoonWindow time.Duration
	now                func() time.Time
}

// NewPolicyService creates a new PolicyServicer. Policies whose end date falls
// within expiringSoonDays of now are reported by the expiring-soon filter.
func NewPolicyService(db *gorm.DB, expiringSoonDays int) PolicyServicer {
	if expiringSoonDays <= 0 {
		expiringSoonDays = 30
	}
	return &policyService{
		db:                 db,
		expiringSoonWindow: time.Duration(expiringSoonDays) * 24 * time.Hour,
		now:                time.Now,
	}
}

// CreatePolicy validates references, derives commission and status, and stores a new policy.
func (s *policyService) CreatePolicy(ctx context.Context, userID string, in CreatePolicyInput) (*models.Policy, error) {
	in.PolicyNumber = strings.TrimSpace(in.PolicyNumber)
	if in.PolicyNumber == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "policy number is required")
	}
	if in.ClientID == "" || in.CarrierID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "client and carrier are required")
	}
	if !in.Category.Valid() {
		return nil, apperrors.ErrInvalidPolicyCategory
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start and end dates are required")
	}
	if in.PremiumAmount == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "premium amount is required")
	}
	if in.PremiumAmount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrNegativeMoney, "premium amount cannot be negative")
	}
	if in.CommissionRate != nil && in.CommissionRate.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrNegativeMoney, "commission rate cannot be negative")
	}
	if err := checkMoneyScale(in.PremiumAmount, in.CommissionRate); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	if err := s.ensureClient(db, in.ClientID); err != nil {
		return nil, err
	}
	carrier, err := s.findCarrier(db, in.CarrierID)
	if err != nil {
		return nil, err
	}

	// The unique index is authoritative; this only produces a clearer error
	// in the common case. Inactive policies still hold their number.
	var existing int64
	if err := db.Model(&models.Policy{}).Where("policy_number = ?", in.PolicyNumber).Count(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrDuplicatePolicyNumber
	}

	rate := in.CommissionRate
	if rate == nil {
		fallback, _ := carrier.DefaultRateFor(in.Category)
		rate = &fallback
	}

	policy := lifecycle.DeriveOnCreate(models.Policy{
		PolicyNumber:   in.PolicyNumber,
		ClientID:       in.ClientID,
		CarrierID:      in.CarrierID,
		Category:       in.Category,
		SubCategory:    strings.TrimSpace(in.SubCategory),
		StartDate:      in.StartDate.UTC(),
		EndDate:        in.EndDate.UTC(),
		PremiumAmount:  *in.PremiumAmount,
		CommissionRate: *rate,
		Notes:          in.Notes,
		CreatedBy:      userID,
		IsActive:       true,
	}, s.now().UTC())

	if err := db.Create(&policy).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Wrap(apperrors.ErrDuplicatePolicyNumber, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	metrics.PolicyCreated(string(policy.Category))
	policy.Documents = []models.PolicyDocument{}
	return &policy, nil
}

// ListPolicies returns a page of active-flag policies matching filter, newest first.
func (s *policyService) ListPolicies(ctx context.Context, page pagination.PageRequest, filter PolicyFilter) (*pagination.PageResponse[models.Policy], error) {
	base := s.db.WithContext(ctx).Model(&models.Policy{}).Where("is_active = ?", true)
	base = s.applyPolicyFilters(base, filter)

	resp, err := pagination.Fetch[models.Policy](base, page, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Client").Preload("Carrier").Order("created_at DESC")
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return resp, nil
}

// applyPolicyFilters narrows query by filter. ExpiringSoon implies Active and
// replaces any status filter.
func (s *policyService) applyPolicyFilters(query *gorm.DB, filter PolicyFilter) *gorm.DB {
	if filter.Status != nil && !filter.ExpiringSoon {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.CarrierID != nil {
		query = query.Where("carrier_id = ?", *filter.CarrierID)
	}
	if filter.ExpiringSoon {
		now := s.now().UTC()
		query = query.Where("status = ? AND end_date >= ? AND end_date <= ?",
			models.PolicyStatusActive, now, now.Add(s.expiringSoonWindow))
	}
	return query
}

// GetPolicy returns a policy with its client, carrier and documents.
// Deactivated policies are still returned.
func (s *policyService) GetPolicy(ctx context.Context, policyID string) (*models.Policy, error) {
	var policy models.Policy
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Carrier").
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at ASC")
		}).
		First(&policy, "id = ?", policyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPolicyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if policy.Documents == nil {
		policy.Documents = []models.PolicyDocument{}
	}
	return &policy, nil
}

// UpdatePolicy applies a partial edit and re-derives commission and status
// from whichever of their inputs the edit touches.
func (s *policyService) UpdatePolicy(ctx context.Context, policyID string, in UpdatePolicyInput) (*models.Policy, error) {
	if err := validatePolicyEdit(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Policy
		if err := tx.First(&existing, "id = ?", policyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrPolicyNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if in.PolicyNumber != nil && strings.TrimSpace(*in.PolicyNumber) != existing.PolicyNumber {
			return apperrors.ErrPolicyNumberImmutable
		}

		cols := make(map[string]interface{})
		if in.ClientID != nil && *in.ClientID != existing.ClientID {
			if err := s.ensureClient(tx, *in.ClientID); err != nil {
				return err
			}
			cols["client_id"] = *in.ClientID
		}
		if in.CarrierID != nil && *in.CarrierID != existing.CarrierID {
			if _, err := s.findCarrier(tx, *in.CarrierID); err != nil {
				return err
			}
			cols["carrier_id"] = *in.CarrierID
		}
		if in.Category != nil {
			cols["category"] = *in.Category
		}
		if in.SubCategory != nil {
			cols["sub_category"] = strings.TrimSpace(*in.SubCategory)
		}
		if in.Notes != nil {
			cols["notes"] = *in.Notes
		}

		edits := lifecycle.DeriveOnUpdate(existing, lifecycle.Edits{
			PremiumAmount:    in.PremiumAmount,
			CommissionRate:   in.CommissionRate,
			CommissionAmount: in.CommissionAmount,
			StartDate:        utcPtr(in.StartDate),
			EndDate:          utcPtr(in.EndDate),
			Status:           in.Status,
		}, s.now().UTC())
		for k, v := range edits.Columns() {
			cols[k] = v
		}

		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&existing).Updates(cols).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetPolicy(ctx, policyID)
}

func validatePolicyEdit(in UpdatePolicyInput) error {
	if in.Category != nil && !in.Category.Valid() {
		return apperrors.ErrInvalidPolicyCategory
	}
	if in.Status != nil && !in.Status.Valid() {
		return apperrors.ErrInvalidPolicyStatus
	}
	if in.PremiumAmount != nil && in.PremiumAmount.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrNegativeMoney, "premium amount cannot be negative")
	}
	if in.CommissionRate != nil && in.CommissionRate.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrNegativeMoney, "commission rate cannot be negative")
	}
	if err := checkMoneyScale(in.PremiumAmount, in.CommissionRate); err != nil {
		return err
	}
	if (in.StartDate != nil && in.StartDate.IsZero()) || (in.EndDate != nil && in.EndDate.IsZero()) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "dates cannot be cleared")
	}
	if (in.ClientID != nil && *in.ClientID == "") || (in.CarrierID != nil && *in.CarrierID == "") {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "client and carrier cannot be cleared")
	}
	return nil
}

// checkMoneyScale rejects values the money columns would silently round.
func checkMoneyScale(values ...*decimal.Decimal) error {
	for _, v := range values {
		if v != nil && !models.FitsMoneyScale(*v) {
			return apperrors.ErrMoneyPrecision
		}
	}
	return nil
}

// DeactivatePolicy clears the active flag. The policy and its ledger remain readable.
func (s *policyService) DeactivatePolicy(ctx context.Context, policyID string) error {
	db := s.db.WithContext(ctx)

	var policy models.Policy
	if err := db.Select("id", "is_active").First(&policy, "id = ?", policyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPolicyNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !policy.IsActive {
		return nil
	}

	if err := db.Model(&models.Policy{}).Where("id = ?", policyID).Update("is_active", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AttachDocument records metadata for a file stored by the upload service.
func (s *policyService) AttachDocument(ctx context.Context, policyID string, in DocumentInput) (*models.PolicyDocument, error) {
	in.DocType = strings.TrimSpace(in.DocType)
	in.Location = strings.TrimSpace(in.Location)
	if in.DocType == "" || in.Location == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "document type and location are required")
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Policy{}).Where("id = ?", policyID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrPolicyNotFound
	}

	doc := &models.PolicyDocument{
		PolicyID:   policyID,
		DocType:    in.DocType,
		Location:   in.Location,
		UploadedAt: s.now().UTC(),
	}
	if err := db.Create(doc).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return doc, nil
}

// RefreshStatuses re-derives the status of every active-flag policy that is
// Pending or Active as of now. Cancelled and Expired policies are left alone.
// Each update is conditional on the status read, so a concurrent cancel wins.
func (s *policyService) RefreshStatuses(ctx context.Context, now time.Time) (*SweepResult, error) {
	now = now.UTC()
	db := s.db.WithContext(ctx)
	result := &SweepResult{ByStatus: make(map[string]int)}

	var batch []models.Policy
	err := db.Select("id", "start_date", "end_date", "status").
		Where("is_active = ? AND status IN ?", true, []models.PolicyStatus{models.PolicyStatusPending, models.PolicyStatusActive}).
		FindInBatches(&batch, sweepBatchSize, func(tx *gorm.DB, _ int) error {
			for _, p := range batch {
				result.Examined++
				next := lifecycle.DeriveStatus(p.StartDate, p.EndDate, now)
				if next == p.Status {
					continue
				}
				res := db.Model(&models.Policy{}).
					Where("id = ? AND status = ?", p.ID, p.Status).
					Update("status", next)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					continue
				}
				result.Updated++
				result.ByStatus[string(next)]++
				metrics.PolicyStatusChanged(string(p.Status), string(next))
			}
			return nil
		}).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.FromContext(ctx).Infow("policy status sweep completed",
		"examined", result.Examined,
		"updated", result.Updated,
	)
	return result, nil
}

func (s *policyService) ensureClient(db *gorm.DB, clientID string) error {
	var count int64
	if err := db.Model(&models.Client{}).Where("id = ?", clientID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrClientNotFound
	}
	return nil
}

func (s *policyService) findCarrier(db *gorm.DB, carrierID string) (*models.Carrier, error) {
	var carrier models.Carrier
	if err := db.Preload("CommissionDefaults").First(&carrier, "id = ?", carrierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCarrierNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &carrier, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"brokerage/internal/lifecycle"
	"brokerage/internal/models"
	"brokerage/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewUserID returns a fresh actor ID as issued by the identity service.
func NewUserID() string {
	return uuid.New()
}

// CreateTestClient creates an individual client owned by createdBy.
func CreateTestClient(t *testing.T, db *gorm.DB, createdBy string) *models.Client {
	t.Helper()

	n := nextID()
	client := &models.Client{
		Type:       models.ClientTypeIndividual,
		FirstName:  "Abebe",
		FatherName: fmt.Sprintf("Test%d", n),
		Phone:      fmt.Sprintf("+2519%08d", n),
		CreatedBy:  createdBy,
		IsActive:   true,
	}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}
	return client
}

// CreateTestCarrier creates a carrier with the given commission defaults.
func CreateTestCarrier(t *testing.T, db *gorm.DB, defaults map[models.PolicyCategory]string) *models.Carrier {
	t.Helper()

	carrier := &models.Carrier{
		Name:     fmt.Sprintf("Test Insurance %d", nextID()),
		Phone:    "+251111000000",
		IsActive: true,
	}
	for category, pct := range defaults {
		carrier.CommissionDefaults = append(carrier.CommissionDefaults, models.CarrierCommissionDefault{
			Category:   category,
			Percentage: decimal.RequireFromString(pct),
		})
	}
	if err := db.Create(carrier).Error; err != nil {
		t.Fatalf("failed to create test carrier: %v", err)
	}
	return carrier
}

// PolicyOption customises a fixture policy.
type PolicyOption func(*models.Policy)

// WithPremium sets premium and rate.
func WithPremium(premium, rate string) PolicyOption {
	return func(p *models.Policy) {
		p.PremiumAmount = decimal.RequireFromString(premium)
		p.CommissionRate = decimal.RequireFromString(rate)
	}
}

// WithDates sets the validity window.
func WithDates(start, end time.Time) PolicyOption {
	return func(p *models.Policy) {
		p.StartDate = start
		p.EndDate = end
	}
}

// WithStatus overrides the derived status after derivation.
func WithStatus(status models.PolicyStatus) PolicyOption {
	return func(p *models.Policy) {
		p.Status = status
	}
}

// WithCategory sets the category.
func WithCategory(category models.PolicyCategory) PolicyOption {
	return func(p *models.Policy) {
		p.Category = category
	}
}

// CreateTestPolicy creates an active Motor policy running from 30 days ago to
// 335 days from now with premium 10000 at 10%, unless options say otherwise.
func CreateTestPolicy(t *testing.T, db *gorm.DB, clientID, carrierID string, opts ...PolicyOption) *models.Policy {
	t.Helper()

	now := time.Now().UTC()
	p := models.Policy{
		PolicyNumber:   fmt.Sprintf("MTR/%d/2025", nextID()),
		ClientID:       clientID,
		CarrierID:      carrierID,
		Category:       models.PolicyCategoryMotor,
		StartDate:      now.AddDate(0, 0, -30),
		EndDate:        now.AddDate(0, 0, 335),
		PremiumAmount:  decimal.NewFromInt(10000),
		CommissionRate: decimal.NewFromInt(10),
		IsActive:       true,
	}
	p = lifecycle.DeriveOnCreate(p, now)
	for _, opt := range opts {
		opt(&p)
	}
	// options may change money or dates; keep commission consistent
	p.CommissionAmount = lifecycle.Commission(p.PremiumAmount, p.CommissionRate)

	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("failed to create test policy: %v", err)
	}
	return &p
}

// CreateTestTransaction creates a ledger entry against policy.
func CreateTestTransaction(t *testing.T, db *gorm.DB, policy *models.Policy, txType models.TransactionType, amount string, status models.TransactionStatus, date time.Time) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		PolicyID:        policy.ID,
		ClientID:        policy.ClientID,
		CarrierID:       policy.CarrierID,
		Type:            txType,
		Amount:          decimal.RequireFromString(amount),
		PaymentMethod:   models.PaymentMethodBankTransfer,
		TransactionDate: date,
		Status:          status,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return txn
}

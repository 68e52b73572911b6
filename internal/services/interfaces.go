package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"brokerage/internal/finance"
	"brokerage/internal/models"
	"brokerage/internal/pagination"
)

// CreatePolicyInput holds the fields supplied when a policy is written.
// A nil CommissionRate falls back to the carrier's default for the category.
type CreatePolicyInput struct {
	PolicyNumber   string
	ClientID       string
	CarrierID      string
	Category       models.PolicyCategory
	SubCategory    string
	StartDate      time.Time
	EndDate        time.Time
	PremiumAmount  *decimal.Decimal
	CommissionRate *decimal.Decimal
	Notes          string
}

// UpdatePolicyInput is a partial edit. Nil fields are left unchanged.
// PolicyNumber is accepted only so that an attempt to change it can be rejected.
// CommissionAmount is never applied directly; it is re-derived from premium and rate.
type UpdatePolicyInput struct {
	PolicyNumber     *string
	ClientID         *string
	CarrierID        *string
	Category         *models.PolicyCategory
	SubCategory      *string
	StartDate        *time.Time
	EndDate          *time.Time
	PremiumAmount    *decimal.Decimal
	CommissionRate   *decimal.Decimal
	CommissionAmount *decimal.Decimal
	Status           *models.PolicyStatus
	Notes            *string
}

// PolicyFilter holds optional filter parameters for listing policies.
type PolicyFilter struct {
	Status       *models.PolicyStatus
	Category     *models.PolicyCategory
	ClientID     *string
	CarrierID    *string
	// ExpiringSoon selects Active policies ending within the window and
	// takes precedence over Status.
	ExpiringSoon bool
}

// DocumentInput is the metadata of a file already stored elsewhere.
type DocumentInput struct {
	DocType  string
	Location string
}

// SweepResult summarises a status refresh run.
type SweepResult struct {
	Examined int            `json:"examined"`
	Updated  int            `json:"updated"`
	ByStatus map[string]int `json:"by_status"`
}

// PolicyServicer defines the contract for policy lifecycle business logic.
type PolicyServicer interface {
	CreatePolicy(ctx context.Context, userID string, in CreatePolicyInput) (*models.Policy, error)
	ListPolicies(ctx context.Context, page pagination.PageRequest, filter PolicyFilter) (*pagination.PageResponse[models.Policy], error)
	GetPolicy(ctx context.Context, policyID string) (*models.Policy, error)
	UpdatePolicy(ctx context.Context, policyID string, in UpdatePolicyInput) (*models.Policy, error)
	DeactivatePolicy(ctx context.Context, policyID string) error
	AttachDocument(ctx context.Context, policyID string, in DocumentInput) (*models.PolicyDocument, error)
	RefreshStatuses(ctx context.Context, now time.Time) (*SweepResult, error)
}

// RecordTransactionInput holds the fields of a new ledger entry. A zero
// TransactionDate means now; a nil Status means Cleared.
type RecordTransactionInput struct {
	PolicyID        string
	Type            models.TransactionType
	Amount          *decimal.Decimal
	PaymentMethod   models.PaymentMethod
	ReferenceNumber string
	TransactionDate time.Time
	Status          *models.TransactionStatus
	Note            string
}

// LedgerServicer defines the contract for the append-only transaction ledger.
type LedgerServicer interface {
	// RecordTransaction appends an entry. When idempotencyKey is non-empty and
	// a previous request with the same key succeeded, the original entry is
	// returned with replayed set to true.
	RecordTransaction(ctx context.Context, userID string, in RecordTransactionInput, idempotencyKey string) (txn *models.Transaction, replayed bool, err error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, transactionID string, status models.TransactionStatus, note *string) (*models.Transaction, error)
	ListPolicyTransactions(ctx context.Context, policyID string) ([]models.Transaction, error)
}

// ReportRange bounds a financial report. Either side may be nil.
type ReportRange struct {
	From *time.Time
	To   *time.Time
}

// StatementServicer defines the contract for statement and report computation.
type StatementServicer interface {
	GetPolicyStatement(ctx context.Context, policyID string) (*finance.Statement, error)
	GetFinancialReport(ctx context.Context, rng ReportRange) ([]models.Transaction, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PolicyCategory is the line of business a policy belongs to.
type PolicyCategory string

const (
	PolicyCategoryMotor       PolicyCategory = "Motor"
	PolicyCategoryHealth      PolicyCategory = "Health"
	PolicyCategoryProperty    PolicyCategory = "Property"
	PolicyCategoryMarine      PolicyCategory = "Marine"
	PolicyCategoryEngineering PolicyCategory = "Engineering"
	PolicyCategoryBond        PolicyCategory = "Bond"
	PolicyCategoryTravel      PolicyCategory = "Travel"
	PolicyCategoryOther       PolicyCategory = "Other"
)

// PolicyCategories lists every supported category.
var PolicyCategories = []PolicyCategory{
	PolicyCategoryMotor, PolicyCategoryHealth, PolicyCategoryProperty, PolicyCategoryMarine,
	PolicyCategoryEngineering, PolicyCategoryBond, PolicyCategoryTravel, PolicyCategoryOther,
}

// Valid reports whether c is a supported category.
func (c PolicyCategory) Valid() bool {
	for _, v := range PolicyCategories {
		if c == v {
			return true
		}
	}
	return false
}

// PolicyStatus is the lifecycle state of a policy.
type PolicyStatus string

const (
	PolicyStatusPending   PolicyStatus = "Pending"
	PolicyStatusActive    PolicyStatus = "Active"
	PolicyStatusExpired   PolicyStatus = "Expired"
	PolicyStatusCancelled PolicyStatus = "Cancelled"
)

// Valid reports whether s is a supported status.
func (s PolicyStatus) Valid() bool {
	switch s {
	case PolicyStatusPending, PolicyStatusActive, PolicyStatusExpired, PolicyStatusCancelled:
		return true
	}
	return false
}

// Policy is an insurance contract placed by the broker with a carrier on behalf of a client.
//
// MoneyScale is the number of fractional digits every money and rate
// column stores (decimal(18,4) and decimal(9,4)).
const MoneyScale = 4

// FitsMoneyScale reports whether d can be stored without rounding.
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// CommissionAmount and Status are derived by the lifecycle package on every
// write; they are stored so that listings can filter on them.
type Policy struct {
	Base
	PolicyNumber     string          `gorm:"not null;uniqueIndex" json:"policy_number"`
	ClientID         string          `gorm:"type:uuid;not null;index" json:"client_id"`
	CarrierID        string          `gorm:"type:uuid;not null;index" json:"carrier_id"`
	Category         PolicyCategory  `gorm:"not null" json:"category"`
	SubCategory      string          `json:"sub_category,omitempty"`
	StartDate        time.Time       `gorm:"not null" json:"start_date"`
	EndDate          time.Time       `gorm:"not null;index" json:"end_date"`
	PremiumAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"premium_amount"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"commission_rate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"commission_amount"`
	Status           PolicyStatus    `gorm:"not null;index" json:"status"`
	Notes            string          `json:"notes,omitempty"`
	CreatedBy        string          `gorm:"type:uuid;index" json:"created_by"`
	IsActive         bool            `gorm:"not null;default:true;index" json:"is_active"`

	// Relationships
	Client    *Client          `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Carrier   *Carrier         `gorm:"foreignKey:CarrierID" json:"carrier,omitempty"`
	Documents []PolicyDocument `gorm:"foreignKey:PolicyID" json:"documents"`
}

// PolicyDocument is metadata about a file attached to a policy. The file itself
// lives in external storage; Location is where to fetch it from.
type PolicyDocument struct {
	Base
	PolicyID   string    `gorm:"type:uuid;not null;index" json:"policy_id"`
	DocType    string    `gorm:"not null" json:"doc_type"`
	Location   string    `gorm:"not null" json:"location"`
	UploadedAt time.Time `gorm:"not null" json:"uploaded_at"`
}

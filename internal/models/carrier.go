package models

import "github.com/shopspring/decimal"

// Carrier is an insurance company that underwrites policies placed by the broker.
type Carrier struct {
	Base
	Name     string `gorm:"not null;uniqueIndex" json:"name"`
	Alias    string `json:"alias,omitempty"`
	Phone    string `gorm:"not null" json:"phone"`
	Email    string `json:"email,omitempty"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`

	CommissionDefaults []CarrierCommissionDefault `gorm:"foreignKey:CarrierID" json:"commission_defaults,omitempty"`
}

// CarrierCommissionDefault is the commission percentage a carrier pays for a
// policy category when the policy itself does not specify a rate.
type CarrierCommissionDefault struct {
	Base
	CarrierID  string          `gorm:"type:uuid;not null;uniqueIndex:idx_carrier_commission_category" json:"carrier_id"`
	Category   PolicyCategory  `gorm:"not null;uniqueIndex:idx_carrier_commission_category" json:"category"`
	Percentage decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"percentage"`
}

// DefaultRateFor returns the configured commission percentage for category.
func (c Carrier) DefaultRateFor(category PolicyCategory) (decimal.Decimal, bool) {
	for _, d := range c.CommissionDefaults {
		if d.Category == category {
			return d.Percentage, true
		}
	}
	return decimal.Zero, false
}

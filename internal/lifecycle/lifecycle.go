// Package lifecycle derives the computed fields of a policy: its commission
// amount and its date-driven status. It is pure; callers pass the clock in.
package lifecycle

import (
	"time"

	"brokerage/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DeriveStatus maps a validity window onto a status at instant now.
// An inverted window (end before start) is not rejected; whichever branch
// matches first wins.
func DeriveStatus(start, end, now time.Time) models.PolicyStatus {
	switch {
	case end.Before(now):
		return models.PolicyStatusExpired
	case start.After(now):
		return models.PolicyStatusPending
	default:
		return models.PolicyStatusActive
	}
}

// Commission returns premium × rate / 100, rounded half away from zero to
// the stored money scale so the returned value matches what is persisted.
func Commission(premium, rate decimal.Decimal) decimal.Decimal {
	return premium.Mul(rate).Div(hundred).Round(models.MoneyScale)
}

// DeriveOnCreate fills CommissionAmount and Status on a new policy.
func DeriveOnCreate(p models.Policy, now time.Time) models.Policy {
	p.CommissionAmount = Commission(p.PremiumAmount, p.CommissionRate)
	p.Status = DeriveStatus(p.StartDate, p.EndDate, now)
	return p
}

// Edits is a partial update to a policy. A nil field is not part of the edit.
type Edits struct {
	PremiumAmount    *decimal.Decimal
	CommissionRate   *decimal.Decimal
	CommissionAmount *decimal.Decimal
	StartDate        *time.Time
	EndDate          *time.Time
	Status           *models.PolicyStatus
}

// HasMoney reports whether the edit touches premium or rate.
func (e Edits) HasMoney() bool {
	return e.PremiumAmount != nil || e.CommissionRate != nil
}

// HasDates reports whether the edit touches the validity window.
func (e Edits) HasDates() bool {
	return e.StartDate != nil || e.EndDate != nil
}

// DeriveOnUpdate returns edits with the derived fields filled in.
//
// Money is handled first: if premium or rate is edited, commission is
// recomputed from the edited values, falling back to the stored ones.
// Dates are handled second: if either date is edited, status is recomputed
// and any status supplied in the same edit is discarded. A status-only edit
// passes through, which is how a policy is cancelled.
func DeriveOnUpdate(existing models.Policy, edits Edits, now time.Time) Edits {
	out := edits

	if edits.HasMoney() {
		premium := existing.PremiumAmount
		if edits.PremiumAmount != nil {
			premium = *edits.PremiumAmount
		}
		rate := existing.CommissionRate
		if edits.CommissionRate != nil {
			rate = *edits.CommissionRate
		}
		commission := Commission(premium, rate)
		out.CommissionAmount = &commission
	} else {
		out.CommissionAmount = nil
	}

	if edits.HasDates() {
		start := existing.StartDate
		if edits.StartDate != nil {
			start = *edits.StartDate
		}
		end := existing.EndDate
		if edits.EndDate != nil {
			end = *edits.EndDate
		}
		status := DeriveStatus(start, end, now)
		out.Status = &status
	}

	return out
}

// Apply writes the edit onto p.
func (e Edits) Apply(p *models.Policy) {
	if e.PremiumAmount != nil {
		p.PremiumAmount = *e.PremiumAmount
	}
	if e.CommissionRate != nil {
		p.CommissionRate = *e.CommissionRate
	}
	if e.CommissionAmount != nil {
		p.CommissionAmount = *e.CommissionAmount
	}
	if e.StartDate != nil {
		p.StartDate = *e.StartDate
	}
	if e.EndDate != nil {
		p.EndDate = *e.EndDate
	}
	if e.Status != nil {
		p.Status = *e.Status
	}
}

// Columns returns the edit as a column map suitable for a partial update.
func (e Edits) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if e.PremiumAmount != nil {
		cols["premium_amount"] = *e.PremiumAmount
	}
	if e.CommissionRate != nil {
		cols["commission_rate"] = *e.CommissionRate
	}
	if e.CommissionAmount != nil {
		cols["commission_amount"] = *e.CommissionAmount
	}
	if e.StartDate != nil {
		cols["start_date"] = *e.StartDate
	}
	if e.EndDate != nil {
		cols["end_date"] = *e.EndDate
	}
	if e.Status != nil {
		cols["status"] = *e.Status
	}
	return cols
}

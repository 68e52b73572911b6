// Package finance folds ledger entries into per-policy balances.
package finance

import (
	"brokerage/internal/models"

	"github.com/shopspring/decimal"
)

// PolicyTotals are the contract amounts a statement is reconciled against.
type PolicyTotals struct {
	Premium    decimal.Decimal `json:"premium"`
	Commission decimal.Decimal `json:"commission"`
}

// Summary is the reconciled position of a policy.
//
// Balances are not clamped: a negative ClientBalance means the client has
// overpaid. CarrierBalance is measured against the gross premium.
type Summary struct {
	TotalPaidByClient       decimal.Decimal `json:"total_paid_by_client"`
	ClientBalance           decimal.Decimal `json:"client_balance"`
	TotalRemittedToCarrier  decimal.Decimal `json:"total_remitted_to_carrier"`
	CarrierBalance          decimal.Decimal `json:"carrier_balance"`
	TotalCommissionReceived decimal.Decimal `json:"total_commission_received"`
}

// Statement is a policy's financial position together with the entries it was computed from.
type Statement struct {
	PolicyID     string               `json:"policy_id"`
	PolicyNumber string               `json:"policy_number"`
	Policy       PolicyTotals         `json:"policy"`
	Summary      Summary              `json:"summary"`
	Transactions []models.Transaction `json:"transactions"`
}

// Summarize folds entries into a Summary. Only Cleared entries count.
func Summarize(premium decimal.Decimal, entries []models.Transaction) Summary {
	paid := decimal.Zero
	remitted := decimal.Zero
	commission := decimal.Zero

	for _, e := range entries {
		if e.Status != models.TransactionStatusCleared {
			continue
		}
		switch e.Type {
		case models.TransactionTypeClientPayment:
			paid = paid.Add(e.Amount)
		case models.TransactionTypeCarrierRemittance:
			remitted = remitted.Add(e.Amount)
		case models.TransactionTypeCommissionReceipt:
			commission = commission.Add(e.Amount)
		}
	}

	return Summary{
		TotalPaidByClient:       paid,
		ClientBalance:           premium.Sub(paid),
		TotalRemittedToCarrier:  remitted,
		CarrierBalance:          premium.Sub(remitted),
		TotalCommissionReceived: commission,
	}
}

// BuildStatement assembles the statement for p from its ledger entries.
// Entries are expected in ascending transaction date order.
func BuildStatement(p models.Policy, entries []models.Transaction) Statement {
	if entries == nil {
		entries = []models.Transaction{}
	}
	return Statement{
		PolicyID:     p.ID,
		PolicyNumber: p.PolicyNumber,
		Policy: PolicyTotals{
			Premium:    p.PremiumAmount,
			Commission: p.CommissionAmount,
		},
		Summary:      Summarize(p.PremiumAmount, entries),
		Transactions: entries,
	}
}

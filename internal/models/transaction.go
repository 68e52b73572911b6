package models

import (
	"time"

	apperrors "brokerage/internal/errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType is the direction of money movement. Amounts are always
// stored positive; the type carries the sign.
type TransactionType string

const (
	TransactionTypeClientPayment     TransactionType = "ClientPayment"
	TransactionTypeCarrierRemittance TransactionType = "CarrierRemittance"
	TransactionTypeCommissionReceipt TransactionType = "CommissionReceipt"
)

// Valid reports whether t is a supported ledger entry type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeClientPayment, TransactionTypeCarrierRemittance, TransactionTypeCommissionReceipt:
		return true
	}
	return false
}

// PaymentMethod is how the money moved.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
	PaymentMethodCheque       PaymentMethod = "Cheque"
	PaymentMethodCPO          PaymentMethod = "CPO"
	PaymentMethodMobileMoney  PaymentMethod = "MobileMoney"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodCPO, PaymentMethodMobileMoney:
		return true
	}
	return false
}

// TransactionStatus tracks whether funds actually settled. Only Cleared
// entries count toward balances.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "Pending"
	TransactionStatusCleared TransactionStatus = "Cleared"
	TransactionStatusBounced TransactionStatus = "Bounced"
)

// Valid reports whether s is a supported ledger status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCleared, TransactionStatusBounced:
		return true
	}
	return false
}

// Transaction is an append-only ledger entry against a policy. ClientID and
// CarrierID are copied from the policy when the entry is recorded and are not
// re-synced if the policy is later re-pointed.
type Transaction struct {
	Base
	PolicyID        string            `gorm:"type:uuid;not null;index" json:"policy_id"`
	ClientID        string            `gorm:"type:uuid;not null;index" json:"client_id"`
	CarrierID       string            `gorm:"type:uuid;not null;index" json:"carrier_id"`
	Type            TransactionType   `gorm:"not null" json:"type"`
	Amount          decimal.Decimal   `gorm:"type:decimal(18,4);not null" json:"amount"`
	PaymentMethod   PaymentMethod     `gorm:"not null" json:"payment_method"`
	ReferenceNumber string            `json:"reference_number,omitempty"`
	TransactionDate time.Time         `gorm:"not null;index" json:"transaction_date"`
	Status          TransactionStatus `gorm:"not null" json:"status"`
	Note            string            `json:"note,omitempty"`
	CreatedBy       string            `gorm:"type:uuid" json:"created_by"`

	// Relationships
	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

// BeforeUpdate rejects edits to anything but status and note.
func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("PolicyID", "ClientID", "CarrierID", "Type", "Amount", "PaymentMethod", "ReferenceNumber", "TransactionDate") {
		return apperrors.ErrLedgerImmutable
	}
	return nil
}

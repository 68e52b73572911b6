// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"brokerage/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("policy_category", validatePolicyCategory)
		_ = v.RegisterValidation("policy_status", validatePolicyStatus)
		_ = v.RegisterValidation("ledger_type", validateLedgerType)
		_ = v.RegisterValidation("payment_method", validatePaymentMethod)
		_ = v.RegisterValidation("ledger_status", validateLedgerStatus)
	}
}

func validatePolicyCategory(fl validator.FieldLevel) bool {
	return models.PolicyCategory(fl.Field().String()).Valid()
}

func validatePolicyStatus(fl validator.FieldLevel) bool {
	return models.PolicyStatus(fl.Field().String()).Valid()
}

func validateLedgerType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	return models.PaymentMethod(fl.Field().String()).Valid()
}

func validateLedgerStatus(fl validator.FieldLevel) bool {
	return models.TransactionStatus(fl.Field().String()).Valid()
}

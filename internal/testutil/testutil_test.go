package testutil_test

import (
	"testing"
	"time"

	"brokerage/internal/errors"
	"brokerage/internal/models"
	"brokerage/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"clients", "carriers", "carrier_commission_defaults", "policies", "policy_documents", "transactions", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDB_Isolated(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestClient(t, first, testutil.NewUserID())

	var count int64
	second.Model(&models.Client{}).Count(&count)
	if count != 0 {
		t.Errorf("expected isolated databases, found %d clients", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	userID := testutil.NewUserID()
	client := testutil.CreateTestClient(t, db, userID)
	if client.ID == "" {
		t.Fatal("expected client ID to be set")
	}

	carrier := testutil.CreateTestCarrier(t, db, map[models.PolicyCategory]string{models.PolicyCategoryHealth: "15"})
	if len(carrier.CommissionDefaults) != 1 {
		t.Fatalf("expected 1 commission default, got %d", len(carrier.CommissionDefaults))
	}

	policy := testutil.CreateTestPolicy(t, db, client.ID, carrier.ID)
	if policy.Status != models.PolicyStatusActive {
		t.Errorf("expected Active policy, got %s", policy.Status)
	}
	testutil.AssertDecimal(t, "1000", policy.CommissionAmount)

	txn := testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeClientPayment, "250.50", models.TransactionStatusCleared, time.Now())
	if txn.ClientID != client.ID || txn.CarrierID != carrier.ID {
		t.Error("expected transaction to copy client and carrier from policy")
	}

	var stored models.Transaction
	if err := db.First(&stored, "id = ?", txn.ID).Error; err != nil {
		t.Fatalf("failed to reload transaction: %v", err)
	}
	testutil.AssertDecimal(t, "250.50", stored.Amount)
}

func TestAssertAppError(t *testing.T) {
	testutil.AssertAppError(t, errors.ErrPolicyNotFound, "POLICY_NOT_FOUND")
	testutil.AssertAppError(t, errors.Wrap(errors.ErrInternalServer, nil), "INTERNAL_ERROR")
	testutil.AssertAppErrorKind(t, errors.ErrDuplicatePolicyNumber, errors.KindConflict)
}

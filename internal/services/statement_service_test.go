package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	"brokerage/internal/logger"
	"brokerage/internal/models"
	"brokerage/internal/testutil"
)

func TestGetPolicyStatement(t *testing.T) {
	ctx := context.Background()

	t.Run("reconciles_cleared_entries_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewStatementService(db)
		client := testutil.CreateTestClient(t, db, testutil.NewUserID())
		carrier := testutil.CreateTestCarrier(t, db, nil)
		policy := testutil.CreateTestPolicy(t, db, client.ID, carrier.ID, testutil.WithPremium("5000", "10"))

		testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeClientPayment, "2000", models.TransactionStatusCleared, day(2024, 2, 1))
		testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeClientPayment, "1000", models.TransactionStatusCleared, day(2024, 1, 1))
		testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeClientPayment, "700", models.TransactionStatusBounced, day(2024, 3, 1))
		testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeClientPayment, "300", models.TransactionStatusPending, day(2024, 3, 2))
		testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeCarrierRemittance, "4500", models.TransactionStatusCleared, day(2024, 3, 5))
		testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeCommissionReceipt, "500", models.TransactionStatusCleared, day(2024, 4, 1))

		stmt, err := svc.GetPolicyStatement(ctx, policy.ID)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, "5000", stmt.Policy.Premium)
		testutil.AssertDecimal(t, "500", stmt.Policy.Commission)
		testutil.AssertDecimal(t, "3000", stmt.Summary.TotalPaidByClient)
		testutil.AssertDecimal(t, "2000", stmt.Summary.ClientBalance)
		testutil.AssertDecimal(t, "4500", stmt.Summary.TotalRemittedToCarrier)
		testutil.AssertDecimal(t, "500", stmt.Summary.CarrierBalance)
		testutil.AssertDecimal(t, "500", stmt.Summary.TotalCommissionReceived)

		if len(stmt.Transactions) != 6 {
			t.Fatalf("expected all 6 entries listed, got %d", len(stmt.Transactions))
		}
		for i := 1; i < len(stmt.Transactions); i++ {
			if stmt.Transactions[i].TransactionDate.Before(stmt.Transactions[i-1].TransactionDate) {
				t.Fatal("expected entries in ascending date order")
			}
		}
	})

	t.Run("status_change_is_reflected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewStatementService(db)
		ledger := NewLedgerService(db, nil)
		client := testutil.CreateTestClient(t, db, testutil.NewUserID())
		carrier := testutil.CreateTestCarrier(t, db, nil)
		policy := testutil.CreateTestPolicy(t, db, client.ID, carrier.ID, testutil.WithPremium("5000", "10"))
		cheque := testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeClientPayment, "1500", models.TransactionStatusPending, time.Now())

		stmt, err := svc.GetPolicyStatement(ctx, policy.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "5000", stmt.Summary.ClientBalance)

		_, err = ledger.UpdateTransactionStatus(ctx, cheque.ID, models.TransactionStatusCleared, nil)
		testutil.AssertNoError(t, err)

		stmt, err = svc.GetPolicyStatement(ctx, policy.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "3500", stmt.Summary.ClientBalance)
	})

	t.Run("rereading_is_stable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewStatementService(db)
		client := testutil.CreateTestClient(t, db, testutil.NewUserID())
		carrier := testutil.CreateTestCarrier(t, db, nil)
		policy := testutil.CreateTestPolicy(t, db, client.ID, carrier.ID)
		testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeClientPayment, "123.45", models.TransactionStatusCleared, day(2024, 5, 1))

		first, err := svc.GetPolicyStatement(ctx, policy.ID)
		testutil.AssertNoError(t, err)
		second, err := svc.GetPolicyStatement(ctx, policy.ID)
		testutil.AssertNoError(t, err)

		if !first.Summary.ClientBalance.Equal(second.Summary.ClientBalance) ||
			!first.Summary.TotalPaidByClient.Equal(second.Summary.TotalPaidByClient) ||
			len(first.Transactions) != len(second.Transactions) {
			t.Error("expected identical statements")
		}
	})

	t.Run("empty_ledger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewStatementService(db)
		client := testutil.CreateTestClient(t, db, testutil.NewUserID())
		carrier := testutil.CreateTestCarrier(t, db, nil)
		policy := testutil.CreateTestPolicy(t, db, client.ID, carrier.ID)

		stmt, err := svc.GetPolicyStatement(ctx, policy.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "10000", stmt.Summary.ClientBalance)
		if stmt.Transactions == nil || len(stmt.Transactions) != 0 {
			t.Errorf("expected empty transaction list, got %v", stmt.Transactions)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewStatementService(db)

		_, err := svc.GetPolicyStatement(ctx, testutil.NewUserID())
		testutil.AssertAppError(t, err, "POLICY_NOT_FOUND")
	})
}

func TestGetFinancialReport(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewStatementService(db)

	client := testutil.CreateTestClient(t, db, testutil.NewUserID())
	carrier := testutil.CreateTestCarrier(t, db, nil)
	policy := testutil.CreateTestPolicy(t, db, client.ID, carrier.ID)

	jan := testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeClientPayment, "100", models.TransactionStatusCleared, day(2024, 1, 1))
	feb := testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeClientPayment, "200", models.TransactionStatusBounced, day(2024, 2, 1))
	mar := testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeCarrierRemittance, "300", models.TransactionStatusCleared, day(2024, 3, 1))
	apr := testutil.CreateTestTransaction(t, db, policy, models.TransactionTypeCommissionReceipt, "400", models.TransactionStatusPending, day(2024, 4, 1))

	ids := func(txns []models.Transaction) []string {
		out := make([]string, len(txns))
		for i, tx := range txns {
			out[i] = tx.ID
		}
		return out
	}

	tests := []struct {
		name string
		rng  ReportRange
		want []string
	}{
		{"no_bounds", ReportRange{}, []string{apr.ID, mar.ID, feb.ID, jan.ID}},
		{"inclusive_bounds", ReportRange{From: timePtr(day(2024, 2, 1)), To: timePtr(day(2024, 3, 1))}, []string{mar.ID, feb.ID}},
		{"from_only", ReportRange{From: timePtr(day(2024, 3, 1))}, []string{apr.ID, mar.ID}},
		{"to_only", ReportRange{To: timePtr(day(2024, 1, 31))}, []string{jan.ID}},
		{"inverted_range_is_empty", ReportRange{From: timePtr(day(2024, 4, 1)), To: timePtr(day(2024, 1, 1))}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetFinancialReport(ctx, tt.rng)
			testutil.AssertNoError(t, err)
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("expected %v, got %v", tt.want, ids(got))
			}
		})
	}

	t.Run("entries_carry_client", func(t *testing.T) {
		got, err := svc.GetFinancialReport(ctx, ReportRange{})
		testutil.AssertNoError(t, err)
		for _, tx := range got {
			if tx.Client == nil || tx.Client.ID != client.ID {
				t.Fatalf("expected client %s on entry %s", client.ID, tx.ID)
			}
		}
	})
}

func TestAuditService(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	ctx := logger.ContextWithRequestID(context.Background(), "req-7")
	svc.Log(ctx, "user-1", "CREATE_POLICY", "policy", "policy-1", "10.0.0.1",
		map[string]interface{}{"policy_number": "MTR/1/2025"})
	svc.Log(context.Background(), "user-1", "DEACTIVATE_POLICY", "policy", "policy-1", "10.0.0.1", nil)

	var created, deactivated models.AuditLog
	testutil.AssertNoError(t, db.Where("action = ?", "CREATE_POLICY").First(&created).Error)
	testutil.AssertNoError(t, db.Where("action = ?", "DEACTIVATE_POLICY").First(&deactivated).Error)
	if created.ResourceID != "policy-1" || created.UserID != "user-1" {
		t.Errorf("unexpected audit entry: %+v", created)
	}
	if created.Changes != `{"policy_number":"MTR/1/2025"}` {
		t.Errorf("unexpected changes: %s", created.Changes)
	}
	if created.RequestID != "req-7" {
		t.Errorf("expected request id req-7, got %q", created.RequestID)
	}
	if deactivated.Changes != "" || deactivated.RequestID != "" {
		t.Errorf("expected empty changes and request id, got %+v", deactivated)
	}
}

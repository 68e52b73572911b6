package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "brokerage/internal/errors"
	"brokerage/internal/models"
	"brokerage/internal/pagination"
	"brokerage/internal/services"
)

const (
	testPolicyID  = "01930000-0000-7000-8000-0000000000a1"
	testClientID  = "01930000-0000-7000-8000-0000000000c1"
	testCarrierID = "01930000-0000-7000-8000-0000000000d1"
)

func setupPolicyRouter(handler *PolicyHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/policies", handler.CreatePolicy)
	auth.GET("/policies", handler.ListPolicies)
	auth.GET("/policies/:id", handler.GetPolicy)
	auth.PATCH("/policies/:id", handler.UpdatePolicy)
	auth.DELETE("/policies/:id", handler.DeactivatePolicy)
	auth.POST("/policies/:id/documents", handler.AttachDocument)
	// Route without user injection to exercise the unauthorized path.
	r.GET("/anon/policies", handler.ListPolicies)
	return r
}

const validCreateBody = `{
	"policy_number":"MTR/0001/2024",
	"client_id":"` + testClientID + `",
	"carrier_id":"` + testCarrierID + `",
	"category":"Motor",
	"start_date":"2024-06-01",
	"end_date":"2025-06-01",
	"premium_amount":"10000.00",
	"commission_rate":10
}`

func TestPolicyHandler_CreatePolicy(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.CreatePolicyInput
		audit := &mockAuditService{}
		svc := &mockPolicyService{
			createPolicyFn: func(_ context.Context, userID string, in services.CreatePolicyInput) (*models.Policy, error) {
				if userID != testUserID {
					t.Errorf("expected user %s, got %s", testUserID, userID)
				}
				got = in
				return &models.Policy{
					Base:             models.Base{ID: testPolicyID},
					PolicyNumber:     in.PolicyNumber,
					PremiumAmount:    *in.PremiumAmount,
					CommissionRate:   *in.CommissionRate,
					CommissionAmount: decimal.NewFromInt(1000),
					Status:           models.PolicyStatusActive,
				}, nil
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, audit))

		rec := doRequest(r, "POST", "/policies", validCreateBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		policy := parseJSON(t, rec)["policy"].(map[string]interface{})
		if policy["policy_number"] != "MTR/0001/2024" {
			t.Errorf("unexpected policy_number %v", policy["policy_number"])
		}
		if policy["commission_amount"] != "1000" {
			t.Errorf("expected commission_amount \"1000\", got %v", policy["commission_amount"])
		}
		if got.Category != models.PolicyCategoryMotor {
			t.Errorf("expected Motor, got %s", got.Category)
		}
		if !got.StartDate.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected start date %v", got.StartDate)
		}
		if !got.PremiumAmount.Equal(decimal.NewFromInt(10000)) {
			t.Errorf("unexpected premium %s", got.PremiumAmount)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "CREATE_POLICY" || audit.entries[0].resourceID != testPolicyID {
			t.Errorf("expected one CREATE_POLICY audit entry, got %+v", audit.entries)
		}
	})

	t.Run("omitted commission rate is passed as nil", func(t *testing.T) {
		svc := &mockPolicyService{
			createPolicyFn: func(_ context.Context, _ string, in services.CreatePolicyInput) (*models.Policy, error) {
				if in.CommissionRate != nil {
					t.Errorf("expected nil commission rate, got %s", in.CommissionRate)
				}
				return &models.Policy{Base: models.Base{ID: testPolicyID}}, nil
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, &mockAuditService{}))

		body := `{"policy_number":"P-1","client_id":"` + testClientID + `","carrier_id":"` + testCarrierID +
			`","category":"Health","start_date":"2024-06-01","end_date":"2025-06-01","premium_amount":500}`
		rec := doRequest(r, "POST", "/policies", body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 on unknown category", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		body := `{"policy_number":"P-1","client_id":"` + testClientID + `","carrier_id":"` + testCarrierID +
			`","category":"Pet","start_date":"2024-06-01","end_date":"2025-06-01","premium_amount":500}`
		rec := doRequest(r, "POST", "/policies", body)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on missing premium", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		body := `{"policy_number":"P-1","client_id":"` + testClientID + `","carrier_id":"` + testCarrierID +
			`","category":"Motor","start_date":"2024-06-01","end_date":"2025-06-01"}`
		rec := doRequest(r, "POST", "/policies", body)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on malformed date", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		body := `{"policy_number":"P-1","client_id":"` + testClientID + `","carrier_id":"` + testCarrierID +
			`","category":"Motor","start_date":"June 1st","end_date":"2025-06-01","premium_amount":500}`
		rec := doRequest(r, "POST", "/policies", body)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 409 on duplicate policy number", func(t *testing.T) {
		svc := &mockPolicyService{
			createPolicyFn: func(_ context.Context, _ string, _ services.CreatePolicyInput) (*models.Policy, error) {
				return nil, apperrors.ErrDuplicatePolicyNumber
			},
		}
		audit := &mockAuditService{}
		r := setupPolicyRouter(NewPolicyHandler(svc, audit))

		rec := doRequest(r, "POST", "/policies", validCreateBody)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_POLICY_NUMBER")
		if len(audit.entries) != 0 {
			t.Errorf("expected no audit entries on failure, got %d", len(audit.entries))
		}
	})

	t.Run("returns 404 when carrier is missing", func(t *testing.T) {
		svc := &mockPolicyService{
			createPolicyFn: func(_ context.Context, _ string, _ services.CreatePolicyInput) (*models.Policy, error) {
				return nil, apperrors.ErrCarrierNotFound
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/policies", validCreateBody)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CARRIER_NOT_FOUND")
	})
}

func TestPolicyHandler_ListPolicies(t *testing.T) {
	t.Run("maps query filters", func(t *testing.T) {
		var gotPage pagination.PageRequest
		var gotFilter services.PolicyFilter
		svc := &mockPolicyService{
			listPoliciesFn: func(_ context.Context, page pagination.PageRequest, filter services.PolicyFilter) (*pagination.PageResponse[models.Policy], error) {
				gotPage = page
				gotFilter = filter
				resp := pagination.NewPageResponse([]models.Policy{{PolicyNumber: "A"}}, 2, 5, 6)
				return &resp, nil
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/policies?page=2&page_size=5&status=Active&category=Marine&client_id="+testClientID+"&expiring_soon=true", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPage.Page != 2 || gotPage.PageSize != 5 {
			t.Errorf("unexpected page %+v", gotPage)
		}
		if gotFilter.Status == nil || *gotFilter.Status != models.PolicyStatusActive {
			t.Errorf("expected status filter Active, got %v", gotFilter.Status)
		}
		if gotFilter.Category == nil || *gotFilter.Category != models.PolicyCategoryMarine {
			t.Errorf("expected category filter Marine, got %v", gotFilter.Category)
		}
		if gotFilter.ClientID == nil || *gotFilter.ClientID != testClientID {
			t.Errorf("expected client filter, got %v", gotFilter.ClientID)
		}
		if gotFilter.CarrierID != nil {
			t.Errorf("expected no carrier filter, got %v", *gotFilter.CarrierID)
		}
		if !gotFilter.ExpiringSoon {
			t.Error("expected expiring_soon to be set")
		}
		result := parseJSON(t, rec)
		if result["total_items"].(float64) != 6 || result["total_pages"].(float64) != 2 {
			t.Errorf("unexpected page metadata %v", result)
		}
	})

	t.Run("returns 400 on unknown status", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/policies?status=Lapsed", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on oversized page", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/policies?page_size=500", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 401 without a user", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/anon/policies", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})
}

func TestPolicyHandler_GetPolicy(t *testing.T) {
	t.Run("returns 200 with documents", func(t *testing.T) {
		svc := &mockPolicyService{
			getPolicyFn: func(_ context.Context, id string) (*models.Policy, error) {
				return &models.Policy{
					Base:      models.Base{ID: id},
					Documents: []models.PolicyDocument{{DocType: "Schedule", Location: "s3://b/k"}},
				}, nil
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/policies/"+testPolicyID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		policy := parseJSON(t, rec)["policy"].(map[string]interface{})
		if docs := policy["documents"].([]interface{}); len(docs) != 1 {
			t.Errorf("expected 1 document, got %d", len(docs))
		}
	})

	t.Run("returns 400 on malformed id", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/policies/42", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		svc := &mockPolicyService{
			getPolicyFn: func(_ context.Context, _ string) (*models.Policy, error) {
				return nil, apperrors.ErrPolicyNotFound
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/policies/"+testPolicyID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "POLICY_NOT_FOUND")
	})
}

func TestPolicyHandler_UpdatePolicy(t *testing.T) {
	t.Run("passes only supplied fields", func(t *testing.T) {
		var got services.UpdatePolicyInput
		audit := &mockAuditService{}
		svc := &mockPolicyService{
			updatePolicyFn: func(_ context.Context, id string, in services.UpdatePolicyInput) (*models.Policy, error) {
				got = in
				return &models.Policy{Base: models.Base{ID: id}, Status: models.PolicyStatusExpired}, nil
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, audit))

		rec := doRequest(r, "PATCH", "/policies/"+testPolicyID, `{"end_date":"2024-01-01","premium_amount":"2000"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.EndDate == nil || !got.EndDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected end date %v", got.EndDate)
		}
		if got.StartDate != nil || got.Status != nil || got.CommissionRate != nil {
			t.Errorf("expected untouched fields to stay nil, got %+v", got)
		}
		if got.PremiumAmount == nil || !got.PremiumAmount.Equal(decimal.NewFromInt(2000)) {
			t.Errorf("unexpected premium %v", got.PremiumAmount)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "UPDATE_POLICY" {
			t.Errorf("expected UPDATE_POLICY audit entry, got %+v", audit.entries)
		}
	})

	t.Run("maps status and category", func(t *testing.T) {
		var got services.UpdatePolicyInput
		svc := &mockPolicyService{
			updatePolicyFn: func(_ context.Context, id string, in services.UpdatePolicyInput) (*models.Policy, error) {
				got = in
				return &models.Policy{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/policies/"+testPolicyID, `{"status":"Cancelled","category":"Bond"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Status == nil || *got.Status != models.PolicyStatusCancelled {
			t.Errorf("expected Cancelled, got %v", got.Status)
		}
		if got.Category == nil || *got.Category != models.PolicyCategoryBond {
			t.Errorf("expected Bond, got %v", got.Category)
		}
	})

	t.Run("returns 400 when policy number changes", func(t *testing.T) {
		svc := &mockPolicyService{
			updatePolicyFn: func(_ context.Context, _ string, in services.UpdatePolicyInput) (*models.Policy, error) {
				if in.PolicyNumber == nil || *in.PolicyNumber != "NEW-1" {
					t.Errorf("expected policy number to be forwarded, got %v", in.PolicyNumber)
				}
				return nil, apperrors.ErrPolicyNumberImmutable
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/policies/"+testPolicyID, `{"policy_number":"NEW-1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "POLICY_NUMBER_IMMUTABLE")
	})

	t.Run("returns 400 on invalid status", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/policies/"+testPolicyID, `{"status":"Lapsed"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on malformed start date", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/policies/"+testPolicyID, `{"start_date":"tomorrow"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestPolicyHandler_DeactivatePolicy(t *testing.T) {
	t.Run("returns 200 and audits", func(t *testing.T) {
		var called string
		audit := &mockAuditService{}
		svc := &mockPolicyService{
			deactivatePolicyFn: func(_ context.Context, id string) error {
				called = id
				return nil
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, audit))

		rec := doRequest(r, "DELETE", "/policies/"+testPolicyID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if called != testPolicyID {
			t.Errorf("expected service call for %s, got %q", testPolicyID, called)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "DEACTIVATE_POLICY" {
			t.Errorf("expected DEACTIVATE_POLICY audit entry, got %+v", audit.entries)
		}
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		svc := &mockPolicyService{
			deactivatePolicyFn: func(_ context.Context, _ string) error {
				return apperrors.ErrPolicyNotFound
			},
		}
		r := setupPolicyRouter(NewPolicyHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/policies/"+testPolicyID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestPolicyHandler_AttachDocument(t *testing.T) {
	t.Run("returns 201", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/policies/"+testPolicyID+"/documents",
			`{"doc_type":"Schedule","location":"s3://broker-docs/p.pdf"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		doc := parseJSON(t, rec)["document"].(map[string]interface{})
		if doc["location"] != "s3://broker-docs/p.pdf" {
			t.Errorf("unexpected location %v", doc["location"])
		}
	})

	t.Run("returns 400 without location", func(t *testing.T) {
		r := setupPolicyRouter(NewPolicyHandler(&mockPolicyService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/policies/"+testPolicyID+"/documents", `{"doc_type":"Schedule"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

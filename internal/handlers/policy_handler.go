package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"brokerage/internal/models"
	"brokerage/internal/pagination"
	"brokerage/internal/services"
)

// PolicyHandler handles policy lifecycle requests.
type PolicyHandler struct {
	policyService services.PolicyServicer
	auditService  services.AuditServicer
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(policyService services.PolicyServicer, auditService services.AuditServicer) *PolicyHandler {
	return &PolicyHandler{policyService: policyService, auditService: auditService}
}

// CreatePolicyRequest represents the request payload for creating a policy.
// Dates accept RFC3339 or YYYY-MM-DD; amounts accept JSON numbers or strings.
type CreatePolicyRequest struct {
	PolicyNumber   string           `json:"policy_number" binding:"required,max=100" example:"MTR/1234/2024"`
	ClientID       string           `json:"client_id" binding:"required,uuid"`
	CarrierID      string           `json:"carrier_id" binding:"required,uuid"`
	Category       string           `json:"category" binding:"required,policy_category" example:"Motor"`
	SubCategory    string           `json:"sub_category" binding:"max=200" example:"Comprehensive"`
	StartDate      string           `json:"start_date" binding:"required" example:"2024-06-01"`
	EndDate        string           `json:"end_date" binding:"required" example:"2025-06-01"`
	PremiumAmount  *decimal.Decimal `json:"premium_amount" binding:"required" swaggertype:"string" example:"10000.00"`
	CommissionRate *decimal.Decimal `json:"commission_rate" swaggertype:"string" example:"10"`
	Notes          string           `json:"notes" binding:"max=2000"`
}

// UpdatePolicyRequest represents a partial policy edit. Omitted fields are unchanged.
type UpdatePolicyRequest struct {
	PolicyNumber     *string          `json:"policy_number"`
	ClientID         *string          `json:"client_id" binding:"omitempty,uuid"`
	CarrierID        *string          `json:"carrier_id" binding:"omitempty,uuid"`
	Category         *string          `json:"category" binding:"omitempty,policy_category"`
	SubCategory      *string          `json:"sub_category" binding:"omitempty,max=200"`
	StartDate        *string          `json:"start_date"`
	EndDate          *string          `json:"end_date"`
	PremiumAmount    *decimal.Decimal `json:"premium_amount" swaggertype:"string"`
	CommissionRate   *decimal.Decimal `json:"commission_rate" swaggertype:"string"`
	CommissionAmount *decimal.Decimal `json:"commission_amount" swaggertype:"string"`
	Status           *string          `json:"status" binding:"omitempty,policy_status"`
	Notes            *string          `json:"notes" binding:"omitempty,max=2000"`
}

// ListPoliciesQuery holds the query parameters accepted by ListPolicies.
type ListPoliciesQuery struct {
	pagination.PageRequest
	Status       string `form:"status" binding:"omitempty,policy_status"`
	Category     string `form:"category" binding:"omitempty,policy_category"`
	ClientID     string `form:"client_id" binding:"omitempty,uuid"`
	CarrierID    string `form:"carrier_id" binding:"omitempty,uuid"`
	ExpiringSoon bool   `form:"expiring_soon"`
}

// AttachDocumentRequest is the metadata of a document already uploaded to storage.
type AttachDocumentRequest struct {
	DocType  string `json:"doc_type" binding:"required,max=100" example:"Policy Schedule"`
	Location string `json:"location" binding:"required,max=2048" example:"s3://broker-docs/policies/ps-1234.pdf"`
}

// CreatePolicy handles the creation of a new policy
// @Summary     Create a policy
// @Description Create a policy. Commission and status are derived; a missing commission rate falls back to the carrier's default for the category.
// @Tags        policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePolicyRequest true "Policy details"
// @Success     201 {object} models.Policy "Policy created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Client or carrier not found"
// @Failure     409 {object} ErrorResponse "Policy number already exists"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /policies [post]
func (h *PolicyHandler) CreatePolicy(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	startDate, err := parseFlexibleTime(req.StartDate)
	if err != nil {
		respondWithError(c, invalidInput(err))
		return
	}
	endDate, err := parseFlexibleTime(req.EndDate)
	if err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	policy, err := h.policyService.CreatePolicy(c.Request.Context(), userID, services.CreatePolicyInput{
		PolicyNumber:   req.PolicyNumber,
		ClientID:       req.ClientID,
		CarrierID:      req.CarrierID,
		Category:       models.PolicyCategory(req.Category),
		SubCategory:    req.SubCategory,
		StartDate:      startDate,
		EndDate:        endDate,
		PremiumAmount:  req.PremiumAmount,
		CommissionRate: req.CommissionRate,
		Notes:          req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_POLICY", "policy", policy.ID, c.ClientIP(),
		map[string]interface{}{
			"policy_number":  policy.PolicyNumber,
			"premium_amount": policy.PremiumAmount,
			"status":         policy.Status,
		})

	c.JSON(http.StatusCreated, gin.H{"policy": policy})
}

// ListPolicies handles the retrieval of active policies
// @Summary     List policies
// @Description Get a paginated list of active policies with optional filters. Deactivated policies are excluded.
// @Tags        policies
// @Produce     json
// @Security    BearerAuth
// @Param       page          query int    false "Page number (default 1)"
// @Param       page_size     query int    false "Items per page (default 20, max 100)"
// @Param       status        query string false "Filter by status (Pending, Active, Expired, Cancelled)"
// @Param       category      query string false "Filter by category"
// @Param       client_id     query string false "Filter by client ID"
// @Param       carrier_id    query string false "Filter by carrier ID"
// @Param       expiring_soon query bool   false "Only Active policies ending within the expiry window"
// @Success     200 {object} pagination.PageResponse[models.Policy] "Paginated policies"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /policies [get]
func (h *PolicyHandler) ListPolicies(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	var q ListPoliciesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	filter := services.PolicyFilter{ExpiringSoon: q.ExpiringSoon}
	if q.Status != "" {
		status := models.PolicyStatus(q.Status)
		filter.Status = &status
	}
	if q.Category != "" {
		category := models.PolicyCategory(q.Category)
		filter.Category = &category
	}
	if q.ClientID != "" {
		filter.ClientID = &q.ClientID
	}
	if q.CarrierID != "" {
		filter.CarrierID = &q.CarrierID
	}

	result, err := h.policyService.ListPolicies(c.Request.Context(), q.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPolicy handles the retrieval of a single policy
// @Summary     Get a policy
// @Description Get a policy with its client, carrier and documents. Deactivated policies are still returned.
// @Tags        policies
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Policy ID"
// @Success     200 {object} models.Policy "Policy"
// @Failure     400 {object} ErrorResponse "Invalid policy ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Policy not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /policies/{id} [get]
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	policyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	policy, err := h.policyService.GetPolicy(c.Request.Context(), policyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"policy": policy})
}

// UpdatePolicy handles a partial policy edit
// @Summary     Update a policy
// @Description Apply a partial edit. Commission is re-derived when premium or rate changes; status is re-derived when either date changes, overriding any status in the same edit. The policy number cannot be changed.
// @Tags        policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Policy ID"
// @Param       request body UpdatePolicyRequest true "Fields to change"
// @Success     200 {object} models.Policy "Updated policy"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Policy, client or carrier not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /policies/{id} [patch]
func (h *PolicyHandler) UpdatePolicy(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	policyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	in := services.UpdatePolicyInput{
		PolicyNumber:     req.PolicyNumber,
		ClientID:         req.ClientID,
		CarrierID:        req.CarrierID,
		SubCategory:      req.SubCategory,
		PremiumAmount:    req.PremiumAmount,
		CommissionRate:   req.CommissionRate,
		CommissionAmount: req.CommissionAmount,
		Notes:            req.Notes,
	}
	if req.Category != nil {
		category := models.PolicyCategory(*req.Category)
		in.Category = &category
	}
	if req.Status != nil {
		status := models.PolicyStatus(*req.Status)
		in.Status = &status
	}
	if in.StartDate, err = optionalTime(req.StartDate); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}
	if in.EndDate, err = optionalTime(req.EndDate); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	policy, err := h.policyService.UpdatePolicy(c.Request.Context(), policyID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_POLICY", "policy", policyID, c.ClientIP(),
		map[string]interface{}{
			"status":            policy.Status,
			"commission_amount": policy.CommissionAmount,
		})

	c.JSON(http.StatusOK, gin.H{"policy": policy})
}

// DeactivatePolicy handles policy deactivation
// @Summary     Deactivate a policy
// @Description Clear the policy's active flag. The record and its ledger stay readable; it disappears from listings.
// @Tags        policies
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Policy ID"
// @Success     200 {object} map[string]string "Policy deactivated"
// @Failure     400 {object} ErrorResponse "Invalid policy ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Policy not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /policies/{id} [delete]
func (h *PolicyHandler) DeactivatePolicy(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	policyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.policyService.DeactivatePolicy(c.Request.Context(), policyID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DEACTIVATE_POLICY", "policy", policyID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Policy deactivated"})
}

// AttachDocument handles attaching document metadata to a policy
// @Summary     Attach a document
// @Description Record a document stored by the upload service against a policy
// @Tags        policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Policy ID"
// @Param       request body AttachDocumentRequest true "Document metadata"
// @Success     201 {object} models.PolicyDocument "Document attached"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Policy not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /policies/{id}/documents [post]
func (h *PolicyHandler) AttachDocument(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	policyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	doc, err := h.policyService.AttachDocument(c.Request.Context(), policyID, services.DocumentInput{
		DocType:  req.DocType,
		Location: req.Location,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "ATTACH_POLICY_DOCUMENT", "policy", policyID, c.ClientIP(),
		map[string]interface{}{"document_id": doc.ID, "doc_type": doc.DocType})

	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

func optionalTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseFlexibleTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

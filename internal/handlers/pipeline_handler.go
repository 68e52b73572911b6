package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"brokerage/internal/services"
)

// PipelineHandler serves machine-to-machine maintenance endpoints.
type PipelineHandler struct {
	policyService services.PolicyServicer
	now           func() time.Time
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(policyService services.PolicyServicer) *PipelineHandler {
	return &PipelineHandler{policyService: policyService, now: time.Now}
}

// SetClock replaces the clock used when a sweep has no explicit as_of.
func (h *PipelineHandler) SetClock(now func() time.Time) {
	h.now = now
}

// RefreshStatusesRequest optionally pins the sweep to a reference time.
type RefreshStatusesRequest struct {
	AsOf string `json:"as_of" example:"2025-01-01T00:00:00Z"`
}

// RefreshPolicyStatuses re-derives date-driven policy statuses.
// @Summary     Refresh policy statuses
// @Description Move Pending and Active policies to the status their dates imply as of now (or as_of). Cancelled and Expired policies are not touched.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string                 true  "Pipeline API key"
// @Param       request   body     RefreshStatusesRequest false "Sweep parameters"
// @Success     200       {object} services.SweepResult   "Sweep result"
// @Failure     400       {object} ErrorResponse          "Invalid input"
// @Failure     401       {object} ErrorResponse          "Invalid API key"
// @Failure     503       {object} ErrorResponse          "Pipeline not configured"
// @Router      /pipeline/policies/refresh-status [post]
func (h *PipelineHandler) RefreshPolicyStatuses(c *gin.Context) {
	var req RefreshStatusesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, invalidInput(err))
			return
		}
	}

	asOf := h.now()
	if req.AsOf != "" {
		t, err := parseFlexibleTime(req.AsOf)
		if err != nil {
			respondWithError(c, invalidInput(err))
			return
		}
		asOf = t
	}

	result, err := h.policyService.RefreshStatuses(c.Request.Context(), asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

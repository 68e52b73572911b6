package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "brokerage/internal/errors"
	"brokerage/internal/logger"
)

const (
	// PipelineKeyHeader carries the shared secret used by the status sweeper.
	PipelineKeyHeader = "X-API-Key"
	// CallerKey names who authenticated the request.
	CallerKey = "caller"
	// PipelineCaller is the CallerKey value for machine callers.
	PipelineCaller = "pipeline"
)

var errPipelineNotConfigured = &apperrors.AppError{
	Code:       "PIPELINE_NOT_CONFIGURED",
	Kind:       apperrors.KindInternal,
	Message:    "Pipeline endpoints are not configured",
	StatusCode: http.StatusServiceUnavailable,
}

// PipelineAuthMiddleware guards the maintenance endpoints. An empty apiKey
// disables them outright rather than accepting an empty header.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	expected := []byte(apiKey)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			abortWithError(c, errPipelineNotConfigured)
			return
		}

		presented := c.GetHeader(PipelineKeyHeader)
		if subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
			logger.FromContext(c.Request.Context()).Warnw("Rejected pipeline request",
				"path", c.FullPath(),
				"client_ip", c.ClientIP(),
				"key_present", presented != "",
			)
			abortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}

		c.Set(CallerKey, PipelineCaller)
		c.Next()
	}
}

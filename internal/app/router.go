// Package app wires services, handlers, and middleware into the HTTP router.
package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"brokerage/internal/config"
	"brokerage/internal/handlers"
	"brokerage/internal/idempotency"
	"brokerage/internal/metrics"
	"brokerage/internal/middleware"
	"brokerage/internal/services"
)

// Deps are the long-lived resources the router is built from.
// Idempotency may be nil, which disables replay protection.
type Deps struct {
	DB          *gorm.DB
	Config      *config.Config
	Idempotency *idempotency.Store
	// Now overrides the pipeline clock; nil means time.Now.
	Now func() time.Time
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config

	policyService := services.NewPolicyService(deps.DB, cfg.ExpiringSoonWindowDays)
	ledgerService := services.NewLedgerService(deps.DB, deps.Idempotency)
	statementService := services.NewStatementService(deps.DB)
	auditService := services.NewAuditService(deps.DB)

	policyHandler := handlers.NewPolicyHandler(policyService, auditService)
	financeHandler := handlers.NewFinanceHandler(ledgerService, statementService, auditService)
	pipelineHandler := handlers.NewPipelineHandler(policyService)
	if deps.Now != nil {
		pipelineHandler.SetClock(deps.Now)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(metrics.HTTPMiddleware())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Idempotent-Replayed, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	policies := protected.Group("/policies")
	policies.POST("", policyHandler.CreatePolicy)
	policies.GET("", policyHandler.ListPolicies)
	policies.GET("/:id", policyHandler.GetPolicy)
	policies.PATCH("/:id", policyHandler.UpdatePolicy)
	policies.DELETE("/:id", policyHandler.DeactivatePolicy)
	policies.POST("/:id/documents", policyHandler.AttachDocument)

	finance := protected.Group("/finance")
	finance.POST("/transactions", financeHandler.RecordTransaction)
	finance.GET("/transactions/:id", financeHandler.GetTransaction)
	finance.PATCH("/transactions/:id/status", financeHandler.UpdateTransactionStatus)
	finance.GET("/policy/:policyId", financeHandler.GetPolicyStatement)
	finance.GET("/policy/:policyId/transactions", financeHandler.ListPolicyTransactions)
	finance.GET("/report", financeHandler.GetFinancialReport)

	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(cfg.PipelineAPIKey))
	pipeline.POST("/policies/refresh-status", pipelineHandler.RefreshPolicyStatuses)

	return router
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"brokerage/internal/app"
	"brokerage/internal/config"
	"brokerage/internal/database"
	"brokerage/internal/idempotency"
	"brokerage/internal/logger"
	"brokerage/internal/validator"

	_ "brokerage/internal/docs" // Import swagger docs
)

// @title           Brokerage API
// @version         1.0
// @description     Policy lifecycle and financial ledger service for an insurance brokerage.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := idempotency.NewClient(startupCtx, appConfig.RedisURL)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if redisClient == nil {
		log.Warn("REDIS_URL not set; idempotent ledger replay is disabled")
	} else {
		defer func() { _ = redisClient.Close() }()
	}
	if appConfig.PipelineAPIKey == "" {
		log.Warn("PIPELINE_API_KEY not set; pipeline endpoints will return 503")
	}

	validator.Register()

	router := app.NewRouter(app.Deps{
		DB:          dbManager.DB(),
		Config:      appConfig,
		Idempotency: idempotency.NewStore(redisClient, appConfig.IdempotencyTTL),
	})

	srv := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting brokerage API on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Infow("shutting down server", "signal", sig.String())
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

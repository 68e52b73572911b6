// Command sweeper triggers the policy status refresh on a running API.
// It is meant to be run from cron once a day.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"brokerage/internal/config"
	"brokerage/internal/logger"
	"brokerage/internal/pipelineclient"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Errorw("sweeper run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	asOfFlag := flag.String("as-of", "", "sweep as of this RFC3339 time instead of now")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.PipelineAPIKey == "" {
		return fmt.Errorf("PIPELINE_API_KEY is required")
	}

	var asOf time.Time
	if *asOfFlag != "" {
		asOf, err = time.Parse(time.RFC3339, *asOfFlag)
		if err != nil {
			return fmt.Errorf("invalid -as-of value: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	client := pipelineclient.New(cfg.SweeperAPIURL, cfg.PipelineAPIKey, &http.Client{Timeout: cfg.RequestTimeout})

	start := time.Now()
	result, err := client.RefreshPolicyStatuses(ctx, asOf)
	if err != nil {
		return err
	}

	logger.Get().Infow("sweeper run completed",
		"examined", result.Examined,
		"updated", result.Updated,
		"by_status", result.ByStatus,
		"duration", time.Since(start).String(),
	)
	return nil
}

package smoketest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/cogdiag/internal/domain/scoring"
	"github.com/okian/cogdiag/pkg/logger"
)

// Run executes the complete smoke run and returns its statistics. It fails
// with ErrVerification when any answer disagrees with the local engine.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := validate(config); err != nil {
		return nil, err
	}
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting cogdiag smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sheets", config.Sheets),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.String("format", config.Format),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, err
	}

	// Step 2: Compare the served catalog
	if err := checkBands(ctx, config); err != nil {
		return stats, fmt.Errorf("band check failed: %w", err)
	}

	// Step 3: Generate sheets and their expected results
	engine := scoring.NewEngine(config.Catalog, scoring.WithDenominator(config.Denominator))
	sheets, err := generateSheets(ctx, config, engine, stats)
	if err != nil {
		return stats, fmt.Errorf("sheet generation failed: %w", err)
	}

	// Step 4: Submit sheets concurrently
	submitSheets(ctx, config, sheets, stats)

	// Step 5: Download one report per band
	if err := downloadReports(ctx, config, stats); err != nil {
		return stats, fmt.Errorf("report download failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Mismatches > 0 || stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d mismatches, %d failed requests",
			ErrVerification, stats.Mismatches, stats.Failed)
	}

	logger.Get().Info(ctx, "smoke run completed successfully")
	return stats, nil
}

func validate(config *Config) error {
	switch {
	case config == nil:
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	case config.BaseURL == "":
		return fmt.Errorf("%w: base URL must not be empty", ErrInvalidConfig)
	case config.Sheets < 0:
		return fmt.Errorf("%w: sheets must not be negative", ErrInvalidConfig)
	case config.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case config.InvalidRate < 0:
		return fmt.Errorf("%w: invalid rate must not be negative", ErrInvalidConfig)
	case config.Catalog == nil:
		return fmt.Errorf("%w: catalog is required", ErrInvalidConfig)
	}
	_, err := reportExtension(config.Format)
	return err
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var matchRate, sheetsPerSecond float64

	if stats.SheetsSubmitted > 0 {
		matchRate = float64(stats.SheetsMatched+stats.SheetsRejected) / float64(stats.SheetsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		sheetsPerSecond = float64(stats.SheetsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("sheetsGenerated", stats.SheetsGenerated),
		logger.Int("sheetsSubmitted", stats.SheetsSubmitted),
		logger.Int("sheetsMatched", stats.SheetsMatched),
		logger.Int("sheetsRejected", stats.SheetsRejected),
		logger.Int("mismatches", stats.Mismatches),
		logger.Int("failed", stats.Failed),
		logger.Int("reportsFetched", stats.ReportsFetched),
		logger.Any("tiers", stats.TierCounts),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matchRate", matchRate),
		logger.Float64("sheetsPerSecond", sheetsPerSecond))
}

// Command smoke drives a running screening service with random score sheets
// and checks every answer against the local scoring engine.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/scoring"
	"github.com/okian/cogdiag/internal/smoketest"
	"github.com/okian/cogdiag/pkg/logger"
)

// Default configuration constants.
const (
	defaultSheets      = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultInvalidRate = 10
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	fs := flag.NewFlagSet("smoke", flag.ContinueOnError)
	var (
		baseURL     = fs.String("url", "http://localhost:9080", "Base URL of the service")
		sheets      = fs.Int("sheets", defaultSheets, "Number of score sheets to generate and submit")
		workers     = fs.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = fs.Duration("timeout", defaultTimeout, "HTTP request timeout")
		format      = fs.String("format", "pdf", "Report format to download per band (text or pdf)")
		outputDir   = fs.String("output", "", "Directory for downloaded reports (default: not saved)")
		invalidRate = fs.Int("invalid-every", defaultInvalidRate, "Make every Nth sheet out of range (0 disables)")
		catalogPath = fs.String("catalog", "", "YAML catalog the service runs with (default: built-in)")
		denominator = fs.String("denominator", "all", "Denominator the service uses (all or scored)")
		verbose     = fs.Bool("verbose", false, "Log every mismatch")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("COGDIAG_SMOKE")); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		_, _ = os.Stderr.WriteString("smoke: " + err.Error() + "\n")
		os.Exit(2)
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat := catalog.Default()
	if *catalogPath != "" {
		c, err := catalog.LoadFile(ctx, *catalogPath)
		if err != nil {
			logger.Get().Error(ctx, "failed to load catalog", logger.Error(err))
			stop()
			os.Exit(1)
		}
		cat = c
	}

	d := scoring.DenominatorAllTests
	if *denominator == "scored" {
		d = scoring.DenominatorScoredTests
	}

	config := &smoketest.Config{
		BaseURL:     *baseURL,
		Sheets:      *sheets,
		Workers:     *workers,
		Timeout:     *timeout,
		Format:      *format,
		OutputDir:   *outputDir,
		InvalidRate: *invalidRate,
		Catalog:     cat,
		Denominator: d,
		Verbose:     *verbose,
	}

	if _, err := smoketest.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "smoke run failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

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

	"github.com/okian/cogdiag/internal/adapters/http/api"
	"github.com/okian/cogdiag/internal/adapters/report"
	app "github.com/okian/cogdiag/internal/app"
	"github.com/okian/cogdiag/internal/config"
	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/scoring"
	"github.com/okian/cogdiag/pkg/logger"
	"github.com/okian/cogdiag/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	interval := metrics.StartSystemCollector(ctx, cfg.MetricsRefreshInterval)
	log.Debug(ctx, "system metrics collector started", logger.Duration("interval", interval))

	apiServer := api.NewServer(svc, svc,
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithLogger(log.Named("http")),
	)
	srv := newHTTPServer(cfg.Addr, apiServer.Router(ctx))

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildService turns configuration into service options.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	opts := []app.Option{app.WithLogger(log.Named("service"))}

	if cfg.CatalogPath != "" {
		c, err := catalog.LoadFile(ctx, cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		log.Info(ctx, "loaded catalog", logger.String("path", cfg.CatalogPath))
		opts = append(opts, app.WithCatalog(c))
	}

	if cfg.PDFFontPath != "" {
		pdf, err := report.NewPDF(report.WithFontPath(cfg.PDFFontPath))
		if err != nil {
			return nil, fmt.Errorf("pdf renderer: %w", err)
		}
		opts = append(opts, app.WithRenderer(pdf))
	}

	if cfg.Denominator == config.DenominatorScored {
		opts = append(opts, app.WithDenominator(scoring.DenominatorScoredTests))
	}

	return app.New(opts...), nil
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Package service wires the catalog, scoring engine and report renderers
// into the operations exposed by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cogdiag/internal/adapters/report"
	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/model"
	"github.com/okian/cogdiag/internal/domain/scoring"
	"github.com/okian/cogdiag/pkg/logger"
	"github.com/okian/cogdiag/pkg/metrics"
)

// unknownBandLabel is the metric label recorded for bands outside the catalog.
const unknownBandLabel = "unknown"

// Request is one score sheet submitted for assessment.
type Request struct {
	AgeBand model.AgeBand
	Scores  []float64
	// Clamp pulls out-of-range values to the nearest bound and pads or
	// truncates the sheet to the battery size instead of rejecting it.
	Clamp bool
}

// Document is a rendered report ready for download.
type Document struct {
	Format      string
	ContentType string
	FileName    string
	Body        []byte
}

// BandSummary describes one age band in listings.
type BandSummary struct {
	AgeBand model.AgeBand `json:"age_band"`
	Tests   int           `json:"tests"`
}

// Service implements the API dependencies of the screening system.
type Service struct {
	mu sync.RWMutex

	catalog     *catalog.Catalog
	engine      *scoring.Engine
	renderers   *report.Registry
	denominator scoring.Denominator

	now   func() time.Time
	newID func() string

	started   bool
	startedAt time.Time

	assessed atomic.Int64
	rejected atomic.Int64
	reports  atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCatalog replaces the built-in catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithRenderer registers a report renderer, replacing one of the same format.
func WithRenderer(r report.Renderer) Option {
	return func(s *Service) {
		s.renderers.Register(r)
	}
}

// WithDenominator selects the averaging rule of the scoring engine.
func WithDenominator(d scoring.Denominator) Option {
	return func(s *Service) {
		s.denominator = d
	}
}

// WithClock sets the time source used for assessment timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the function that issues assessment ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New constructs a Service over the built-in catalog with text and PDF
// renderers. The global logger must be initialized unless WithLogger is used.
func New(opts ...Option) *Service {
	s := &Service{
		catalog:     catalog.Default(),
		renderers:   report.NewRegistry(report.NewText()),
		denominator: scoring.DenominatorAllTests,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	if pdf, err := report.NewPDF(); err == nil {
		s.renderers.Register(pdf)
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.engine = scoring.NewEngine(s.catalog, scoring.WithDenominator(s.denominator))
	return s
}

// Start publishes catalog gauges and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	bands := s.catalog.Bands()
	metrics.UpdateCatalogBands(len(bands))
	for _, b := range bands {
		tests, _ := s.catalog.Tests(b)
		metrics.UpdateCatalogTests(b.String(), len(tests))
	}

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "screening service started",
		logger.Int("bands", len(bands)),
		logger.Any("formats", s.renderers.Formats()),
	)
	return nil
}

// Stop marks the service as stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "screening service stopped",
		logger.Int("assessments", int(s.assessed.Load())),
	)
}

// Assess scores a sheet and attaches the band's recommendation.
// Invalid sheets fail with model.ErrInvalidInput.
func (s *Service) Assess(ctx context.Context, req Request) (model.Assessment, error) {
	begin := time.Now()
	band := req.AgeBand.String()

	scores := req.Scores
	if req.Clamp {
		clamped, err := s.catalog.Clamp(req.AgeBand, scores)
		if err != nil {
			return model.Assessment{}, s.reject(ctx, req, err)
		}
		scores = clamped
	}

	res, err := s.engine.Evaluate(req.AgeBand, scores)
	if err != nil {
		return model.Assessment{}, s.reject(ctx, req, err)
	}
	metrics.RecordScoringLatency(float64(time.Since(begin).Microseconds()) / 1000)

	rec, err := s.catalog.Recommendation(req.AgeBand, res.Tier)
	if err != nil {
		metrics.RecordErrorByComponent("catalog", "recommendation")
		return model.Assessment{}, err
	}

	a := model.Assessment{
		ID:             s.newID(),
		AgeBand:        req.AgeBand,
		Tier:           res.Tier,
		TierLabel:      res.Tier.Label(),
		AveragePercent: res.AveragePercent,
		Recommendation: rec,
		Breakdown:      res.Breakdown(),
		CreatedAt:      s.now().UTC(),
	}

	s.assessed.Add(1)
	metrics.RecordAssessment(band, string(res.Tier), res.AveragePercent)
	s.logger.Debug(ctx, "assessment scored",
		logger.String("id", a.ID),
		logger.String("age_band", band),
		logger.String("tier", string(a.Tier)),
		logger.Float64("average_percent", a.AveragePercent),
		logger.Bool("clamped", req.Clamp),
	)
	return a, nil
}

func (s *Service) reject(ctx context.Context, req Request, err error) error {
	if errors.Is(err, model.ErrInvalidInput) {
		s.rejected.Add(1)
		metrics.RecordInvalidInput(s.bandLabel(req.AgeBand))
	}
	s.logger.Warn(ctx, "assessment rejected",
		logger.String("age_band", req.AgeBand.String()),
		logger.Int("scores", len(req.Scores)),
		logger.Error(err),
	)
	return err
}

// bandLabel returns the metric label for band. Bands outside the catalog
// share one label so request bodies cannot mint new series.
func (s *Service) bandLabel(band model.AgeBand) string {
	if _, err := s.catalog.Tests(band); err != nil {
		return unknownBandLabel
	}
	return band.String()
}

// Report renders an assessment in the given format.
func (s *Service) Report(ctx context.Context, a model.Assessment, format string) (Document, error) {
	r, err := s.renderers.Get(format)
	if err != nil {
		return Document{}, err
	}

	body, err := r.Render(ctx, a)
	if err != nil {
		metrics.RecordReportError(format)
		metrics.RecordErrorByComponent("report", "render")
		s.logger.Error(ctx, "report render failed",
			logger.String("id", a.ID),
			logger.String("format", format),
			logger.Error(err),
		)
		return Document{}, err
	}

	s.reports.Add(1)
	metrics.RecordReport(format)
	return Document{
		Format:      r.Format(),
		ContentType: r.ContentType(),
		FileName:    report.FileName(a.AgeBand, r.Extension()),
		Body:        body,
	}, nil
}

// Export assesses a sheet and renders it in one step. The format is checked
// before scoring so an unknown format leaves no assessment behind.
func (s *Service) Export(ctx context.Context, req Request, format string) (model.Assessment, Document, error) {
	if _, err := s.renderers.Get(format); err != nil {
		return model.Assessment{}, Document{}, err
	}
	a, err := s.Assess(ctx, req)
	if err != nil {
		return model.Assessment{}, Document{}, err
	}
	doc, err := s.Report(ctx, a, format)
	if err != nil {
		return model.Assessment{}, Document{}, err
	}
	return a, doc, nil
}

// Bands lists the catalog's age bands with their battery sizes.
func (s *Service) Bands(_ context.Context) []BandSummary {
	bands := s.catalog.Bands()
	out := make([]BandSummary, 0, len(bands))
	for _, b := range bands {
		tests, _ := s.catalog.Tests(b)
		out = append(out, BandSummary{AgeBand: b, Tests: len(tests)})
	}
	return out
}

// Band returns the tests and recommendations of one age band.
func (s *Service) Band(_ context.Context, band model.AgeBand) (catalog.Band, error) {
	return s.catalog.Band(band)
}

// Formats lists the report formats that can be requested.
func (s *Service) Formats() []string {
	return s.renderers.Formats()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"bands":       len(s.catalog.Bands()),
		"formats":     s.renderers.Formats(),
		"assessments": s.assessed.Load(),
		"rejected":    s.rejected.Load(),
		"reports":     s.reports.Load(),
	}
	if s.started {
		stats["uptimeSeconds"] = s.now().Sub(s.startedAt).Seconds()
	}
	return stats
}

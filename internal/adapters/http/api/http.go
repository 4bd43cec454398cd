// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/cogdiag/internal/adapters/http/swagger"
	"github.com/okian/cogdiag/internal/adapters/report"
	service "github.com/okian/cogdiag/internal/app"
	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/model"
	"github.com/okian/cogdiag/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Assess(ctx context.Context, req service.Request) (model.Assessment, error)
	Export(ctx context.Context, req service.Request, format string) (model.Assessment, service.Document, error)
	Bands(ctx context.Context) []service.BandSummary
	Band(ctx context.Context, band model.AgeBand) (catalog.Band, error)
}

const defaultMaxBodyBytes = 1 << 20

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	bandsHandler      *BandsHandler
	assessmentHandler *AssessmentHandler

	allowedOrigins []string
	maxBodyBytes   int64
	logger         logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins allowed to call the API.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithMaxBodyBytes caps the size of POST bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		allowedOrigins: []string{"*"},
		maxBodyBytes:   defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("http")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.bandsHandler = NewBandsHandler(deps)
	s.assessmentHandler = NewAssessmentHandler(deps, s.maxBodyBytes)
	return s
}

// Router builds the chi router with every route attached.
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, LoggingMiddleware(s.logger), chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", headerAssessmentID, headerAssessmentTier},
		MaxAge:         300,
	}))

	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Method(http.MethodGet, "/metrics", MetricsHandler())
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/bands", MetricsMiddleware(s.bandsHandler.HandleListBands, "bands"))
		r.Get("/bands/{band}", MetricsMiddleware(s.bandsHandler.HandleGetBand, "band"))
		r.Post("/assessments", MetricsMiddleware(s.assessmentHandler.HandleAssess, "assessments"))
		r.Post("/reports", MetricsMiddleware(s.assessmentHandler.HandleReport, "reports"))
	})

	swagger.Register(ctx, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps error kinds onto status codes and error codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, report.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "unsupported_format", err)
	case errors.Is(err, ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
	}
}

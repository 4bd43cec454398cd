package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/cogdiag/internal/app"
	"github.com/okian/cogdiag/internal/domain/model"
)

// Response headers describing the assessment behind a downloaded report.
const (
	headerAssessmentID   = "X-Assessment-Id"
	headerAssessmentTier = "X-Assessment-Tier"

	defaultReportFormat = "pdf"
)

// AssessmentDependencies defines the scoring operations of the handler.
type AssessmentDependencies interface {
	Assess(ctx context.Context, req service.Request) (model.Assessment, error)
	Export(ctx context.Context, req service.Request, format string) (model.Assessment, service.Document, error)
}

// AssessmentHandler scores sheets and renders reports.
type AssessmentHandler struct {
	deps         AssessmentDependencies
	maxBodyBytes int64
}

// NewAssessmentHandler creates a handler reading at most maxBodyBytes per request.
func NewAssessmentHandler(deps AssessmentDependencies, maxBodyBytes int64) *AssessmentHandler {
	return &AssessmentHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// assessmentRequest mirrors the OpenAPI schema for POST /v1/assessments and /v1/reports.
type assessmentRequest struct {
	AgeBand *int      `json:"age_band"`
	Scores  []float64 `json:"scores"`
	Clamp   bool      `json:"clamp"`
}

func (a assessmentRequest) validate() error {
	switch {
	case a.AgeBand == nil:
		return errors.New("missing age_band")
	case a.Scores == nil:
		return errors.New("missing scores")
	}
	return nil
}

func (a assessmentRequest) toRequest() service.Request {
	return service.Request{AgeBand: model.AgeBand(*a.AgeBand), Scores: a.Scores, Clamp: a.Clamp}
}

func (h *AssessmentHandler) decode(w http.ResponseWriter, r *http.Request, op string) (service.Request, error) {
	var req assessmentRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.Request{}, WrapKind(op, ErrBodyTooLarge, err)
		}
		return service.Request{}, WrapKind(op, ErrBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return service.Request{}, WrapKind(op, ErrBadRequest, err)
	}
	return req.toRequest(), nil
}

// HandleAssess handles POST /v1/assessments requests.
func (h *AssessmentHandler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	const op = "api.assess"
	req, err := h.decode(w, r, op)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	a, err := h.deps.Assess(r.Context(), req)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleReport handles POST /v1/reports?format=pdf|text requests and
// streams the rendered document as an attachment.
func (h *AssessmentHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.report"
	format := r.URL.Query().Get("format")
	if format == "" {
		format = defaultReportFormat
	}
	req, err := h.decode(w, r, op)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	a, doc, err := h.deps.Export(r.Context(), req, format)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.Header().Set(headerAssessmentID, a.ID)
	w.Header().Set(headerAssessmentTier, string(a.Tier))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

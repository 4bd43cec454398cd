package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/cogdiag/internal/app"
	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/model"
)

// BandsDependencies defines the catalog views the bands handler needs.
type BandsDependencies interface {
	Bands(ctx context.Context) []service.BandSummary
	Band(ctx context.Context, band model.AgeBand) (catalog.Band, error)
}

// BandsHandler serves the test catalog.
type BandsHandler struct {
	deps BandsDependencies
}

// NewBandsHandler creates a new bands handler.
func NewBandsHandler(deps BandsDependencies) *BandsHandler {
	return &BandsHandler{deps: deps}
}

// HandleListBands handles GET /v1/bands requests.
func (h *BandsHandler) HandleListBands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Bands(r.Context()))
}

// HandleGetBand handles GET /v1/bands/{band} requests.
func (h *BandsHandler) HandleGetBand(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_band"
	band, err := model.ParseAgeBand(chi.URLParam(r, "band"))
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	b, err := h.deps.Band(r.Context(), band)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Package report renders assessments into downloadable documents.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/okian/cogdiag/internal/domain/model"
)

// Errors returned by renderers.
var (
	ErrUnsupportedFormat = errors.New("unsupported report format")
	ErrFontLoad          = errors.New("failed to load report font")
	ErrRender            = errors.New("failed to render report")
)

// Renderer turns an assessment into a document of one format.
type Renderer interface {
	Format() string
	Extension() string
	ContentType() string
	Render(ctx context.Context, a model.Assessment) ([]byte, error)
}

// Registry looks renderers up by format name.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry builds a registry; later renderers replace earlier ones of the same format.
func NewRegistry(rs ...Renderer) *Registry {
	r := &Registry{renderers: make(map[string]Renderer, len(rs))}
	for _, rr := range rs {
		r.Register(rr)
	}
	return r
}

// Register adds or replaces a renderer.
func (r *Registry) Register(rr Renderer) {
	if rr == nil {
		return
	}
	r.renderers[rr.Format()] = rr
}

// Get returns the renderer for format.
func (r *Registry) Get(format string) (Renderer, error) {
	rr, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return rr, nil
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.renderers))
	for f := range r.renderers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// FileName is the download name of a report for band with the given extension.
func FileName(band model.AgeBand, ext string) string {
	return fmt.Sprintf("report_age_%d.%s", band, ext)
}

// Title is the heading printed at the top of every report.
const Title = "Отчёт по когнитивной диагностике"

// layout is the format-independent content of a report.
type layout struct {
	title          string
	header         []string
	recommendation string
	rows           []string
}

func newLayout(a model.Assessment) layout {
	l := layout{
		title: Title,
		header: []string{
			fmt.Sprintf("Возраст: %d лет", a.AgeBand),
			fmt.Sprintf("Итог: %s", a.Tier.Label()),
			fmt.Sprintf("Средний процент: %.1f%%", a.AveragePercent),
		},
		recommendation: "Рекомендации: " + a.Recommendation,
		rows:           make([]string, len(a.Breakdown)),
	}
	for i, row := range a.Breakdown {
		l.rows[i] = fmt.Sprintf("%s: %s / %s", row.Test, formatNumber(row.Value), formatNumber(row.Max))
	}
	return l
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

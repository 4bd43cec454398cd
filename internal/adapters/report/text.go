package report

import (
	"context"
	"strings"

	"github.com/okian/cogdiag/internal/domain/model"
)

// Text renders plain UTF-8 reports.
type Text struct{}

// NewText creates a plain text renderer.
func NewText() *Text { return &Text{} }

func (*Text) Format() string      { return "text" }
func (*Text) Extension() string   { return "txt" }
func (*Text) ContentType() string { return "text/plain; charset=utf-8" }

// Render writes the title, header lines, recommendation and one line per test.
func (*Text) Render(ctx context.Context, a model.Assessment) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := newLayout(a)

	var b strings.Builder
	b.WriteString(l.title)
	b.WriteString("\n\n")
	for _, h := range l.header {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	b.WriteString(l.recommendation)
	b.WriteString("\n\n")
	for _, r := range l.rows {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/okian/cogdiag/internal/domain/model"
)

const (
	fontFamily   = "report"
	coreFont     = "Helvetica"
	titleSize    = 16.0
	bodySize     = 12.0
	lineHeight   = 10.0
	rowHeight    = 8.0
	sectionSpace = 5.0
	tierBarWidth = 4.0
)

// PDFOption configures the PDF renderer.
type PDFOption func(*PDF)

// WithFontPath embeds a UTF-8 TrueType font so Cyrillic text is kept as is.
func WithFontPath(path string) PDFOption {
	return func(p *PDF) {
		p.fontPath = path
	}
}

// WithCreationDate pins the document creation date, mostly for reproducible output.
func WithCreationDate(t time.Time) PDFOption {
	return func(p *PDF) {
		p.created = t
	}
}

// WithCompression toggles stream compression. Uncompressed output keeps
// the page text readable in the raw file.
func WithCompression(on bool) PDFOption {
	return func(p *PDF) {
		p.compress = on
	}
}

// PDF renders A4 reports. Without a font file the text is transliterated
// to Latin and set in the core Helvetica font.
type PDF struct {
	fontPath string
	font     []byte
	created  time.Time
	compress bool
}

// NewPDF creates a PDF renderer, reading the configured font once.
func NewPDF(opts ...PDFOption) (*PDF, error) {
	p := &PDF{compress: true}
	for _, opt := range opts {
		opt(p)
	}
	if p.fontPath != "" {
		b, err := os.ReadFile(p.fontPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFontLoad, err)
		}
		p.font = b
	}
	return p, nil
}

func (*PDF) Format() string      { return "pdf" }
func (*PDF) Extension() string   { return "pdf" }
func (*PDF) ContentType() string { return "application/pdf" }

// Render lays out the report on a single A4 page.
func (p *PDF) Render(ctx context.Context, a model.Assessment) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := newLayout(a)

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(p.compress)
	if !p.created.IsZero() {
		doc.SetCreationDate(p.created)
	}
	family, text := coreFont, Transliterate
	if p.font != nil {
		doc.AddUTF8FontFromBytes(fontFamily, "", p.font)
		doc.AddUTF8FontFromBytes(fontFamily, "B", p.font)
		family, text = fontFamily, func(s string) string { return s }
	}
	doc.SetTitle(text(l.title), p.font != nil)
	doc.AddPage()

	doc.SetFont(family, "B", titleSize)
	doc.CellFormat(0, lineHeight, text(l.title), "", 1, "C", false, 0, "")

	doc.SetFont(family, "", bodySize)
	r, g, b := hexColor(a.Tier.Color())
	doc.SetFillColor(r, g, b)
	for i, h := range l.header {
		if i == 1 {
			// tier line gets a color marker
			doc.CellFormat(tierBarWidth, lineHeight, "", "", 0, "", true, 0, "")
			doc.CellFormat(0, lineHeight, " "+text(h), "", 1, "", false, 0, "")
			continue
		}
		doc.CellFormat(0, lineHeight, text(h), "", 1, "", false, 0, "")
	}
	doc.MultiCell(0, rowHeight, text(l.recommendation), "", "", false)
	doc.Ln(sectionSpace)
	for _, row := range l.rows {
		doc.CellFormat(0, rowHeight, text(row), "", 1, "", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// hexColor parses "#rrggbb"; anything else yields black.
func hexColor(s string) (int, int, int) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

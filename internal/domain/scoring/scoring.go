// Package scoring turns a sheet of raw test scores into an average
// percentage and a classification tier.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/cogdiag/internal/domain/model"
)

// Classification thresholds on the average percentage (inclusive lower bounds).
const (
	NormalThreshold = 75.0
	RiskThreshold   = 50.0

	maxPercent = 100.0
)

// Denominator selects how the average is formed when a band contains
// degenerate tests (max == 0).
type Denominator int

const (
	// DenominatorAllTests divides by the full battery size, so skipped tests
	// pull the average down. This is the default.
	DenominatorAllTests Denominator = iota
	// DenominatorScoredTests divides by the number of tests actually summed.
	DenominatorScoredTests
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithDenominator overrides the averaging denominator.
func WithDenominator(d Denominator) Option {
	return func(e *Engine) {
		e.denominator = d
	}
}

// Catalog is the read side of the test catalog the engine needs.
type Catalog interface {
	Tests(band model.AgeBand) ([]model.TestDescriptor, error)
}

// Contribution is the normalised share of one test in the average.
type Contribution struct {
	Test    model.TestDescriptor
	Value   float64
	Percent float64
	Counted bool
}

// Result is the outcome of one evaluation.
type Result struct {
	Tier           model.Tier
	AveragePercent float64
	Contributions  []Contribution
}

// Engine evaluates score sheets against an immutable catalog. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	catalog     Catalog
	denominator Denominator
}

// NewEngine creates an engine over the given catalog.
func NewEngine(c Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:     c,
		denominator: DenominatorAllTests,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores a sheet for band. scores must hold one value per test in
// catalog order, each inside its descriptor range; anything else fails with
// model.ErrInvalidInput.
func (e *Engine) Evaluate(band model.AgeBand, scores []float64) (Result, error) {
	tests, err := e.catalog.Tests(band)
	if err != nil {
		return Result{}, err
	}
	if len(scores) != len(tests) {
		return Result{}, fmt.Errorf("%w: band %d expects %d scores, got %d",
			model.ErrInvalidInput, band, len(tests), len(scores))
	}
	for i, d := range tests {
		if !d.InRange(scores[i]) {
			return Result{}, fmt.Errorf("%w: %q value %v outside [%v, %v]",
				model.ErrInvalidInput, d.Name, scores[i], d.Min, d.Max)
		}
	}

	contributions := make([]Contribution, len(tests))
	total := 0.0
	counted := 0
	for i, d := range tests {
		pct, ok := Normalize(d, scores[i])
		contributions[i] = Contribution{Test: d, Value: scores[i], Percent: pct, Counted: ok}
		if ok {
			total += pct
			counted++
		}
	}

	divisor := len(tests)
	if e.denominator == DenominatorScoredTests {
		divisor = counted
	}
	avg := 0.0
	if divisor > 0 {
		avg = total / float64(divisor)
	}

	return Result{
		Tier:           Classify(avg),
		AveragePercent: avg,
		Contributions:  contributions,
	}, nil
}

// Breakdown evaluates scores and returns only the per-test rows.
func (e *Engine) Breakdown(band model.AgeBand, scores []float64) ([]model.BreakdownRow, error) {
	res, err := e.Evaluate(band, scores)
	if err != nil {
		return nil, err
	}
	return res.Breakdown(), nil
}

// Breakdown returns the per-test rows of a result for tabular display.
func (r Result) Breakdown() []model.BreakdownRow {
	rows := make([]model.BreakdownRow, len(r.Contributions))
	for i, c := range r.Contributions {
		rows[i] = model.BreakdownRow{
			Test:    c.Test.Name,
			Value:   c.Value,
			Max:     c.Test.Max,
			Percent: c.Percent,
			Counted: c.Counted,
		}
	}
	return rows
}

// Normalize maps a raw value onto 0..100 where 100 is the best outcome.
// It reports false for degenerate tests, which contribute nothing.
func Normalize(d model.TestDescriptor, value float64) (float64, bool) {
	if d.Degenerate() {
		return 0, false
	}
	if d.Polarity == model.LowerIsBetter {
		return math.Max(0, (d.Max-value)/d.Max) * maxPercent, true
	}
	return math.Max(0, value/d.Max) * maxPercent, true
}

// Classify maps an average percentage to a tier.
func Classify(avg float64) model.Tier {
	switch {
	case avg >= NormalThreshold:
		return model.TierNormal
	case avg >= RiskThreshold:
		return model.TierRisk
	default:
		return model.TierDeviation
	}
}

// Package catalog holds the read-only test and recommendation tables keyed
// by age band.
//
// A Catalog is built once at process start (Default or LoadFile) and never
// mutated afterwards, so it is safe to share between goroutines.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/cogdiag/internal/domain/model"
)

// Band groups the ordered test battery and the guidance texts of one age band.
type Band struct {
	AgeBand         model.AgeBand          `json:"age_band"`
	Tests           []model.TestDescriptor `json:"tests"`
	Recommendations map[model.Tier]string  `json:"recommendations"`
}

// Catalog maps age bands to their test battery and recommendations.
type Catalog struct {
	tests           map[model.AgeBand][]model.TestDescriptor
	recommendations map[model.AgeBand]map[model.Tier]string
}

// New builds a catalog from the given bands. The input is copied.
func New(bands ...Band) *Catalog {
	c := &Catalog{
		tests:           make(map[model.AgeBand][]model.TestDescriptor, len(bands)),
		recommendations: make(map[model.AgeBand]map[model.Tier]string, len(bands)),
	}
	for _, b := range bands {
		if b.Tests != nil {
			tests := make([]model.TestDescriptor, len(b.Tests))
			copy(tests, b.Tests)
			c.tests[b.AgeBand] = tests
		}
		if b.Recommendations != nil {
			recs := make(map[model.Tier]string, len(b.Recommendations))
			for tier, text := range b.Recommendations {
				recs[tier] = text
			}
			c.recommendations[b.AgeBand] = recs
		}
	}
	return c
}

// Bands returns the bands that have a test battery, ascending.
func (c *Catalog) Bands() []model.AgeBand {
	out := make([]model.AgeBand, 0, len(c.tests))
	for b := range c.tests {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Tests returns a copy of the ordered test battery for band.
func (c *Catalog) Tests(band model.AgeBand) ([]model.TestDescriptor, error) {
	tests, ok := c.tests[band]
	if !ok {
		return nil, fmt.Errorf("%w: unknown age band %d", model.ErrInvalidInput, band)
	}
	out := make([]model.TestDescriptor, len(tests))
	copy(out, tests)
	return out, nil
}

// Recommendation returns the guidance text for band and tier.
func (c *Catalog) Recommendation(band model.AgeBand, tier model.Tier) (string, error) {
	recs, ok := c.recommendations[band]
	if !ok {
		return "", fmt.Errorf("%w: unknown age band %d", model.ErrInvalidInput, band)
	}
	text, ok := recs[tier]
	if !ok {
		return "", fmt.Errorf("%w: no recommendation for tier %q in band %d", model.ErrInvalidInput, tier, band)
	}
	return text, nil
}

// Band returns a copy of everything the catalog knows about band.
func (c *Catalog) Band(band model.AgeBand) (Band, error) {
	tests, err := c.Tests(band)
	if err != nil {
		return Band{}, err
	}
	recs := make(map[model.Tier]string, len(c.recommendations[band]))
	for tier, text := range c.recommendations[band] {
		recs[tier] = text
	}
	return Band{AgeBand: band, Tests: tests, Recommendations: recs}, nil
}

// Clamp limits each value to its descriptor's range. It is the input-layer
// guard the engine expects callers to apply; extra values are dropped and
// missing ones are filled with the descriptor minimum.
func (c *Catalog) Clamp(band model.AgeBand, values []float64) ([]float64, error) {
	tests, ok := c.tests[band]
	if !ok {
		return nil, fmt.Errorf("%w: unknown age band %d", model.ErrInvalidInput, band)
	}
	out := make([]float64, len(tests))
	for i, d := range tests {
		if i < len(values) {
			out[i] = d.Clamp(values[i])
		} else {
			out[i] = d.Min
		}
	}
	return out, nil
}

// Validate checks the structural invariants: the test and recommendation
// tables have identical band sets, every band has text for every tier and
// every descriptor has a name and a sane range.
func (c *Catalog) Validate() error {
	var problems []string

	for band := range c.tests {
		if _, ok := c.recommendations[band]; !ok {
			problems = append(problems, fmt.Sprintf("band %d has tests but no recommendations", band))
		}
	}
	for band, recs := range c.recommendations {
		if _, ok := c.tests[band]; !ok {
			problems = append(problems, fmt.Sprintf("band %d has recommendations but no tests", band))
		}
		for _, tier := range model.Tiers() {
			if strings.TrimSpace(recs[tier]) == "" {
				problems = append(problems, fmt.Sprintf("band %d is missing the %s recommendation", band, tier))
			}
		}
	}
	for band, tests := range c.tests {
		for i, d := range tests {
			switch {
			case strings.TrimSpace(d.Name) == "":
				problems = append(problems, fmt.Sprintf("band %d test #%d has no name", band, i))
			case d.Max < 0:
				problems = append(problems, fmt.Sprintf("band %d test %q has negative max", band, d.Name))
			case d.Min > d.Max:
				problems = append(problems, fmt.Sprintf("band %d test %q has min %v > max %v", band, d.Name, d.Min, d.Max))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
}

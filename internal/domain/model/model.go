// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidInput is the single error kind of the domain: a caller supplied
// an unknown age band, a wrong number of scores or a value outside its range.
var ErrInvalidInput = errors.New("invalid input")

// AgeBand selects the test battery and the recommendation set.
type AgeBand int

// Supported age bands, in years.
const (
	AgeBandInfant     AgeBand = 0
	AgeBandPreschool  AgeBand = 5
	AgeBandSchool     AgeBand = 10
	AgeBandAdolescent AgeBand = 15
	AgeBandAdult      AgeBand = 18
)

var ageBands = []AgeBand{AgeBandInfant, AgeBandPreschool, AgeBandSchool, AgeBandAdolescent, AgeBandAdult}

// AgeBands returns all supported bands in ascending order.
func AgeBands() []AgeBand {
	out := make([]AgeBand, len(ageBands))
	copy(out, ageBands)
	return out
}

// Valid reports whether b is one of the supported bands.
func (b AgeBand) Valid() bool {
	for _, v := range ageBands {
		if v == b {
			return true
		}
	}
	return false
}

func (b AgeBand) String() string { return strconv.Itoa(int(b)) }

// ParseAgeBand parses a decimal band value such as "10".
func ParseAgeBand(s string) (AgeBand, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: age band %q is not a number", ErrInvalidInput, s)
	}
	b := AgeBand(n)
	if !b.Valid() {
		return 0, fmt.Errorf("%w: unknown age band %d", ErrInvalidInput, n)
	}
	return b, nil
}

// Polarity tells whether a higher raw score is a better or a worse outcome.
type Polarity int

const (
	HigherIsBetter Polarity = iota
	LowerIsBetter
)

func (p Polarity) String() string {
	if p == LowerIsBetter {
		return "lower_is_better"
	}
	return "higher_is_better"
}

// ParsePolarity parses the text form produced by String.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "higher_is_better":
		return HigherIsBetter, nil
	case "lower_is_better":
		return LowerIsBetter, nil
	default:
		return HigherIsBetter, fmt.Errorf("unknown polarity %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Polarity) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Polarity) UnmarshalText(b []byte) error {
	v, err := ParsePolarity(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// TestDescriptor is the static definition of one psychometric instrument.
type TestDescriptor struct {
	Name     string   `json:"name"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Polarity Polarity `json:"polarity"`
}

// Degenerate reports whether the test is skipped in scoring.
func (d TestDescriptor) Degenerate() bool { return d.Max == 0 }

// InRange reports whether v lies in [Min, Max]. NaN is never in range.
func (d TestDescriptor) InRange(v float64) bool {
	return v >= d.Min && v <= d.Max
}

// Clamp limits v to [Min, Max].
func (d TestDescriptor) Clamp(v float64) float64 {
	switch {
	case v != v: // NaN
		return d.Min
	case v < d.Min:
		return d.Min
	case v > d.Max:
		return d.Max
	}
	return v
}

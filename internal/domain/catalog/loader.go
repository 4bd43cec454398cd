package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/cogdiag/internal/domain/model"
)

// catalogFile mirrors the YAML layout of a catalog file:
//
//	bands:
//	  - age_band: 0
//	    tests:
//	      - {name: "M-CHAT-R/F", min: 0, max: 20, polarity: lower_is_better}
//	    recommendations: {normal: "...", risk: "...", deviation: "..."}
type catalogFile struct {
	Bands []bandEntry `koanf:"bands"`
}

type bandEntry struct {
	AgeBand         int               `koanf:"age_band"`
	Tests           []testEntry       `koanf:"tests"`
	Recommendations map[string]string `koanf:"recommendations"`
}

type testEntry struct {
	Name     string  `koanf:"name"`
	Min      float64 `koanf:"min"`
	Max      float64 `koanf:"max"`
	Polarity string  `koanf:"polarity"`
}

// LoadFile reads a catalog from a YAML file and validates it. Tests without
// an explicit polarity get the one InferPolarity derives from their name.
func LoadFile(_ context.Context, path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadCatalog, path, err)
	}

	var doc catalogFile
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadCatalog, path, err)
	}
	if len(doc.Bands) == 0 {
		return nil, fmt.Errorf("%w: %s: no bands defined", ErrInvalidCatalog, path)
	}

	bands := make([]Band, 0, len(doc.Bands))
	seen := make(map[model.AgeBand]bool, len(doc.Bands))
	for _, bs := range doc.Bands {
		band, err := bs.toBand()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCatalog, path, err)
		}
		if seen[band.AgeBand] {
			return nil, fmt.Errorf("%w: %s: band %d defined twice", ErrInvalidCatalog, path, band.AgeBand)
		}
		seen[band.AgeBand] = true
		bands = append(bands, band)
	}

	c := New(bands...)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (bs bandEntry) toBand() (Band, error) {
	ageBand := model.AgeBand(bs.AgeBand)
	if !ageBand.Valid() {
		return Band{}, fmt.Errorf("unknown age band %d", bs.AgeBand)
	}

	tests := make([]model.TestDescriptor, 0, len(bs.Tests))
	for _, ts := range bs.Tests {
		d := model.TestDescriptor{Name: ts.Name, Min: ts.Min, Max: ts.Max}
		if strings.TrimSpace(ts.Polarity) == "" {
			d.Polarity = InferPolarity(ts.Name)
		} else {
			p, err := model.ParsePolarity(ts.Polarity)
			if err != nil {
				return Band{}, fmt.Errorf("band %d test %q: %w", bs.AgeBand, ts.Name, err)
			}
			d.Polarity = p
		}
		tests = append(tests, d)
	}

	recs := make(map[model.Tier]string, len(bs.Recommendations))
	for key, text := range bs.Recommendations {
		tier, err := model.ParseTier(key)
		if err != nil {
			return Band{}, fmt.Errorf("band %d: %w", bs.AgeBand, err)
		}
		recs[tier] = text
	}

	return Band{AgeBand: ageBand, Tests: tests, Recommendations: recs}, nil
}

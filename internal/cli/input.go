package cli

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	service "github.com/okian/cogdiag/internal/app"
	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/model"
)

// BandLookup resolves the ordered test battery of an age band.
type BandLookup interface {
	Band(ctx context.Context, band model.AgeBand) (catalog.Band, error)
}

// ReadInput loads a score sheet from a JSON file. scores may be an array in
// catalog order or an object keyed by test name; tests missing from the
// object are filled with their minimum. A non-nil band overrides age_band.
//
//	{"age_band": 0, "scores": [150, 100, 0]}
//	{"age_band": 0, "clamp": true, "scores": {"M-CHAT-R/F": 2}}
func ReadInput(ctx context.Context, path string, lookup BandLookup, band *model.AgeBand) (service.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return service.Request{}, errors.Wrapf(err, "read input %s", path)
	}
	if !gjson.ValidBytes(raw) {
		return service.Request{}, errors.Wrapf(ErrUsage, "input %s is not valid JSON", path)
	}

	var req service.Request
	req.Clamp = gjson.GetBytes(raw, "clamp").Bool()

	switch ab := gjson.GetBytes(raw, "age_band"); {
	case band != nil:
		req.AgeBand = *band
	case !ab.Exists():
		return service.Request{}, errors.Wrapf(ErrUsage, "input %s has no age_band and -band is not set", path)
	case ab.Type != gjson.Number:
		return service.Request{}, errors.Wrapf(ErrUsage, "age_band must be a number, got %s", ab.Raw)
	default:
		req.AgeBand = model.AgeBand(ab.Int())
	}

	scores := gjson.GetBytes(raw, "scores")
	switch {
	case scores.IsArray():
		for i, v := range scores.Array() {
			if v.Type != gjson.Number {
				return service.Request{}, errors.Wrapf(ErrUsage, "scores[%d] must be a number, got %s", i, v.Raw)
			}
			req.Scores = append(req.Scores, v.Float())
		}
	case scores.IsObject():
		b, err := lookup.Band(ctx, req.AgeBand)
		if err != nil {
			return service.Request{}, errors.Wrap(err, "age_band")
		}
		named := scores.Map()
		for name := range named {
			if !hasTest(b.Tests, name) {
				return service.Request{}, errors.Wrapf(ErrUsage, "band %d has no test %q", req.AgeBand, name)
			}
		}
		req.Scores = make([]float64, len(b.Tests))
		for i, d := range b.Tests {
			v, ok := named[d.Name]
			if !ok {
				req.Scores[i] = d.Min
				continue
			}
			if v.Type != gjson.Number {
				return service.Request{}, errors.Wrapf(ErrUsage, "score %q must be a number, got %s", d.Name, v.Raw)
			}
			req.Scores[i] = v.Float()
		}
	default:
		return service.Request{}, errors.Wrapf(ErrUsage, "input %s has no scores", path)
	}
	return req, nil
}

func hasTest(tests []model.TestDescriptor, name string) bool {
	for _, d := range tests {
		if d.Name == name {
			return true
		}
	}
	return false
}

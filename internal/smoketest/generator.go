package smoketest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/okian/cogdiag/internal/domain/model"
	"github.com/okian/cogdiag/internal/domain/scoring"
	"github.com/okian/cogdiag/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	// outOfRangeOffset pushes an invalid value past the test maximum.
	outOfRangeOffset = 1
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomIndex returns a random index in [0, n).
func getRandomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateSheets creates score sheets cycling through the catalog bands and
// computes the expected outcome of each with the local engine.
func generateSheets(ctx context.Context, config *Config, engine *scoring.Engine, stats *Stats) ([]Sheet, error) {
	logger.Get().Info(ctx, "generating score sheets", logger.Int("sheets", config.Sheets))

	bands := config.Catalog.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: catalog has no bands", ErrInvalidConfig)
	}

	sheets := make([]Sheet, 0, config.Sheets)
	for i := 0; i < config.Sheets; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during sheet generation: %w", ctx.Err())
		default:
		}

		band := bands[i%len(bands)]
		tests, err := config.Catalog.Tests(band)
		if err != nil {
			return nil, fmt.Errorf("failed to generate sheet %d: %w", i, err)
		}
		invalid := config.InvalidRate > 0 && (i+1)%config.InvalidRate == 0
		sheet := generateSingleSheet(band, tests, invalid)

		if !sheet.expectInvalid {
			res, err := engine.Evaluate(band, sheet.Scores)
			if err != nil {
				return nil, fmt.Errorf("failed to score sheet %d locally: %w", i, err)
			}
			sheet.expected = res
		}
		sheets = append(sheets, sheet)
	}

	stats.SheetsGenerated = len(sheets)
	logger.Get().Info(ctx, "generated score sheets successfully", logger.Int("count", len(sheets)))
	return sheets, nil
}

// generateSingleSheet draws every score uniformly inside its range. When
// invalid is set one random test is pushed above its maximum.
func generateSingleSheet(band model.AgeBand, tests []model.TestDescriptor, invalid bool) Sheet {
	scores := make([]float64, len(tests))
	for i, d := range tests {
		scores[i] = d.Min + getRandomFloat()*(d.Max-d.Min)
	}
	if invalid && len(tests) > 0 {
		i := getRandomIndex(len(tests))
		scores[i] = tests[i].Max + outOfRangeOffset
	}
	return Sheet{AgeBand: int(band), Scores: scores, expectInvalid: invalid}
}

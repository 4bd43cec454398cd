package smoketest

import (
	"time"

	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/scoring"
)

// Config holds configuration for the smoke run.
type Config struct {
	BaseURL     string              // Base URL of the service
	Sheets      int                 // Number of score sheets to generate
	Workers     int                 // Number of concurrent workers
	Timeout     time.Duration       // HTTP request timeout
	Format      string              // Report format downloaded per band
	OutputDir   string              // Directory for downloaded reports; empty skips saving
	InvalidRate int                 // Every InvalidRate-th sheet carries an out-of-range score; 0 disables
	Catalog     *catalog.Catalog    // Catalog the service is expected to run with
	Denominator scoring.Denominator // Denominator the service is expected to use
	Verbose     bool                // Log every mismatch
}

// Sheet is one generated submission and the outcome expected for it.
type Sheet struct {
	AgeBand int       `json:"age_band"`
	Scores  []float64 `json:"scores"`
	Clamp   bool      `json:"clamp"`

	expectInvalid bool
	expected      scoring.Result
}

// Stats holds run statistics.
type Stats struct {
	SheetsGenerated int
	SheetsSubmitted int
	SheetsMatched   int
	SheetsRejected  int
	Mismatches      int
	Failed          int
	ReportsFetched  int
	TierCounts      map[string]int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

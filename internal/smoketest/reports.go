package smoketest

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/okian/cogdiag/internal/adapters/report"
	"github.com/okian/cogdiag/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

var pdfMagic = []byte("%PDF-")

// checkBands verifies that the service serves the expected catalog bands.
func checkBands(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/v1/bands")
	if err != nil {
		return fmt.Errorf("failed to list bands: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read bands: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: list bands returned status %d", ErrVerification, resp.StatusCode)
	}

	served := make(map[int64]int64)
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		served[v.Get("age_band").Int()] = v.Get("tests").Int()
		return true
	})
	for _, band := range config.Catalog.Bands() {
		tests, _ := config.Catalog.Tests(band)
		got, ok := served[int64(band)]
		if !ok {
			return fmt.Errorf("%w: band %d is not served", ErrVerification, band)
		}
		if got != int64(len(tests)) {
			return fmt.Errorf("%w: band %d has %d tests, want %d", ErrVerification, band, got, len(tests))
		}
	}
	return nil
}

// downloadReports fetches one report per band for a sheet at the test
// minimums and checks its headers and body.
func downloadReports(ctx context.Context, config *Config, stats *Stats) error {
	ext, err := reportExtension(config.Format)
	if err != nil {
		return err
	}
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/v1/reports?format=" + config.Format

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	for _, band := range config.Catalog.Bands() {
		tests, err := config.Catalog.Tests(band)
		if err != nil {
			return err
		}
		scores := make([]float64, len(tests))
		for i, d := range tests {
			scores[i] = d.Min
		}

		name, body, err := downloadReport(ctx, client, url, Sheet{AgeBand: int(band), Scores: scores})
		if err != nil {
			return fmt.Errorf("band %d: %w", band, err)
		}
		if want := report.FileName(band, ext); name != want {
			return fmt.Errorf("%w: band %d report named %q, want %q", ErrVerification, band, name, want)
		}
		if config.Format == "pdf" && !bytes.HasPrefix(body, pdfMagic) {
			return fmt.Errorf("%w: band %d report is not a PDF", ErrVerification, band)
		}
		stats.ReportsFetched++

		if config.OutputDir != "" {
			path := filepath.Join(config.OutputDir, name)
			if err := os.WriteFile(path, body, reportPermission); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
			logger.Get().Info(ctx, "report saved", logger.String("path", path))
		}
	}
	return nil
}

// downloadReport posts a sheet to the reports endpoint and returns the
// attachment file name and body.
func downloadReport(ctx context.Context, client *HTTPClient, url string, sheet Sheet) (string, []byte, error) {
	resp, err := client.Post(ctx, url, sheet)
	if err != nil {
		return "", nil, fmt.Errorf("failed to request report: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read report: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: report returned status %d: %s",
			ErrVerification, resp.StatusCode, gjson.GetBytes(body, "message").String())
	}
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad Content-Disposition: %v", ErrVerification, err)
	}
	if resp.Header.Get("X-Assessment-Tier") == "" {
		return "", nil, fmt.Errorf("%w: missing tier header", ErrVerification)
	}
	return params["filename"], body, nil
}

// reportExtension resolves the file extension of a report format.
func reportExtension(format string) (string, error) {
	pdf, err := report.NewPDF()
	if err != nil {
		return "", err
	}
	r, err := report.NewRegistry(report.NewText(), pdf).Get(format)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return r.Extension(), nil
}

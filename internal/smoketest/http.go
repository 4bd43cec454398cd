package smoketest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/okian/cogdiag/pkg/logger"
)

// Submission outcomes.
const (
	resultMatched  = "matched"
	resultRejected = "rejected"
	resultMismatch = "mismatch"
	resultFailed   = "failed"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// submitSheets submits sheets concurrently using a worker pool and checks
// every answer against the locally expected result.
func submitSheets(ctx context.Context, config *Config, sheets []Sheet, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting score sheets",
		logger.Int("sheets", len(sheets)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/v1/assessments"

	var (
		submitted int64
		matched   int64
		rejected  int64
		mismatch  int64
		failed    int64
		tiersMu   sync.Mutex
	)
	tiers := make(map[string]int)

	sheetChan := make(chan Sheet, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for sheet := range sheetChan {
				result, tier := submitSingleSheet(ctx, client, url, sheet, config.Verbose)

				atomic.AddInt64(&submitted, 1)
				switch result {
				case resultMatched:
					atomic.AddInt64(&matched, 1)
					tiersMu.Lock()
					tiers[tier]++
					tiersMu.Unlock()
				case resultRejected:
					atomic.AddInt64(&rejected, 1)
				case resultMismatch:
					atomic.AddInt64(&mismatch, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(sheetChan)
		for _, sheet := range sheets {
			select {
			case <-ctx.Done():
				return
			case sheetChan <- sheet:
			}
		}
	}()

	wg.Wait()

	stats.SheetsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.SheetsMatched = int(atomic.LoadInt64(&matched))
	stats.SheetsRejected = int(atomic.LoadInt64(&rejected))
	stats.Mismatches = int(atomic.LoadInt64(&mismatch))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.TierCounts = tiers

	log.Info(ctx, "sheet submission completed",
		logger.Int("matched", stats.SheetsMatched),
		logger.Int("rejected", stats.SheetsRejected),
		logger.Int("mismatches", stats.Mismatches),
		logger.Int("failed", stats.Failed))
}

// submitSingleSheet posts one sheet and classifies the answer. The tier is
// returned for matched sheets.
func submitSingleSheet(ctx context.Context, client *HTTPClient, url string, sheet Sheet, verbose bool) (string, string) {
	resp, err := client.Post(ctx, url, sheet)
	if err != nil {
		if verbose {
			logger.Get().Warn(ctx, "submission failed", logger.Error(err))
		}
		return resultFailed, ""
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed, ""
	}

	if sheet.expectInvalid {
		if resp.StatusCode == http.StatusBadRequest && gjson.GetBytes(body, "code").String() == "invalid_input" {
			return resultRejected, ""
		}
		if verbose {
			logger.Get().Warn(ctx, "out-of-range sheet was not rejected",
				logger.Int("status", resp.StatusCode),
				logger.String("body", string(body)))
		}
		return resultMismatch, ""
	}

	if resp.StatusCode != http.StatusOK {
		if verbose {
			logger.Get().Warn(ctx, "unexpected status",
				logger.Int("status", resp.StatusCode),
				logger.String("body", string(body)))
		}
		return resultFailed, ""
	}

	if err := verifyAssessment(body, sheet); err != nil {
		if verbose {
			logger.Get().Warn(ctx, "assessment mismatch", logger.Error(err))
		}
		return resultMismatch, ""
	}
	return resultMatched, gjson.GetBytes(body, "tier").String()
}

// verifyAssessment compares an assessment response with the local result.
func verifyAssessment(body []byte, sheet Sheet) error {
	want := sheet.expected
	res := gjson.ParseBytes(body)

	if got := res.Get("age_band").Int(); got != int64(sheet.AgeBand) {
		return fmt.Errorf("%w: age band %d, want %d", ErrVerification, got, sheet.AgeBand)
	}
	if got := res.Get("tier").String(); got != string(want.Tier) {
		return fmt.Errorf("%w: tier %q, want %q", ErrVerification, got, want.Tier)
	}
	if got := res.Get("average_percent").Float(); math.Abs(got-want.AveragePercent) > averageTolerance {
		return fmt.Errorf("%w: average %v, want %v", ErrVerification, got, want.AveragePercent)
	}
	if !res.Get("id").Exists() || res.Get("id").String() == "" {
		return fmt.Errorf("%w: missing id", ErrVerification)
	}

	rows := res.Get("breakdown").Array()
	if len(rows) != len(want.Contributions) {
		return fmt.Errorf("%w: %d breakdown rows, want %d", ErrVerification, len(rows), len(want.Contributions))
	}
	for i, row := range rows {
		c := want.Contributions[i]
		if row.Get("test").String() != c.Test.Name {
			return fmt.Errorf("%w: row %d is %q, want %q", ErrVerification, i, row.Get("test").String(), c.Test.Name)
		}
		if row.Get("counted").Bool() != c.Counted {
			return fmt.Errorf("%w: row %d counted flag differs", ErrVerification, i)
		}
	}
	return nil
}

package model

import "time"

// BreakdownRow is one line of the per-test table shown to the operator.
type BreakdownRow struct {
	Test    string  `json:"test"`
	Value   float64 `json:"value"`
	Max     float64 `json:"max"`
	Percent float64 `json:"percent"`
	Counted bool    `json:"counted"` // false for degenerate tests (max == 0)
}

// Assessment is the outcome of one scoring request. It is created per
// request and never stored.
type Assessment struct {
	ID             string         `json:"id"`
	AgeBand        AgeBand        `json:"age_band"`
	Tier           Tier           `json:"tier"`
	TierLabel      string         `json:"tier_label"`
	AveragePercent float64        `json:"average_percent"`
	Recommendation string         `json:"recommendation"`
	Breakdown      []BreakdownRow `json:"breakdown"`
	CreatedAt      time.Time      `json:"created_at"`
}

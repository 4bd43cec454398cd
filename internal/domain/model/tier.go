package model

import (
	"fmt"
	"strings"
)

// Tier is the developmental-risk classification of an assessment.
type Tier string

const (
	TierNormal    Tier = "normal"
	TierRisk      Tier = "risk"
	TierDeviation Tier = "deviation"
)

// Tiers lists the classification tiers from best to worst.
func Tiers() []Tier { return []Tier{TierNormal, TierRisk, TierDeviation} }

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierNormal, TierRisk, TierDeviation:
		return true
	}
	return false
}

// Label returns the display label used on screen and in reports.
func (t Tier) Label() string {
	switch t {
	case TierNormal:
		return "Норма"
	case TierRisk:
		return "Риск"
	case TierDeviation:
		return "Отклонение"
	}
	return string(t)
}

// Color returns the hex colour the tier is highlighted with.
func (t Tier) Color() string {
	switch t {
	case TierNormal:
		return "#28a745"
	case TierRisk:
		return "#ffc107"
	default:
		return "#dc3545"
	}
}

// ParseTier parses either the text form ("risk") or the display label ("Риск").
func ParseTier(s string) (Tier, error) {
	v := strings.TrimSpace(s)
	for _, t := range Tiers() {
		if strings.EqualFold(v, string(t)) || v == t.Label() {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

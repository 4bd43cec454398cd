package catalog

import (
	"strings"

	"github.com/okian/cogdiag/internal/domain/model"
	"golang.org/x/text/cases"
)

// invertedMarkers identify instruments where a higher raw score means a
// worse outcome (symptom scales, error rates, completion times).
var invertedMarkers = []string{"m-chat", "cars", "gad", "bdi", "phq", "cpt", "stroop", "tmt"}

// InferPolarity derives a polarity from a test name with a case-insensitive
// substring match against the known inverted instruments. It is only used
// for catalog files that leave polarity out; the built-in catalog states it
// explicitly.
func InferPolarity(name string) model.Polarity {
	folded := cases.Fold().String(name)
	for _, marker := range invertedMarkers {
		if strings.Contains(folded, marker) {
			return model.LowerIsBetter
		}
	}
	return model.HigherIsBetter
}

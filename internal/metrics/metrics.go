// Package metrics aggregates a decision log into summary counts.
package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

// Summary is a read-only aggregate over a decision log. MeanConfidence is
// nil when no decision carried a prediction.
type Summary struct {
	Total             int                     `json:"total"`
	Actions           map[domain.Action]int   `json:"actions"`
	Severities        map[domain.Severity]int `json:"severities"`
	MeanConfidence    *float64                `json:"mean_confidence"`
	ConfidenceSamples int                     `json:"confidence_samples"`
}

// Summarize walks the log once. Every action and severity is present in the
// histograms, zero when unused.
func Summarize(log []domain.Decision) Summary {
	s := Summary{
		Total:      len(log),
		Actions:    make(map[domain.Action]int, domain.ActionCount),
		Severities: make(map[domain.Severity]int, domain.SeverityCount),
	}
	for _, a := range domain.Actions() {
		s.Actions[a] = 0
	}
	for _, sev := range domain.Severities() {
		s.Severities[sev] = 0
	}

	var samples []float64
	for _, d := range log {
		s.Actions[d.Action]++
		s.Severities[d.Severity]++
		if c, ok := confidence(d); ok {
			samples = append(samples, c)
		}
	}
	s.ConfidenceSamples = len(samples)
	if len(samples) > 0 {
		mean := stat.Mean(samples, nil)
		s.MeanConfidence = &mean
	}
	return s
}

// confidence samples the first prediction in enumeration order, whichever
// action was chosen.
func confidence(d domain.Decision) (float64, bool) {
	if len(d.Predictions) == 0 {
		return 0, false
	}
	return d.Predictions[0].Prediction.Confidence, true
}

package domain

import (
	"errors"
	"time"
)

// ErrMissingChannel is returned by a strict policy when a health report omits a channel.
var ErrMissingChannel = errors.New("health report is missing a channel")

// ActionPrediction pairs an action with the prediction considered for it.
type ActionPrediction struct {
	Action     Action     `json:"action"`
	Prediction Prediction `json:"prediction"`
}

// Decision is one entry of the audit trail written by the decision policy.
type Decision struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	State     Reading   `json:"state"`
	Health    Health    `json:"health"`
	Score     int       `json:"severity_score"`
	Severity  Severity  `json:"severity"`
	Action    Action    `json:"action"`
	// Override is set when the safety rule selected the action.
	Override bool `json:"safety_override"`
	// Predictions are listed in action enumeration order.
	Predictions []ActionPrediction `json:"predictions"`
}

// PredictionFor returns the prediction considered for a, if any.
func (d Decision) PredictionFor(a Action) (Prediction, bool) {
	for _, p := range d.Predictions {
		if p.Action == a {
			return p.Prediction, true
		}
	}
	return Prediction{}, false
}

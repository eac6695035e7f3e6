package domain

import "time"

// Outcome summarises what happened when an action was executed.
type Outcome struct {
	Success bool   `json:"success"`
	Effect  string `json:"effect,omitempty"`
}

// Experience is an immutable (state, action, outcome, reward) record.
type Experience struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	State     Reading   `json:"state"`
	Action    Action    `json:"action"`
	Outcome   Outcome   `json:"outcome"`
	Reward    float64   `json:"reward"`
}

// Prediction is the expected reward of an action.
type Prediction struct {
	PredictedReward float64 `json:"predicted_reward"`
	// Confidence is a coverage ratio: the share of all recorded experiences
	// that used the queried action. It is not a calibrated probability.
	Confidence float64 `json:"confidence"`
}

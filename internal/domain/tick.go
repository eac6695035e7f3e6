package domain

// TickReport is everything one control loop tick produced. Recorded is false
// when the experience could not be persisted.
type TickReport struct {
	Reading    Reading    `json:"reading"`
	Health     Health     `json:"health"`
	Decision   Decision   `json:"decision"`
	Outcome    Outcome    `json:"outcome"`
	Reward     float64    `json:"reward"`
	Experience Experience `json:"experience"`
	Recorded   bool       `json:"recorded"`
}

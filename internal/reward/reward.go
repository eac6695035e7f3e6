// Package reward holds the reference reward table used by the control loop.
package reward

import "github.com/ghalamif/AegisMaint/internal/domain"

const (
	CriticalPenalty     = -10.0
	JustifiedShutdown   = 5.0
	UnjustifiedShutdown = -5.0
	ScheduledUpkeep     = 3.0
)

// Reference scores an executed action. The critical penalty applies to every
// action, so a justified shutdown nets -5. Failed executions only carry the
// critical penalty.
func Reference(action domain.Action, outcome domain.Outcome, health domain.Health) float64 {
	critical := health.AnyCritical()
	var r float64
	if critical {
		r += CriticalPenalty
	}
	if !outcome.Success {
		return r
	}
	switch action {
	case domain.EmergencyShutdown:
		if critical {
			r += JustifiedShutdown
		} else {
			r += UnjustifiedShutdown
		}
	case domain.ScheduleMaintenance:
		r += ScheduledUpkeep
	}
	return r
}

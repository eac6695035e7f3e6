package aegismaint

import (
	"time"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/metrics"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// Domain types flowing through the control loop, exported so custom adapters
// can reference them.
type (
	Channel          = domain.Channel
	Reading          = domain.Reading
	Status           = domain.Status
	HealthStatus     = domain.HealthStatus
	Health           = domain.Health
	Severity         = domain.Severity
	Action           = domain.Action
	Prediction       = domain.Prediction
	ActionPrediction = domain.ActionPrediction
	Decision         = domain.Decision
	Outcome          = domain.Outcome
	Experience       = domain.Experience
	TickReport       = domain.TickReport
	Summary          = metrics.Summary
)

const (
	Temperature = domain.Temperature
	Vibration   = domain.Vibration
	Pressure    = domain.Pressure
)

const (
	NoAction             = domain.NoAction
	IncreaseMonitoring   = domain.IncreaseMonitoring
	ScheduleMaintenance  = domain.ScheduleMaintenance
	ImmediateMaintenance = domain.ImmediateMaintenance
	EmergencyShutdown    = domain.EmergencyShutdown
)

// ReadingSource streams readings from any data source into the control loop.
type ReadingSource = ports.ReadingSource

// Effector executes a maintenance action against the equipment.
type Effector = ports.Effector

// RewardFunc scores an executed action.
type RewardFunc = ports.RewardFunc

// ExperienceJournal persists experiences so the store survives restarts.
type ExperienceJournal = ports.ExperienceJournal

// JournalStats exposes journal metadata for observability.
type JournalStats = ports.JournalStats

// EntryID identifies a journal entry.
type EntryID = ports.EntryID

// DecisionSink consumes batches of decisions and exports them downstream.
type DecisionSink = ports.DecisionSink

// DecisionQueue is the bounded queue between the policy and the sink.
type DecisionQueue = ports.DecisionQueue

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// NewReading builds a reading from per-channel values. Missing channels read 0.
func NewReading(ts time.Time, values map[Channel]float64) Reading {
	return domain.NewReading(ts, values)
}

// ParseAction resolves a snake_case action name.
func ParseAction(name string) (Action, error) {
	return domain.ParseAction(name)
}

package domain

import (
	"errors"
	"fmt"
)

// Action is a maintenance action. The enumeration is closed and declared in
// escalation order; that order is also the tie-break order of the policy.
type Action uint8

const (
	NoAction Action = iota
	IncreaseMonitoring
	ScheduleMaintenance
	ImmediateMaintenance
	EmergencyShutdown
)

// ActionCount is the size of the closed action enumeration.
const ActionCount = int(EmergencyShutdown) + 1

var actionNames = [ActionCount]string{
	"no_action",
	"increase_monitoring",
	"schedule_maintenance",
	"immediate_maintenance",
	"emergency_shutdown",
}

// ErrUnknownAction is returned for actions outside the enumeration.
var ErrUnknownAction = errors.New("unknown action")

// Actions returns every action in declared order.
func Actions() []Action {
	out := make([]Action, ActionCount)
	for i := range out {
		out[i] = Action(i)
	}
	return out
}

func (a Action) Valid() bool { return int(a) < ActionCount }

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", uint8(a))
	}
	return actionNames[a]
}

// CheckAction returns ErrUnknownAction when a is outside the enumeration.
func CheckAction(a Action) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownAction, uint8(a))
	}
	return nil
}

func ParseAction(name string) (Action, error) {
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

func (a Action) MarshalText() ([]byte, error) {
	if err := CheckAction(a); err != nil {
		return nil, err
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the health classification of one channel reading.
type Status uint8

const (
	// StatusUnknown marks a channel absent from a health report.
	StatusUnknown Status = iota
	StatusNormal
	StatusWarning
	StatusCritical
)

var statusNames = [...]string{"UNKNOWN", "NORMAL", "WARNING", "CRITICAL"}

func (s Status) String() string {
	if int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", uint8(s))
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for i, n := range statusNames {
		if n == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// HealthStatus is the classification of one channel plus the value that triggered it.
type HealthStatus struct {
	Status Status  `json:"status"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}

// Health is a per-channel health report. Entries left at StatusUnknown are
// treated as missing channels.
type Health [ChannelCount]HealthStatus

func (h Health) Get(ch Channel) HealthStatus { return h[ch] }

// AnyCritical reports whether at least one channel is CRITICAL.
func (h Health) AnyCritical() bool {
	for _, s := range h {
		if s.Status == StatusCritical {
			return true
		}
	}
	return false
}

// Missing lists channels without a classification.
func (h Health) Missing() []Channel {
	var out []Channel
	for _, ch := range Channels() {
		if h[ch].Status == StatusUnknown {
			out = append(out, ch)
		}
	}
	return out
}

func (h Health) MarshalJSON() ([]byte, error) {
	m := make(map[string]HealthStatus, ChannelCount)
	for _, ch := range Channels() {
		if h[ch].Status == StatusUnknown {
			continue
		}
		m[ch.String()] = h[ch]
	}
	return json.Marshal(m)
}

func (h *Health) UnmarshalJSON(b []byte) error {
	var m map[string]HealthStatus
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Health
	for name, st := range m {
		ch, err := ParseChannel(name)
		if err != nil {
			return err
		}
		out[ch] = st
	}
	*h = out
	return nil
}

// Severity is the coarse escalation tier derived from a health report.
type Severity uint8

const (
	SeverityNormal Severity = iota
	SeverityWarning
	SeverityCritical
)

// SeverityCount is the number of severity tiers.
const SeverityCount = int(SeverityCritical) + 1

var severityNames = [SeverityCount]string{"NORMAL", "WARNING", "CRITICAL"}

// Severities returns every tier in escalation order.
func Severities() []Severity {
	return []Severity{SeverityNormal, SeverityWarning, SeverityCritical}
}

func (s Severity) String() string {
	if int(s) >= SeverityCount {
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
	return severityNames[s]
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	for i, n := range severityNames {
		if n == string(b) {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", string(b))
}

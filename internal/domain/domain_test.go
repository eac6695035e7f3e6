package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestParseActionAndChannel(t *testing.T) {
	for _, a := range Actions() {
		got, err := ParseAction(a.String())
		if err != nil || got != a {
			t.Fatalf("ParseAction(%q) = %v, %v", a.String(), got, err)
		}
	}
	if _, err := ParseAction("reboot"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if err := CheckAction(Action(ActionCount)); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction for out-of-range action, got %v", err)
	}

	for _, ch := range Channels() {
		got, err := ParseChannel(ch.String())
		if err != nil || got != ch {
			t.Fatalf("ParseChannel(%q) = %v, %v", ch.String(), got, err)
		}
	}
	if _, err := ParseChannel("humidity"); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestActionsInEscalationOrder(t *testing.T) {
	want := []string{"no_action", "increase_monitoring", "schedule_maintenance", "immediate_maintenance", "emergency_shutdown"}
	got := Actions()
	if len(got) != len(want) {
		t.Fatalf("expected %d actions, got %d", len(want), len(got))
	}
	for i, a := range got {
		if a.String() != want[i] {
			t.Fatalf("action %d: expected %s, got %s", i, want[i], a)
		}
	}
}

func TestReadingJSON(t *testing.T) {
	r := NewReading(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), map[Channel]float64{
		Temperature: 78.5, Vibration: 1.2, Pressure: 101,
	})
	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"ts"`, `"temperature":78.5`, `"vibration":1.2`, `"pressure":101`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("expected %s in %s", key, raw)
		}
	}

	var back Reading
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Timestamp.Equal(r.Timestamp) || back.Values != r.Values {
		t.Fatalf("reading changed across JSON: %+v vs %+v", back, r)
	}

	if err := json.Unmarshal([]byte(`{"humidity": 3}`), &back); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel for unknown key, got %v", err)
	}
}

func TestHealthJSONOmitsMissingChannels(t *testing.T) {
	var h Health
	h[Temperature] = HealthStatus{Status: StatusCritical, Value: 90, Unit: "°C"}
	h[Pressure] = HealthStatus{Status: StatusNormal, Value: 100, Unit: "PSI"}

	raw, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "vibration") {
		t.Fatalf("missing channel should be omitted: %s", raw)
	}
	if !strings.Contains(string(raw), `"status":"CRITICAL"`) {
		t.Fatalf("expected textual status in %s", raw)
	}

	var back Health
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != h {
		t.Fatalf("health changed across JSON: %+v vs %+v", back, h)
	}
	if missing := back.Missing(); len(missing) != 1 || missing[0] != Vibration {
		t.Fatalf("expected vibration to be missing, got %v", missing)
	}
	if !back.AnyCritical() {
		t.Fatalf("expected AnyCritical")
	}
}

func TestChannelConfigValidation(t *testing.T) {
	cases := map[string]ChannelConfig{
		"inverted range":    {NormalRange: Range{Min: 10, Max: 5}, Critical: 20},
		"critical in range": {NormalRange: Range{Min: 0, Max: 10}, Critical: 5},
		"negative std dev":  {NormalRange: Range{Min: 0, Max: 10}, Critical: 20, StdDev: -1},
		"nan":               {NormalRange: Range{Min: math.NaN(), Max: 10}, Critical: 20},
	}
	for name, cfg := range cases {
		err := cfg.Validate(Pressure)
		var cerr *ConfigurationError
		if !errors.As(err, &cerr) || !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s: expected ConfigurationError, got %v", name, err)
		}
		if cerr.Channel != Pressure {
			t.Fatalf("%s: expected channel pressure, got %s", name, cerr.Channel)
		}
	}
	if err := DefaultChannels().Validate(); err != nil {
		t.Fatalf("default channels invalid: %v", err)
	}
}

func TestClassifyCriticalFirst(t *testing.T) {
	cfg := DefaultChannels()[Temperature]
	cases := []struct {
		value float64
		want  Status
	}{
		{75, StatusNormal},
		{70, StatusNormal},
		{82, StatusWarning},
		{60, StatusWarning},
		{85, StatusCritical},
		{120, StatusCritical},
	}
	for _, tc := range cases {
		if got := cfg.Classify(tc.value); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestDecisionPredictionFor(t *testing.T) {
	d := Decision{Predictions: []ActionPrediction{
		{Action: NoAction, Prediction: Prediction{PredictedReward: 1, Confidence: 0.5}},
		{Action: ScheduleMaintenance, Prediction: Prediction{PredictedReward: 3, Confidence: 0.25}},
	}}
	if p, ok := d.PredictionFor(ScheduleMaintenance); !ok || p.PredictedReward != 3 {
		t.Fatalf("unexpected prediction %+v, %v", p, ok)
	}
	if _, ok := d.PredictionFor(EmergencyShutdown); ok {
		t.Fatalf("expected no prediction for an action that was not considered")
	}
}

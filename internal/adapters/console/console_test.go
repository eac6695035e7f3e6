package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

func TestDashboardRendersTick(t *testing.T) {
	var buf bytes.Buffer
	d := NewDashboard(&buf, domain.DefaultChannels())

	tick := domain.TickReport{
		Reading: domain.Reading{Values: [domain.ChannelCount]float64{91.5, 1.0, 100}},
		Health: domain.Health{
			{Status: domain.StatusCritical}, {Status: domain.StatusNormal}, {Status: domain.StatusNormal},
		},
		Decision: domain.Decision{
			Action:   domain.EmergencyShutdown,
			Severity: domain.SeverityWarning,
			Score:    3,
			Override: true,
		},
		Outcome:  domain.Outcome{Success: true},
		Reward:   -5,
		Recorded: true,
	}
	d.OnTick(tick)

	out := buf.String()
	for _, want := range []string{"temperature", "91.50", "CRITICAL", "emergency_shutdown", "safety override", "score 3", "reward -5.0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in dashboard output:\n%s", want, out)
		}
	}
}

func TestRenderListsPredictions(t *testing.T) {
	out := Render(domain.TickReport{
		Decision: domain.Decision{
			Action: domain.ScheduleMaintenance,
			Predictions: []domain.ActionPrediction{
				{Action: domain.ScheduleMaintenance, Prediction: domain.Prediction{PredictedReward: 3, Confidence: 0.5}},
			},
		},
	}, [domain.ChannelCount]string{})
	if !strings.Contains(out, "schedule_maintenance=3.00@50%") {
		t.Fatalf("expected prediction in output:\n%s", out)
	}
	if !strings.Contains(out, "not recorded") || !strings.Contains(out, "failed") {
		t.Fatalf("expected failed unrecorded outcome:\n%s", out)
	}
}

package effector

import (
	"context"
	"errors"
	"testing"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

func TestSimulatedNeverFailsAtZeroRate(t *testing.T) {
	eff, err := NewSimulated(0, 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, a := range domain.Actions() {
		out, err := eff.Execute(context.Background(), a, domain.Reading{})
		if err != nil || !out.Success || out.Effect == "" {
			t.Fatalf("%s: unexpected outcome %+v err=%v", a, out, err)
		}
	}
}

func TestSimulatedAlwaysFailsAtFullRate(t *testing.T) {
	eff, _ := NewSimulated(1, 1)
	out, err := eff.Execute(context.Background(), domain.ScheduleMaintenance, domain.Reading{})
	if err != nil || out.Success {
		t.Fatalf("expected failed outcome, got %+v err=%v", out, err)
	}
}

func TestSimulatedFailureRateIsRoughlyHonoured(t *testing.T) {
	eff, _ := NewSimulated(0.25, 99)
	failures := 0
	for range 4000 {
		out, _ := eff.Execute(context.Background(), domain.NoAction, domain.Reading{})
		if !out.Success {
			failures++
		}
	}
	if failures < 800 || failures > 1200 {
		t.Fatalf("expected about 1000 failures, got %d", failures)
	}
}

func TestSimulatedRejectsBadInput(t *testing.T) {
	if _, err := NewSimulated(1.5, 1); err == nil {
		t.Fatalf("expected invalid failure rate error")
	}
	eff, _ := NewSimulated(0, 1)
	if _, err := eff.Execute(context.Background(), domain.Action(42), domain.Reading{}); !errors.Is(err, domain.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eff.Execute(ctx, domain.NoAction, domain.Reading{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

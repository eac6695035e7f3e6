package scenario

import (
	"errors"
	"testing"
	"time"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/telemetry"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestUnknownScenario(t *testing.T) {
	if _, err := Generate("meltdown", WithSeed(1)); !errors.Is(err, ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestEveryScenarioHasFixedStep(t *testing.T) {
	for _, name := range Names() {
		trace, err := Generate(name, WithSeed(7), WithStart(start), WithDuration(2*time.Hour))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(trace) != 120 {
			t.Fatalf("%s: expected 120 readings, got %d", name, len(trace))
		}
		for i, r := range trace {
			if want := start.Add(time.Duration(i) * time.Minute); !r.Timestamp.Equal(want) {
				t.Fatalf("%s: reading %d at %v, expected %v", name, i, r.Timestamp, want)
			}
		}
	}
	if len(Names()) != 5 {
		t.Fatalf("expected 5 scenarios, got %v", Names())
	}
}

func TestSeedIsReproducible(t *testing.T) {
	a, _ := Generate(SuddenFailure, WithSeed(42), WithStart(start), WithDuration(time.Hour))
	b, _ := Generate(SuddenFailure, WithSeed(42), WithStart(start), WithDuration(time.Hour))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("reading %d differs between identical seeds", i)
		}
	}
}

func TestSuddenFailureTurnsCritical(t *testing.T) {
	trace, err := Generate(SuddenFailure, WithSeed(3), WithStart(start), WithDuration(10*time.Hour))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	cls, err := telemetry.NewClassifier(domain.DefaultChannels())
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}

	failure := len(trace) * 7 / 10
	critical := 0
	for _, r := range trace[failure:] {
		if cls.Classify(r)[domain.Vibration].Status == domain.StatusCritical {
			critical++
		}
	}
	if critical < (len(trace)-failure)*9/10 {
		t.Fatalf("expected vibration to be critical after the failure point, got %d of %d", critical, len(trace)-failure)
	}

	var before float64
	for _, r := range trace[:failure] {
		before += r.Value(domain.Temperature)
	}
	if mean := before / float64(failure); mean < 73 || mean > 77 {
		t.Fatalf("expected healthy temperature before failure, got mean %v", mean)
	}
}

func TestGradualDegradationDrifts(t *testing.T) {
	trace, err := Generate(GradualDegradation, WithSeed(5), WithStart(start))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	head, tail := mean(trace[:60], domain.Temperature), mean(trace[len(trace)-60:], domain.Temperature)
	if tail-head < 12 {
		t.Fatalf("expected temperature to climb about 15 degrees, got %v -> %v", head, tail)
	}
}

func TestSourceClosesWhenExhausted(t *testing.T) {
	trace, _ := Generate(NormalOperation, WithSeed(1), WithStart(start), WithDuration(5*time.Minute))
	src := NewSource(trace, 0)
	out := make(chan domain.Reading)
	if err := src.Start(out); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := src.Start(out); err == nil {
		t.Fatalf("expected second start to fail")
	}

	var got []domain.Reading
	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case r, ok := <-out:
			if !ok {
				done = true
				break
			}
			got = append(got, r)
		case <-timeout:
			t.Fatalf("source did not close its channel")
		}
	}
	if len(got) != len(trace) {
		t.Fatalf("expected %d readings, got %d", len(trace), len(got))
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSourceStopsEarly(t *testing.T) {
	trace, _ := Generate(NormalOperation, WithSeed(1), WithStart(start), WithDuration(time.Hour))
	src := NewSource(trace, time.Hour)
	out := make(chan domain.Reading, 1)
	if err := src.Start(out); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-out
	if err := src.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func mean(rs []domain.Reading, ch domain.Channel) float64 {
	var sum float64
	for _, r := range rs {
		sum += r.Value(ch)
	}
	return sum / float64(len(rs))
}

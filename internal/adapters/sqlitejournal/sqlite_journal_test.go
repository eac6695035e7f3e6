package sqlitejournal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/experience"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

func tempJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiences.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j, path
}

func experiences() []domain.Experience {
	ts := time.Date(2026, 5, 6, 7, 8, 9, 123456789, time.UTC)
	var out []domain.Experience
	for i, a := range []domain.Action{domain.IncreaseMonitoring, domain.EmergencyShutdown, domain.IncreaseMonitoring} {
		out = append(out, domain.Experience{
			Seq:       uint64(i + 1),
			Timestamp: ts.Add(time.Duration(i) * time.Minute),
			State:     domain.Reading{Timestamp: ts}.With(domain.Pressure, 108.25+float64(i)),
			Action:    a,
			Outcome:   domain.Outcome{Success: true, Effect: "ok"},
			Reward:    -10 + float64(i)*0.1,
		})
	}
	return out
}

func TestRoundTripAcrossReopen(t *testing.T) {
	j, path := tempJournal(t)
	in := experiences()
	for _, e := range in {
		if _, err := j.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	if st := j2.Stats(); st.Entries != 3 || st.LatestAppended != 3 || st.SizeBytes == 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	var ids []ports.EntryID
	var out []domain.Experience
	if err := j2.Iterate(1, func(id ports.EntryID, e domain.Experience) error {
		ids = append(ids, id)
		out = append(out, e)
		return nil
	}); err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d rows, got %d", len(in), len(out))
	}
	for i := range in {
		if ids[i] != ports.EntryID(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, ids[i])
		}
		if !out[i].Timestamp.Equal(in[i].Timestamp) || out[i].Action != in[i].Action ||
			out[i].Reward != in[i].Reward || out[i].State.Values != in[i].State.Values || out[i].Seq != in[i].Seq {
			t.Fatalf("row %d differs:\n got %+v\nwant %+v", i, out[i], in[i])
		}
	}

	id, err := j2.Append(in[0])
	if err != nil || id != 4 {
		t.Fatalf("append after reopen: id=%d err=%v", id, err)
	}
}

func TestReplayRebuildsStore(t *testing.T) {
	j, _ := tempJournal(t)
	for _, e := range experiences() {
		if _, err := j.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	store := experience.NewStore()
	if _, err := store.Replay(j); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	pred, err := store.Predict(domain.Reading{}, domain.EmergencyShutdown)
	if err != nil || pred == nil {
		t.Fatalf("expected prediction, got %v %v", pred, err)
	}
	if want := experiences()[1].Reward; pred.PredictedReward != want {
		t.Fatalf("expected %v, got %v", want, pred.PredictedReward)
	}
}

func TestIterateFromSkipsEarlierRows(t *testing.T) {
	j, _ := tempJournal(t)
	for _, e := range experiences() {
		if _, err := j.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	var n int
	if err := j.Iterate(2, func(ports.EntryID, domain.Experience) error { n++; return nil }); err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

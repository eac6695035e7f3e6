// Package sink exports decisions to PostgreSQL/TimescaleDB.
package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

const decisionColumns = 9

// TimescaleSink inserts decision batches in one statement. Decision IDs make
// re-exports idempotent.
type TimescaleSink struct {
	db    *sql.DB
	table string
}

// Open connects to Postgres through lib/pq.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	if table == "" {
		table = "maintenance_decisions"
	}
	return &TimescaleSink{db: db, table: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

// EnsureSchema creates the decisions table when missing.
func (t *TimescaleSink) EnsureSchema() error {
	_, err := t.db.Exec(`CREATE TABLE IF NOT EXISTS ` + t.table + ` (
	id              TEXT PRIMARY KEY,
	ts              TIMESTAMPTZ NOT NULL,
	action          TEXT NOT NULL,
	severity        TEXT NOT NULL,
	severity_score  INTEGER NOT NULL,
	safety_override BOOLEAN NOT NULL,
	state           JSONB NOT NULL,
	health          JSONB NOT NULL,
	predictions     JSONB NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", t.table, err)
	}
	return nil
}

func (t *TimescaleSink) WriteBatch(decisions []domain.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.table)
	b.WriteString(" (id, ts, action, severity, severity_score, safety_override, state, health, predictions) VALUES ")

	args := make([]any, 0, len(decisions)*decisionColumns)
	for i, d := range decisions {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for c := 1; c <= decisionColumns; c++ {
			if c > 1 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", len(args)+c)
		}
		b.WriteString(")")

		state, err := json.Marshal(d.State)
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		health, err := json.Marshal(d.Health)
		if err != nil {
			return fmt.Errorf("marshal health: %w", err)
		}
		preds, err := json.Marshal(d.Predictions)
		if err != nil {
			return fmt.Errorf("marshal predictions: %w", err)
		}

		args = append(args,
			d.ID,
			d.Timestamp,
			d.Action.String(),
			d.Severity.String(),
			d.Score,
			d.Override,
			state,
			health,
			preds,
		)
	}

	b.WriteString(" ON CONFLICT (id) DO NOTHING")

	if _, err := t.db.Exec(b.String(), args...); err != nil {
		return fmt.Errorf("insert %d decisions: %w", len(decisions), err)
	}
	return nil
}

var _ ports.DecisionSink = (*TimescaleSink)(nil)

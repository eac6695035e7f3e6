// Package sqlitejournal persists experiences in a SQLite database.
package sqlitejournal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS experiences (
	id          INTEGER PRIMARY KEY,
	recorded_at TEXT NOT NULL,
	action      TEXT NOT NULL,
	reward      REAL NOT NULL,
	payload     TEXT NOT NULL
);
`

// Journal keeps one row per experience. Row ids are the journal entry ids,
// so iteration in id order is append order.
type Journal struct {
	db *sql.DB

	mu        sync.Mutex
	lastID    ports.EntryID
	entries   uint64
	sizeBytes int64
}

// Open opens (or creates) the database at path and runs the migration.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	j := &Journal{db: db}
	var last sql.NullInt64
	if err := db.QueryRow(
		`SELECT MAX(id), COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM experiences`,
	).Scan(&last, &j.entries, &j.sizeBytes); err != nil {
		db.Close()
		return nil, fmt.Errorf("load stats: %w", err)
	}
	if last.Valid {
		j.lastID = ports.EntryID(last.Int64)
	}
	return j, nil
}

func (j *Journal) Append(e domain.Experience) (ports.EntryID, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("marshal experience: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.lastID + 1
	_, err = j.db.Exec(
		`INSERT INTO experiences (id, recorded_at, action, reward, payload) VALUES (?, ?, ?, ?, ?)`,
		int64(id), e.Timestamp.UTC().Format(time.RFC3339Nano), e.Action.String(), e.Reward, string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("insert experience: %w", err)
	}
	j.lastID = id
	j.entries++
	j.sizeBytes += int64(len(payload))
	return id, nil
}

func (j *Journal) Iterate(from ports.EntryID, fn func(id ports.EntryID, e domain.Experience) error) error {
	rows, err := j.db.Query(`SELECT id, payload FROM experiences WHERE id >= ? ORDER BY id`, int64(from))
	if err != nil {
		return fmt.Errorf("query experiences: %w", err)
	}
	defer rows.Close()

	// Rows are decoded up front so fn may call back into the journal.
	type row struct {
		id ports.EntryID
		e  domain.Experience
	}
	var batch []row
	for rows.Next() {
		var (
			id      int64
			payload string
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return fmt.Errorf("scan experience: %w", err)
		}
		var e domain.Experience
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return fmt.Errorf("corrupt experience %d: %w", id, err)
		}
		batch = append(batch, row{id: ports.EntryID(id), e: e})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, r := range batch {
		if err := fn(r.id, r.e); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{
		Entries:        j.entries,
		LatestAppended: j.lastID,
		SizeBytes:      j.sizeBytes,
	}
}

func (j *Journal) Close() error {
	return j.db.Close()
}

var _ ports.ExperienceJournal = (*Journal)(nil)

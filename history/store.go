// Package history persists the per-run evaluation log that backs the
// get_history/history protocol tags.
//
// SQLite keeps the log durable across runs; within a run the table is
// append-only, since simulation ids are assigned once and never reused.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ensemble-sim/ensemble-sim/comms"
)

// Store manages the SQLite evaluation log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database and initializes the schema. Pass
// ":memory:" for an ephemeral in-process store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: the manager is the only writer, and ":memory:"
	// databases exist per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		sim_id      INTEGER PRIMARY KEY,
		status      TEXT NOT NULL,
		payload     TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Entry is one persisted evaluation row.
type Entry struct {
	SimID   int
	Status  string
	Payload comms.Record
}

// Append records the terminal outcome of one simulation. Ids are unique
// within a run; appending the same id twice is an error.
func (s *Store) Append(simID int, status string, payload comms.Record) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.Exec(
		`INSERT INTO evaluations (sim_id, status, payload, recorded_at) VALUES (?, ?, ?, ?)`,
		simID, status, string(body), now,
	)
	if err != nil {
		return fmt.Errorf("insert sim %d: %w", simID, err)
	}
	return nil
}

// Get returns the entry for one simulation id, or sql.ErrNoRows.
func (s *Store) Get(simID int) (Entry, error) {
	var e Entry
	var body string
	row := s.db.QueryRow(`SELECT sim_id, status, payload FROM evaluations WHERE sim_id = ?`, simID)
	if err := row.Scan(&e.SimID, &e.Status, &body); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(body), &e.Payload); err != nil {
		return Entry{}, fmt.Errorf("unmarshal sim %d payload: %w", simID, err)
	}
	return e, nil
}

// Range returns the payloads of evaluations with sim_id in [lo, hi), in id
// order. Ids without a persisted terminal outcome are skipped.
func (s *Store) Range(lo, hi int) ([]comms.Record, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM evaluations WHERE sim_id >= ? AND sim_id < ? ORDER BY sim_id`,
		lo, hi,
	)
	if err != nil {
		return nil, fmt.Errorf("query range [%d, %d): %w", lo, hi, err)
	}
	defer rows.Close()

	var recs []comms.Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var rec comms.Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Count returns the number of persisted evaluations.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM evaluations`).Scan(&n)
	return n, err
}

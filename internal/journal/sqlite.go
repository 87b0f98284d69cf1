package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"modulehost/internal/clock"
)

// SQLite stores events in a SQLite database.
type SQLite struct {
	db    *sql.DB
	clock clock.Clock
}

// OpenSQLite opens (and migrates) the journal database at dsn.
func OpenSQLite(dsn string, c clock.Clock) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if c == nil {
		c = clock.Real{}
	}
	s := &SQLite{db: db, clock: c}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal database: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS user_events (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  recorded_at DATETIME NOT NULL,
  event       TEXT NOT NULL
);
`
	_, err := s.db.Exec(ddl)
	return err
}

// Record inserts one event.
func (s *SQLite) Record(event string) error {
	_, err := s.db.Exec(`INSERT INTO user_events(recorded_at, event) VALUES(?, ?)`,
		s.clock.Now().UTC(), event)
	if err != nil {
		return fmt.Errorf("insert user event: %w", err)
	}
	return nil
}

// Entries returns up to limit events, oldest first. limit <= 0 returns all.
func (s *SQLite) Entries(limit int) ([]Entry, error) {
	query := `SELECT recorded_at, event FROM (
  SELECT id, recorded_at, event FROM user_events ORDER BY id DESC LIMIT ?
) ORDER BY id ASC`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("query user events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			at    time.Time
			event string
		)
		if err := rows.Scan(&at, &event); err != nil {
			return nil, fmt.Errorf("scan user event: %w", err)
		}
		entries = append(entries, Entry{Time: at, Event: event})
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

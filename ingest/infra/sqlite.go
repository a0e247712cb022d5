package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sheetsync-bridge/ingest/domain"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  spreadsheet_id TEXT,
  sheet_name TEXT,
  row_index INTEGER,
  row_hash TEXT,
  hubspot_id TEXT,
  action TEXT,
  detail TEXT,
  ts DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_dedupe
  ON events (spreadsheet_id, sheet_name, row_index, row_hash);
`

// SQLiteEventStore implements domain.EventStore on a SQLite database file.
//
// A single file is enough here: the bridge is a single process and the
// event volume is one insert per ingested row.
type SQLiteEventStore struct {
	db *sql.DB
}

// OpenEventStore opens (and if needed creates) the database at path and
// ensures the schema exists.
func OpenEventStore(path string) (*SQLiteEventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// The driver is in-process; a single connection avoids SQLITE_BUSY
	// between concurrent request handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(eventsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &SQLiteEventStore{db: db}, nil
}

func (s *SQLiteEventStore) Close() error {
	return s.db.Close()
}

// AlreadyProcessed implements domain.EventStore.
func (s *SQLiteEventStore) AlreadyProcessed(ctx context.Context, spreadsheetID, sheetName string, rowIndex int, rowHash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM events WHERE spreadsheet_id=? AND sheet_name=? AND row_index=? AND row_hash=? LIMIT 1`,
		spreadsheetID, sheetName, rowIndex, rowHash,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Log implements domain.EventStore.
func (s *SQLiteEventStore) Log(ctx context.Context, ev domain.Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (spreadsheet_id, sheet_name, row_index, row_hash, hubspot_id, action, detail, ts)
		 VALUES (?,?,?,?,?,?,?,?)`,
		ev.SpreadsheetID, ev.SheetName, ev.RowIndex, ev.RowHash, ev.HubSpotID, string(ev.Action), ev.Detail,
		at.UTC().Format(timeLayout),
	)
	return err
}

// Recent implements domain.EventStore. Events come back newest first.
func (s *SQLiteEventStore) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT spreadsheet_id, sheet_name, row_index, row_hash, hubspot_id, action, detail, ts
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var ev domain.Event
		var action, ts string
		if err := rows.Scan(&ev.SpreadsheetID, &ev.SheetName, &ev.RowIndex, &ev.RowHash,
			&ev.HubSpotID, &action, &ev.Detail, &ts); err != nil {
			return nil, err
		}
		ev.Action = domain.Outcome(action)
		if t, err := time.Parse(timeLayout, ts); err == nil {
			ev.At = t
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

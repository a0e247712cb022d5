package domain

import (
	"context"
	"time"
)

// Outcome classifies what happened to one ingested row.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
)

// Event is one entry in the audit log. RowHash ties the entry to the exact
// row content it was produced from, which is what the duplicate check keys
// on.
type Event struct {
	SpreadsheetID string
	SheetName     string
	RowIndex      int
	RowHash       string
	HubSpotID     string
	Action        Outcome
	Detail        string
	At            time.Time
}

// EventStore persists the audit log and answers the idempotency question.
//
// Implementations may store in SQLite, Postgres, memory, etc.
type EventStore interface {
	// AlreadyProcessed reports whether an event with the exact same
	// (spreadsheet, sheet, row index, row hash) tuple was logged before.
	AlreadyProcessed(ctx context.Context, spreadsheetID, sheetName string, rowIndex int, rowHash string) (bool, error)

	// Log appends one event. At may be zero; stores fill in now.
	Log(ctx context.Context, ev Event) error

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]Event, error)
}

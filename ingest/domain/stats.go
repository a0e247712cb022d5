package domain

import (
	"context"
	"time"
)

// SyncEvent represents one sync outcome for stats purposes.
//
// It is deliberately transport-agnostic: the same event shape works whether
// rows arrive over HTTP, from the watcher, or from a future batch import.
//
// Note: careful with cardinality — recording per-spreadsheet series without
// control can blow up the number of keys in a store like Redis.
type SyncEvent struct {
	SpreadsheetID string
	SheetName     string
	Outcome       Outcome
	At            time.Time
}

// SyncStats is the persistence strategy for sync outcome counters.
//
// Implementations may store in Redis, memory, etc. Callers must treat
// errors as best-effort: a stats failure never fails the ingest.
type SyncStats interface {
	Record(ctx context.Context, ev SyncEvent) error
}

package infra

import (
	"context"
	"sync"

	"sheetsync-bridge/ingest/domain"
)

// MemorySyncStats is a simple in-memory domain.SyncStats.
// Useful for tests and development.
//
// It never expires entries and is not meant for production.
type MemorySyncStats struct {
	mu      sync.Mutex
	total   map[domain.Outcome]int64
	bySheet map[string]map[domain.Outcome]int64

	trackSheets bool
}

type MemorySyncStatsOption func(*MemorySyncStats)

func WithTrackSheets(track bool) MemorySyncStatsOption {
	return func(s *MemorySyncStats) { s.trackSheets = track }
}

func NewMemorySyncStats(opts ...MemorySyncStatsOption) *MemorySyncStats {
	s := &MemorySyncStats{
		total:   make(map[domain.Outcome]int64),
		bySheet: make(map[string]map[domain.Outcome]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implements domain.SyncStats.
func (s *MemorySyncStats) Record(_ context.Context, ev domain.SyncEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	if s.trackSheets && ev.SpreadsheetID != "" {
		m := s.bySheet[ev.SpreadsheetID]
		if m == nil {
			m = make(map[domain.Outcome]int64)
			s.bySheet[ev.SpreadsheetID] = m
		}
		m[ev.Outcome]++
	}
	return nil
}

// Total returns a copy of the cumulative counters.
func (s *MemorySyncStats) Total() map[domain.Outcome]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Outcome]int64, len(s.total))
	for k, v := range s.total {
		out[k] = v
	}
	return out
}

// BySheet returns a copy of the per-spreadsheet counters.
func (s *MemorySyncStats) BySheet() map[string]map[domain.Outcome]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[domain.Outcome]int64, len(s.bySheet))
	for id, m := range s.bySheet {
		c := make(map[domain.Outcome]int64, len(m))
		for k, v := range m {
			c[k] = v
		}
		out[id] = c
	}
	return out
}

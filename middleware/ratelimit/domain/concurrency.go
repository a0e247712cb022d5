package domain

import "context"

// SlotPool represents a resource with finite capacity (here: in-flight
// ingest requests).
//
// Semantics: Acquire blocks until a slot frees up or ctx ends. On success
// it returns a release function that must be called exactly once.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

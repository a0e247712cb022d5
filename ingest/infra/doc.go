// Package infra contains the concrete implementations of the ingest
// domain contracts.
//
// Examples:
//   - SQLiteEventStore: audit log and idempotency index in a SQLite file
//   - RedisSyncStats: sync outcome counters in Redis (pipelined HINCRBY)
//   - MemorySyncStats: in-memory counters for tests and development
package infra

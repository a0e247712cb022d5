// Package ratelimit provides the net/http middleware that guards the
// ingest endpoint against misbehaving bridge clients.
//
// Overview (layers):
//
//   - domain: contracts and types (no net/http dependency)
//   - application: use cases (allow/deny decision, acquire with timeout)
//   - infra: concrete implementations (token bucket, channel semaphore)
//   - ratelimit (this package): HTTP middleware + key extraction +
//     translation into status codes and headers
//
// Flow on the guarded route:
//
//  1. Extract the client key (header, trusted X-Forwarded-For, or IP)
//  2. Ask the application layer for a decision
//  3. On deny, respond 429 (rate) or 503 (concurrency)
//  4. On allow, call the next handler (the ingest endpoint)
//
// The RATE_* and CONCURRENCY_* environment variables of cmd/api control
// the behavior.
package ratelimit

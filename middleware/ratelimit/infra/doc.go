// Package infra contains the concrete implementations for the contracts
// defined in the domain package.
//
// Examples:
//   - Store: per-key token bucket using golang.org/x/time/rate
//   - ChanPool: simple channel semaphore for the concurrency cap
package infra

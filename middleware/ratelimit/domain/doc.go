// Package domain defines the contracts and types for rate limiting and
// concurrency capping.
//
// This package depends neither on net/http nor on concrete
// implementations, so the rules stay unit-testable in isolation.
package domain

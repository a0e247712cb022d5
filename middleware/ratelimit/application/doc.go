// Package application contains the use cases for rate limiting and
// concurrency capping.
//
// It depends only on the domain package and knows nothing about net/http.
// E.g. Service.Decide(key) returns a Decision (allow/deny + retry-after).
package application

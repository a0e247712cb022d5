// Package ingest provides the HTTP adapter for the sheet sync bridge.
//
// Overview (layers):
//
//   - domain: contracts and types (no net/http dependency)
//   - application: the ingest use case (dedupe, map, upsert, audit)
//   - infra: concrete stores (SQLite audit log, Redis/memory stats)
//   - ingest (this package): HTTP handlers + secret check + translation
//     of results and errors into status codes and JSON bodies
//
// Flow for one row:
//
//  1. Check the X-Bridge-Secret header
//  2. Decode the row payload
//  3. Call the application layer for a decision
//  4. Translate the decision (duplicate/skipped/upserted) or the error
//     (bad config → 400, upstream CRM failure → 502) into a response
package ingest

// Package application contains the ingest use case: deciding what to do
// with one spreadsheet row.
//
// It depends only on the domain package and knows nothing about net/http.
// Service.Process(row) returns a Result (duplicate/skipped/upserted) and
// writes the audit trail along the way.
package application

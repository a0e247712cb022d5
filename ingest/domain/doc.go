// Package domain defines the contracts and types for spreadsheet row
// ingestion.
//
// This package depends neither on net/http nor on concrete storage or CRM
// implementations. The intent is to allow pure unit tests and to keep the
// sync rules decoupled from infrastructure details.
package domain

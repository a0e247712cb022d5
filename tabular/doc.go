// Package tabular reads spreadsheet-shaped files (CSV and XLSX) into a
// uniform header-plus-rows table.
//
// The upload endpoint and the desktop watcher both parse through here, so
// they agree on what a "row" is.
package tabular

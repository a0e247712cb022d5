// Package watcher implements the desktop bridge agent: it watches one
// CSV/XLSX file and pushes its rows to the ingest API whenever the file
// changes.
//
// Desktop spreadsheet apps make this harder than it sounds: Excel holds
// exclusive locks on open workbooks and editors save through
// write-rename dances. The watcher therefore debounces change bursts,
// waits for the file size to stabilize, and reads from a temporary copy
// placed next to the source instead of the source itself.
package watcher

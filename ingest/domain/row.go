package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Row is one spreadsheet row as delivered by a bridge client (the Apps
// Script sidebar or the desktop watcher).
//
// Mapping, when present, is an explicit contact-property-to-header map
// chosen by the user; when absent the header alias heuristics apply.
type Row struct {
	SpreadsheetID string
	SheetName     string
	RowIndex      int
	Headers       []string
	Values        []string
	Mapping       map[string]string
}

// Hash fingerprints the row content for idempotency checks.
func (r Row) Hash() string {
	return RowHash(r.Headers, r.Values)
}

// RowHash is sha256 over the headers joined by "|" followed by the values
// joined by "|". Two rows with the same headers and values always collide,
// which is exactly what makes resends deduplicable.
func RowHash(headers, values []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(headers, "|")))
	h.Write([]byte(strings.Join(values, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

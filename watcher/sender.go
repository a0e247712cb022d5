package watcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"sheetsync-bridge/tabular"
)

// Sender posts parsed rows to the bridge ingest endpoint.
type Sender struct {
	// APIURL is the full /ingest/rows URL.
	APIURL string

	// Secret goes out in the X-Bridge-Secret header.
	Secret string

	// SpreadsheetID and SheetName label the rows in the audit log.
	// The desktop agent has no real spreadsheet id, so a stable marker
	// like "excel-desktop" is used.
	SpreadsheetID string
	SheetName     string

	HTTP *http.Client
}

type rowPayload struct {
	SpreadsheetID string   `json:"spreadsheetId"`
	SheetName     string   `json:"sheetName"`
	RowIndex      int      `json:"rowIndex"`
	Headers       []string `json:"headers"`
	Values        []string `json:"values"`
}

// SendTable posts every data row, one request per row so the server-side
// dedupe keys stay per-row. Per-row failures are logged and skipped; the
// last error is returned so callers can tell a fully failed run apart
// from a partial one.
func (s *Sender) SendTable(ctx context.Context, table *tabular.Table) error {
	if table == nil || len(table.Rows) == 0 {
		log.Printf("no rows to send")
		return nil
	}

	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	var lastErr error
	sent := 0
	for i, row := range table.Rows {
		if err := s.sendRow(ctx, client, table.Headers, row, i); err != nil {
			log.Printf("row %d failed: %v", i, err)
			lastErr = err
			continue
		}
		sent++
	}

	log.Printf("sent %d/%d rows to %s", sent, len(table.Rows), s.APIURL)
	return lastErr
}

func (s *Sender) sendRow(ctx context.Context, client *http.Client, headers, values []string, index int) error {
	payload, err := json.Marshal(rowPayload{
		SpreadsheetID: s.SpreadsheetID,
		SheetName:     s.SheetName,
		RowIndex:      index,
		Headers:       headers,
		Values:        values,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Bridge-Secret", s.Secret)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("POST %s: status %d: %s", s.APIURL, resp.StatusCode, bytes.TrimSpace(body))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"sheetsync-bridge/hubspot"
	"sheetsync-bridge/ingest/application"
	"sheetsync-bridge/ingest/domain"
	"sheetsync-bridge/tabular"
)

const (
	// SecretHeader carries the shared secret that authenticates bridge
	// clients (the Apps Script sidebar and the desktop watcher).
	SecretHeader = "X-Bridge-Secret"

	defaultLogLimit = 30
	maxLogLimit     = 500

	maxUploadBytes     = 32 << 20
	mappingSampleBytes = 120
)

// Options configures the HTTP adapter.
type Options struct {
	Service application.Service

	// Secret is the value every /ingest/rows request must present in the
	// X-Bridge-Secret header.
	Secret string

	// TokenConfigured feeds /env-check so the sidebar can tell the user
	// the CRM token is missing before they try a sync.
	TokenConfigured bool

	// Guard, when set, wraps the ingest route only (rate limit and
	// concurrency cap). The read-only routes stay unguarded.
	Guard func(http.Handler) http.Handler
}

// Handler serves the bridge API.
type Handler struct {
	svc             application.Service
	secret          string
	tokenConfigured bool
	guard           func(http.Handler) http.Handler
}

func NewHandler(opts Options) *Handler {
	guard := opts.Guard
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		svc:             opts.Service,
		secret:          opts.Secret,
		tokenConfigured: opts.TokenConfigured,
		guard:           guard,
	}
}

// Register mounts all routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.home)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /env-check", h.envCheck)
	mux.HandleFunc("GET /logs/recent", h.logsRecent)
	mux.HandleFunc("POST /preview", h.preview)
	mux.HandleFunc("POST /upload", h.upload)
	mux.Handle("POST /ingest/rows", h.guard(http.HandlerFunc(h.ingestRows)))
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "sheetsync bridge running"})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) envCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"has_hubspot_token": h.tokenConfigured,
		"has_bridge_secret": h.secret != "",
	})
}

func (h *Handler) logsRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	events, err := h.svc.Store.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
		return
	}

	type eventJSON struct {
		SpreadsheetID string `json:"spreadsheet_id"`
		SheetName     string `json:"sheet_name"`
		RowIndex      int    `json:"row_index"`
		HubSpotID     string `json:"hubspot_id"`
		Action        string `json:"action"`
		Detail        string `json:"detail"`
		TS            string `json:"ts"`
	}
	out := make([]eventJSON, 0, len(events))
	for _, ev := range events {
		out = append(out, eventJSON{
			SpreadsheetID: ev.SpreadsheetID,
			SheetName:     ev.SheetName,
			RowIndex:      ev.RowIndex,
			HubSpotID:     ev.HubSpotID,
			Action:        string(ev.Action),
			Detail:        ev.Detail,
			TS:            ev.At.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "events": out})
}

// preview echoes what the sidebar is about to send. Handy for manual tests.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file field is required"})
		return
	}
	defer file.Close()

	mapping, ok := multipartField(r, "mapping")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "mapping field is required"})
		return
	}

	n, err := io.Copy(io.Discard, file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("error reading file: %v", err)})
		return
	}

	if len(mapping) > mappingSampleBytes {
		mapping = mapping[:mappingSampleBytes]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"filename":       header.Filename,
		"bytes":          n,
		"mapping_sample": mapping,
	})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file field is required"})
		return
	}
	defer file.Close()

	if _, ok := multipartField(r, "mapping"); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "mapping field is required"})
		return
	}

	table, err := tabular.Read(header.Filename, file)
	if errors.Is(err, tabular.ErrUnsupportedType) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Unsupported file type"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("Error reading file: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename": header.Filename,
		"preview":  map[string]any{"columns": table.Headers},
	})
}

// rowPayload matches the JSON the Apps Script bridge and the watcher send.
// Values may contain nulls for empty cells.
type rowPayload struct {
	SpreadsheetID string            `json:"spreadsheetId"`
	SheetName     string            `json:"sheetName"`
	RowIndex      int               `json:"rowIndex"`
	Headers       []string          `json:"headers"`
	Values        []*string         `json:"values"`
	Mapping       map[string]string `json:"mapping"`
}

func (h *Handler) ingestRows(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(SecretHeader) != h.secret {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid secret"})
		return
	}

	var payload rowPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid JSON payload"})
		return
	}

	values := make([]string, len(payload.Values))
	for i, v := range payload.Values {
		if v != nil {
			values[i] = *v
		}
	}

	row := domain.Row{
		SpreadsheetID: payload.SpreadsheetID,
		SheetName:     payload.SheetName,
		RowIndex:      payload.RowIndex,
		Headers:       payload.Headers,
		Values:        values,
		Mapping:       payload.Mapping,
	}

	result, err := h.svc.Process(r.Context(), row)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, hubspot.ErrNoToken):
			status = http.StatusBadRequest
		case errors.Is(err, hubspot.ErrUpstream):
			status = http.StatusBadGateway
		}
		log.Printf("ingest: row %s/%s#%d failed: %v", row.SpreadsheetID, row.SheetName, row.RowIndex, err)
		writeJSON(w, status, map[string]any{"detail": err.Error()})
		return
	}

	switch {
	case result.Duplicate:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "duplicate": true})
	case result.Skipped:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "skipped": true, "reason": result.Reason})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "upsert": upsertJSON(result.Upsert)})
	}
}

func upsertJSON(res domain.UpsertResult) map[string]any {
	out := map[string]any{}
	switch {
	case res.Created:
		out["created"] = true
		out["id"] = res.ID
	case res.Updated:
		out["updated"] = true
		out["id"] = res.ID
	case res.Skipped:
		out["skipped"] = true
		out["reason"] = res.Reason
	}
	return out
}

// multipartField reads a non-file form field, telling a missing field
// apart from one sent empty.
func multipartField(r *http.Request, name string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	vals, ok := r.MultipartForm.Value[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("ingest: write response: %v", err)
	}
}

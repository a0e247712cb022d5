package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newHandler(opts Options) http.Handler {
	return Middleware(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAllowedOriginGetsHeaders(t *testing.T) {
	h := newHandler(Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
	})

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Allow-Origin = %q, want the request origin", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("Allow-Credentials = %q, want true", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Fatalf("Vary = %q, want Origin", got)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestDisallowedOriginGetsNoHeaders(t *testing.T) {
	h := newHandler(Options{AllowedOrigins: []string{"http://localhost:3000"}})

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Allow-Origin = %q, want empty for a disallowed origin", got)
	}
	// The request itself still goes through; CORS is a browser contract.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	h := newHandler(Options{AllowedOrigins: []string{"http://localhost:3000"}})

	r := httptest.NewRequest(http.MethodOptions, "/ingest/rows", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Headers", "content-type, x-bridge-secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "content-type, x-bridge-secret" {
		t.Fatalf("Allow-Headers = %q, want the requested headers echoed", got)
	}
}

func TestPreflightDefaultAllowHeaders(t *testing.T) {
	h := newHandler(Options{AllowedOrigins: []string{"http://localhost:3000"}})

	r := httptest.NewRequest(http.MethodOptions, "/ingest/rows", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Bridge-Secret" {
		t.Fatalf("Allow-Headers = %q, want the default set", got)
	}
}

func TestNoOriginHeaderPassesThrough(t *testing.T) {
	h := newHandler(Options{AllowedOrigins: []string{"http://localhost:3000"}})

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Allow-Origin = %q, want empty without an Origin header", got)
	}
}

// Package cors implements the small CORS policy the bridge needs: the
// sidebar frontend runs on localhost:3000 during development and must be
// able to call the API with credentials.
package cors

import "net/http"

type Options struct {
	// AllowedOrigins is the exact-match origin allowlist.
	AllowedOrigins []string

	AllowCredentials bool
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := allowed[origin]; ok {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Vary", "Origin")
					if opts.AllowCredentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
					// "*" is ignored by browsers when credentials are on,
					// so echo whatever the preflight asked for.
					if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
						h.Set("Access-Control-Allow-Headers", req)
					} else {
						h.Set("Access-Control-Allow-Headers", "Content-Type, X-Bridge-Secret")
					}
				}
			}

			// Preflight stops here regardless of origin match; a browser
			// with a disallowed origin simply gets no allow headers back.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

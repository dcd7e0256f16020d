package toolserver

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
)

const maxToolBodyBytes = 1 << 20 // 1 MiB

// apiKeyMiddleware protects the MCP endpoint. The key travels in
// X-API-Key (or Authorization: Bearer). An empty configured key
// disables the check, pensado solo para desarrollo local.
func apiKeyMiddleware(next http.Handler, apiKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		if r.Method == http.MethodTrace {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxToolBodyBytes)

		if apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		got := r.Header.Get("X-API-Key")
		if got == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				got = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
			logx.Warn("Tools", "petición rechazada: api key inválida desde %s", r.RemoteAddr)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

package app

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/agent"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/health"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/metrics"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/runtime"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/ui"
)

type HTTPServer struct {
	srv *http.Server
}

// httpPort holds the port used by the HTTP server. Default is 8080.
var httpPort = "8080"

// SetHTTPPort allows overriding the default HTTP port before starting the app.
func SetHTTPPort(p string) {
	if p == "" {
		return
	}
	httpPort = p
}

func NewHTTPServer(apiAgent *agent.APIAgent, uiStore *ui.UIStore, rt *runtime.Runtime) *HTTPServer {
	mux := http.NewServeMux()

	apiAgent.RegisterHTTP(mux)
	mux.HandleFunc("/ui", uiStore.HandleIndex)
	mux.HandleFunc("/ui/task", uiStore.HandleTask)
	mux.HandleFunc("/health/live", health.LiveHandler)
	mux.HandleFunc("/health/ready", health.NewReadyHandler(rt))
	mux.HandleFunc("/metrics", metrics.ServeHTTP)

	// Wrap with security middleware
	hardened := secureMiddleware(metricsMiddleware(mux))

	return &HTTPServer{
		srv: &http.Server{
			Addr:              ":" + httpPort,
			Handler:           hardened,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20, // 1MB
		},
	}
}

func (h *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logx.Info("HTTP", "listening on port :%s", httpPort)
		errCh <- h.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logx.Info("HTTP", "shutting down server...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return h.srv.Shutdown(shutCtx)
	}
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware counts requests and latency per method/path/status.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		lbls := map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": strconv.Itoa(rec.status),
		}
		metrics.HTTPRequests.Inc(lbls)
		metrics.HTTPDuration.Observe(lbls, time.Since(start).Seconds())
	})
}

// secureMiddleware adds basic hardening to HTTP server:
// - Common security headers
// - Body size limit
// - Block TRACE method
func secureMiddleware(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Block TRACE to avoid request smuggling tricks
		if r.Method == http.MethodTrace {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Limit body size early
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}

		// Security headers
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		// Modern browsers ignore X-XSS-Protection; set to 0 to disable legacy filter quirks
		w.Header().Set("X-XSS-Protection", "0")
		// A conservative CSP that should not break our minimal UI
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'")
		// HSTS only when TLS is enabled
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		}

		next.ServeHTTP(w, r)
	})
}

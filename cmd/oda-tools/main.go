// oda-tools is the remote tool-execution server: it exposes the
// diagnostic tools over MCP (streamable HTTP) and talks to the
// monitoring backends defined in definitions/tools/.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/health"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/metrics"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/toolserver"
)

const version = "0.3.0"

func main() {
	port := flag.String("port", "8090", "HTTP port to listen on")
	defs := flag.String("definitions", "definitions", "tool/policy definitions directory")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromDir(*defs)
	if err != nil {
		logx.Error("Tools", "cargando definiciones: %v", err)
		os.Exit(1)
	}
	logx.Info("Tools", "%d tools, %d policies cargadas", len(cfg.Tools), len(cfg.Policies))

	apiKey := os.Getenv("MCP_API_KEY")
	if apiKey == "" {
		logx.Warn("Tools", "MCP_API_KEY vacía: endpoint sin autenticación")
	}

	mcpSrv := toolserver.New(cfg, version)

	mux := http.NewServeMux()
	mux.Handle("/mcp", toolserver.NewHTTP(mcpSrv, apiKey))
	mux.HandleFunc("/health/live", health.LiveHandler)
	mux.HandleFunc("/metrics", metrics.ServeHTTP)

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logx.Info("Tools", "MCP tool server v%s listening on :%s", version, *port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logx.Error("Tools", "server error: %v", err)
		os.Exit(1)
	case <-ctx.Done():
		logx.Info("Tools", "shutting down...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}
}

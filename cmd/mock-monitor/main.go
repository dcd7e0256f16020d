package main

import (
	"log"
	"net/http"

	mockMonitor "github.com/ccastromar/oda-ops-diagnostics-agent/internal/mocks/monitor"
)

var listenAndServe = http.ListenAndServe

func buildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mockMonitor.RegisterHandlers(mux)
	return mux
}

func main() {
	mux := buildMux()
	log.Println("[MOCK MONITOR] listening on :9000")
	listenAndServe(":9000", mux)
}

package health

import (
	"net/http"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/runtime"
)

// NewReadyHandler reports ready only when the tool definitions are
// loaded and both the model and the tool server answer.
func NewReadyHandler(rt *runtime.Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		if !rt.DefsLoaded {
			http.Error(w, "definitions not loaded", 503)
			return
		}

		if err := rt.LLMClient.Ping(r.Context()); err != nil {
			http.Error(w, "llm unreachable", 503)
			return
		}

		if rt.ToolsPing != nil {
			if err := rt.ToolsPing(r.Context()); err != nil {
				http.Error(w, "tool server unreachable", 503)
				return
			}
		}

		w.WriteHeader(200)
		w.Write([]byte(`{"status":"ready"}`))
	}
}

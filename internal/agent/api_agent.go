package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/bus"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/ui"
)

// APIAgent is the HTTP front door: it accepts diagnostic questions,
// hands them to the Inspector and serves task results.
type APIAgent struct {
	bus     *bus.Bus
	inbox   chan bus.Message
	uiStore *ui.UIStore
	// minimal auth and rate limiting
	apiKey string
	// naive fixed-window rate limiter per client key
	rl struct {
		Window  time.Duration
		Limit   int
		mu      chan struct{} // lightweight mutex using channel
		buckets map[string]*rateBucket
	}
}

func NewAPIAgent(b *bus.Bus, ui *ui.UIStore) *APIAgent {
	a := &APIAgent{
		bus:     b,
		inbox:   make(chan bus.Message, 16),
		uiStore: ui,
		apiKey:  strings.TrimSpace(os.Getenv("API_KEY")),
	}
	a.rl.Window = 1 * time.Minute
	a.rl.Limit = 60
	a.rl.mu = make(chan struct{}, 1)
	a.rl.buckets = make(map[string]*rateBucket)
	return a
}

// Max request size for POST /ask to protect the server (1MB)
const maxAskBodyBytes int64 = 1 << 20

// taskTimeout bounds a whole diagnostic task: plan loop, tool calls
// and the final summary together.
const taskTimeout = 120 * time.Second

// rateBucket tracks hits in a fixed window
type rateBucket struct {
	start time.Time
	hits  int
}

// acquireRL returns error if rate limit exceeded
func (a *APIAgent) acquireRL(key string) error {
	if key == "" {
		key = "anon"
	}
	a.rl.mu <- struct{}{}
	defer func() { <-a.rl.mu }()

	b, ok := a.rl.buckets[key]
	now := time.Now()
	if !ok || now.Sub(b.start) >= a.rl.Window {
		a.rl.buckets[key] = &rateBucket{start: now, hits: 1}
		return nil
	}
	if b.hits >= a.rl.Limit {
		return errors.New("rate limit exceeded")
	}
	b.hits++
	return nil
}

// getClientKey picks an identifier for auth/rate limit: API key if present, else IP
func getClientKey(r *http.Request) string {
	// prefer provided API key to segregate limits per token
	if k := r.Header.Get("X-API-Key"); k != "" {
		return "key:" + k
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return "key:" + strings.TrimSpace(auth[7:])
	}
	// fallback to remote addr (strip port)
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return "ip:" + host
}

// checkAuth enforces API key when configured via API_KEY env var
func (a *APIAgent) checkAuth(r *http.Request) bool {
	if a.apiKey == "" {
		return true // auth disabled
	}
	if k := r.Header.Get("X-API-Key"); k != "" && k == a.apiKey {
		return true
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		token := strings.TrimSpace(auth[7:])
		return token == a.apiKey
	}
	return false
}

var idRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func (a *APIAgent) Inbox() chan bus.Message {
	return a.inbox
}

func (a *APIAgent) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Api", "panic recovered in Start: %v", r)
		}
	}()
	for {
		select {
		case msg := <-a.inbox:
			// El agente API no consume mensajes internos
			logx.Warn("Api", "mensaje interno ignorado: %#v", msg)

		case <-ctx.Done():
			return nil
		}
	}
}

// RegisterHTTP registra endpoints HTTP
func (a *APIAgent) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/ask", a.handleAsk)   // async: returns id immediately
	mux.HandleFunc("/task", a.handleTask) // fetch task status/result
}

func (a *APIAgent) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !a.checkAuth(r) {
		w.Header().Set("WWW-Authenticate", "Bearer, X-API-Key")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := a.acquireRL(getClientKey(r)); err != nil {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	type Req struct {
		Message string `json:"message"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	var req Req
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpErr := http.StatusBadRequest
		if err.Error() == "http: request body too large" {
			httpErr = http.StatusRequestEntityTooLarge
		}
		http.Error(w, "invalid request body", httpErr)
		return
	}

	if req.Message == "" {
		http.Error(w, "message requerido", http.StatusBadRequest)
		return
	}

	id := randomID()

	logx.Info("Api", "new request id=%s message='%s'", id, req.Message)
	a.uiStore.AddEvent(id, "Api", "request", req.Message, "")

	// The task outlives this request, so the context hangs off
	// Background, not r.Context().
	_ = NewTaskContext(context.Background(), id, taskTimeout)

	a.bus.Send("inspector", bus.Message{
		Type: "new_task",
		Payload: map[string]any{
			"id":      id,
			"message": req.Message,
		},
	})

	// Respuesta asíncrona inmediata
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     id,
		"status": "accepted",
	})
}

// handleTask devuelve el estado/resultados de una tarea.
// GET /task?id=...
func (a *APIAgent) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !a.checkAuth(r) {
		w.Header().Set("WWW-Authenticate", "Bearer, X-API-Key")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := a.acquireRL(getClientKey(r)); err != nil {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id requerido", http.StatusBadRequest)
		return
	}
	if !idRe.MatchString(id) {
		http.Error(w, "id inválido", http.StatusBadRequest)
		return
	}

	// Consultar si ya hay resultado
	if res, ok := getResult(id); ok {
		// Limpiar almacenamiento para evitar fugas
		deleteResult(id)
		CancelTask(id)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     id,
			"status": res.Status,
			"data":   res.Data,
			"error":  res.Err,
		})
		return
	}

	// Aún pendiente
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     id,
		"status": "pending",
	})
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/bus"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/cache"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/llm"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/ui"
)

// Executor runs the tool calls the Planner decides on. Read-only tools
// get served from the response cache when fresh. Tool failures go back
// into the conversation so the model can correct itself.
type Executor struct {
	bus     *bus.Bus
	cfg     *config.Config
	inbox   chan bus.Message
	tools   Tools
	store   *cache.Store // nil deshabilita la caché
	uiStore *ui.UIStore
}

func NewExecutor(b *bus.Bus, cfg *config.Config, tools Tools, store *cache.Store, ui *ui.UIStore) *Executor {
	return &Executor{
		bus:     b,
		cfg:     cfg,
		inbox:   make(chan bus.Message, 16),
		tools:   tools,
		store:   store,
		uiStore: ui,
	}
}

func (e *Executor) Inbox() chan bus.Message {
	return e.inbox
}

func (e *Executor) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Executor", "panic recovered in Start: %v", r)
		}
	}()
	for {
		select {
		case msg := <-e.inbox:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logx.Error("Executor", "panic recovered in dispatch: %v", r)
					}
				}()
				e.dispatch(msg)
			}()

		case <-ctx.Done():
			return nil
		}
	}
}

func (e *Executor) dispatch(msg bus.Message) {
	switch msg.Type {
	case "execute_tool":
		e.handleExecuteTool(msg)
	default:
		logx.Warn("Executor", "mensaje desconocido: %#v", msg)
	}
}

func (e *Executor) handleExecuteTool(msg bus.Message) {
	id := msg.Payload["id"].(string)
	userMsg, _ := msg.Payload["message"].(string)
	call, ok := msg.Payload["call"].(llm.ToolCall)
	if !ok {
		storeResult(id, Result{Status: "error", Err: "tool call inválida"})
		return
	}
	messages, _ := msg.Payload["messages"].([]llm.Message)
	results, _ := msg.Payload["results"].(map[string]any)
	steps, _ := msg.Payload["steps"].(int)
	if results == nil {
		results = map[string]any{}
	}

	ctx := taskContextOr(id)

	out, cached, err := e.runTool(ctx, call)

	duration := ""
	outcome := "ok"
	if cached {
		outcome = "cache"
	}
	if err != nil {
		outcome = "error"
	}
	e.uiStore.AddEvent(id, "Executor", "tool "+call.Name, outcome, duration)

	if err != nil {
		logx.Warn("Executor", "id=%s tool %s falló: %v", id, call.Name, err)
		// El error vuelve al modelo, que decide si reintenta o concluye
		messages = append(messages, llm.Message{
			Role:    "tool",
			Content: fmt.Sprintf("ERROR calling %s: %v", call.Name, err),
		})
	} else {
		results[call.Name] = decodeResult(out)
		messages = append(messages, llm.Message{
			Role:    "tool",
			Content: fmt.Sprintf("Result of %s:\n%s", call.Name, out),
		})
	}

	e.bus.Send("planner", bus.Message{
		Type: "tool_result",
		Payload: map[string]any{
			"id":       id,
			"message":  userMsg,
			"messages": messages,
			"results":  results,
			"steps":    steps + 1,
		},
	})
}

// runTool resolves the call against the cache and the tool server.
// cached reports whether the response came from the cache.
func (e *Executor) runTool(ctx context.Context, call llm.ToolCall) (out string, cached bool, err error) {
	key := cache.Key(call.Name, call.Arguments)

	if e.cacheable(call.Name) {
		if val, ok, cerr := e.store.Get(key); cerr == nil && ok {
			logx.Info("Executor", "cache hit para %s", call.Name)
			return val, true, nil
		}
	}

	start := time.Now()
	out, err = e.tools.CallTool(ctx, call.Name, call.Arguments)
	if err != nil {
		return "", false, err
	}
	logx.Info("Executor", "tool %s ok en %s", call.Name, time.Since(start).Round(time.Millisecond))

	if e.cacheable(call.Name) {
		if perr := e.store.Put(key, call.Name, out); perr != nil {
			logx.Warn("Executor", "no se pudo cachear %s: %v", call.Name, perr)
		}
	}
	return out, false, nil
}

// cacheable: solo tools de lectura declaradas en la config.
func (e *Executor) cacheable(name string) bool {
	if e.store == nil {
		return false
	}
	t, ok := e.cfg.Tools[name]
	return ok && t.Mode == "read"
}

// decodeResult keeps structured results structured when the tool
// answered JSON; otherwise the raw string goes in as-is.
func decodeResult(out string) any {
	var v any
	if err := json.Unmarshal([]byte(out), &v); err == nil {
		return v
	}
	return out
}

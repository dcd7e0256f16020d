package agent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/bus"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/cache"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/llm"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/mcpclient"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/ui"
)

// recordingTools counts invocations and replays one canned answer.
type recordingTools struct {
	calls int
	out   string
	err   error
}

func (r *recordingTools) ListTools(ctx context.Context) ([]mcpclient.ToolInfo, error) {
	return nil, nil
}

func (r *recordingTools) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	r.calls++
	return r.out, r.err
}

func executorTestConfig() *config.Config {
	return &config.Config{
		Tools: map[string]config.Tool{
			"resource_list": {Name: "resource_list", Type: "http", Mode: "read"},
		},
		Policies: map[string]config.Policy{},
	}
}

func startExecutor(t *testing.T, tools Tools, store *cache.Store) (*bus.Bus, *Executor) {
	t.Helper()
	b := bus.New()
	e := NewExecutor(b, executorTestConfig(), tools, store, ui.NewUIStore())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = e.Start(ctx) }()
	return b, e
}

func executeMsg(id string, call llm.ToolCall) bus.Message {
	return bus.Message{
		Type: "execute_tool",
		Payload: map[string]any{
			"id":       id,
			"message":  "inventario",
			"call":     call,
			"messages": []llm.Message{{Role: "user", Content: "inventario"}},
			"results":  map[string]any{},
			"steps":    0,
		},
	}
}

func TestExecutor_ToolResultBackToPlanner(t *testing.T) {
	tools := &recordingTools{out: `{"count":3}`}
	b, e := startExecutor(t, tools, nil)

	plannerCh := make(chan bus.Message, 1)
	b.Subscribe("planner", plannerCh)

	e.Inbox() <- executeMsg("exec-1", llm.ToolCall{Name: "resource_list", Arguments: map[string]any{}})

	select {
	case msg := <-plannerCh:
		if msg.Type != "tool_result" {
			t.Fatalf("expected tool_result, got %s", msg.Type)
		}
		if msg.Payload["steps"].(int) != 1 {
			t.Fatalf("steps not incremented: %#v", msg.Payload["steps"])
		}
		results := msg.Payload["results"].(map[string]any)
		decoded, ok := results["resource_list"].(map[string]any)
		if !ok || decoded["count"].(float64) != 3 {
			t.Fatalf("result not decoded: %#v", results)
		}
		msgs := msg.Payload["messages"].([]llm.Message)
		last := msgs[len(msgs)-1]
		if last.Role != "tool" || !strings.Contains(last.Content, `{"count":3}`) {
			t.Fatalf("tool message not appended: %#v", last)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting tool_result")
	}
}

func TestExecutor_ToolErrorFedBackToModel(t *testing.T) {
	tools := &recordingTools{err: errors.New("backend 502")}
	b, e := startExecutor(t, tools, nil)

	plannerCh := make(chan bus.Message, 1)
	b.Subscribe("planner", plannerCh)

	e.Inbox() <- executeMsg("exec-err", llm.ToolCall{Name: "resource_list", Arguments: map[string]any{}})

	select {
	case msg := <-plannerCh:
		if msg.Type != "tool_result" {
			t.Fatalf("expected tool_result, got %s", msg.Type)
		}
		// El error no aborta la tarea: vuelve como mensaje tool
		results := msg.Payload["results"].(map[string]any)
		if len(results) != 0 {
			t.Fatalf("failed call must not add results: %#v", results)
		}
		msgs := msg.Payload["messages"].([]llm.Message)
		last := msgs[len(msgs)-1]
		if last.Role != "tool" || !strings.Contains(last.Content, "ERROR calling resource_list") {
			t.Fatalf("error message not appended: %#v", last)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting tool_result with error")
	}
}

func TestExecutor_ReadToolsUseCache(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), time.Minute)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	tools := &recordingTools{out: `{"count":3}`}
	b, e := startExecutor(t, tools, store)

	plannerCh := make(chan bus.Message, 2)
	b.Subscribe("planner", plannerCh)

	call := llm.ToolCall{Name: "resource_list", Arguments: map[string]any{"resource_group": "rg-prod"}}

	e.Inbox() <- executeMsg("exec-c1", call)
	<-plannerCh
	e.Inbox() <- executeMsg("exec-c2", call)
	<-plannerCh

	if tools.calls != 1 {
		t.Fatalf("second call should hit cache, backend calls=%d", tools.calls)
	}
}

func TestExecutor_UnknownToolNotCached(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), time.Minute)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	tools := &recordingTools{out: "texto plano"}
	b, e := startExecutor(t, tools, store)

	plannerCh := make(chan bus.Message, 2)
	b.Subscribe("planner", plannerCh)

	call := llm.ToolCall{Name: "no_definida", Arguments: map[string]any{}}
	e.Inbox() <- executeMsg("exec-u1", call)
	<-plannerCh
	e.Inbox() <- executeMsg("exec-u2", call)
	<-plannerCh

	if tools.calls != 2 {
		t.Fatalf("unknown tool must bypass cache, backend calls=%d", tools.calls)
	}
}

package llm

import (
    "context"
    "errors"
    "testing"
)

// scriptedLLM returns canned replies in order.
type scriptedLLM struct {
    replies []string
    err     error
    calls   int
}

func (s *scriptedLLM) Ping(ctx context.Context) error { return nil }

func (s *scriptedLLM) Chat(ctx context.Context, prompt string) (string, error) {
    return s.ChatMessages(ctx, []Message{{Role: "user", Content: prompt}})
}

func (s *scriptedLLM) ChatMessages(ctx context.Context, messages []Message) (string, error) {
    if s.err != nil {
        return "", s.err
    }
    if s.calls >= len(s.replies) {
        return "", errors.New("no more scripted replies")
    }
    out := s.replies[s.calls]
    s.calls++
    return out, nil
}

var _ LLMClient = (*scriptedLLM)(nil)

func TestPlan_ToolCall(t *testing.T) {
    c := &scriptedLLM{replies: []string{
        `{"tool_call":{"name":"monitor","arguments":{"command":"monitor_metrics_query","parameters":{"resource":"vm-01"}}}}`,
    }}

    action, raw, err := Plan(context.Background(), c, []Message{{Role: "user", Content: "cpu of vm-01?"}})
    if err != nil {
        t.Fatalf("Plan() unexpected error: %v", err)
    }
    if raw == "" {
        t.Fatalf("expected raw output to be returned")
    }
    if action.ToolCall == nil || action.Final != nil {
        t.Fatalf("expected a tool_call action, got %+v", action)
    }
    if action.ToolCall.Name != "monitor" {
        t.Fatalf("unexpected tool name: %s", action.ToolCall.Name)
    }
    if action.ToolCall.Arguments["command"] != "monitor_metrics_query" {
        t.Fatalf("unexpected arguments: %+v", action.ToolCall.Arguments)
    }
}

func TestPlan_Final(t *testing.T) {
    c := &scriptedLLM{replies: []string{`{"final":{"summary":"all healthy"}}`}}

    action, _, err := Plan(context.Background(), c, []Message{{Role: "user", Content: "hi"}})
    if err != nil {
        t.Fatalf("Plan() unexpected error: %v", err)
    }
    if action.Final == nil || action.Final.Summary != "all healthy" {
        t.Fatalf("expected final action, got %+v", action)
    }
}

func TestPlan_RetriesOnceOnBadJSON(t *testing.T) {
    c := &scriptedLLM{replies: []string{
        "Sure! Here is what I'd do...",
        `{"final":{"summary":"ok"}}`,
    }}

    action, _, err := Plan(context.Background(), c, []Message{{Role: "user", Content: "hi"}})
    if err != nil {
        t.Fatalf("Plan() unexpected error after retry: %v", err)
    }
    if c.calls != 2 {
        t.Fatalf("expected exactly 2 chat calls, got %d", c.calls)
    }
    if action.Final == nil {
        t.Fatalf("expected final action, got %+v", action)
    }
}

func TestPlan_FailsAfterSecondBadReply(t *testing.T) {
    c := &scriptedLLM{replies: []string{"not json", "still not json"}}

    _, _, err := Plan(context.Background(), c, []Message{{Role: "user", Content: "hi"}})
    if err == nil {
        t.Fatalf("expected error when model never returns valid JSON")
    }
    if c.calls != 2 {
        t.Fatalf("expected exactly 2 chat calls, got %d", c.calls)
    }
}

func TestPlan_AcceptsFencedJSON(t *testing.T) {
    c := &scriptedLLM{replies: []string{
        "```json\n{\"final\":{\"summary\":\"done\"}}\n```",
    }}

    action, _, err := Plan(context.Background(), c, []Message{{Role: "user", Content: "hi"}})
    if err != nil {
        t.Fatalf("Plan() should sanitize fenced output: %v", err)
    }
    if action.Final == nil || action.Final.Summary != "done" {
        t.Fatalf("unexpected action: %+v", action)
    }
}

func TestSanitize_ExtractsFirstObjectAndFixesQuotes(t *testing.T) {
    in := "The answer is:\n{“final”:{“summary”:“x”}}\nthanks"
    out := sanitizeLLMOutput(in)
    if out != `{"final":{"summary":"x"}}` {
        t.Fatalf("unexpected sanitized output: %q", out)
    }
}

package llm

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"
)

func TestOpenAIPing_NoKey(t *testing.T) {
    c := NewOpenAIClient("", "", "gpt-4.1")
    if err := c.Ping(context.Background()); err == nil {
        t.Fatalf("expected error when api key is empty")
    }
}

func TestOpenAIPing_OK(t *testing.T) {
    ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/models" {
            t.Fatalf("unexpected path: %s", r.URL.Path)
        }
        if r.Header.Get("Authorization") != "Bearer sk-test" {
            t.Fatalf("missing bearer auth, got %q", r.Header.Get("Authorization"))
        }
        w.Write([]byte(`{"data":[]}`))
    }))
    defer ts.Close()

    c := NewOpenAIClient(ts.URL, "sk-test", "gpt-4.1")
    if err := c.Ping(context.Background()); err != nil {
        t.Fatalf("Ping() unexpected error: %v", err)
    }
}

func TestOpenAIChat_OK(t *testing.T) {
    ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/chat/completions" {
            t.Fatalf("unexpected path: %s", r.URL.Path)
        }
        _ = json.NewEncoder(w).Encode(map[string]any{
            "choices": []map[string]any{
                {"message": map[string]any{"content": "pong"}},
            },
        })
    }))
    defer ts.Close()

    c := NewOpenAIClient(ts.URL, "sk-test", "gpt-4.1")
    out, err := c.Chat(context.Background(), "ping")
    if err != nil {
        t.Fatalf("Chat() unexpected error: %v", err)
    }
    if out != "pong" {
        t.Fatalf("unexpected output: %q", out)
    }
}

func TestOpenAIChat_ToolRoleFoldedIntoUser(t *testing.T) {
    var roles []string
    ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var req struct {
            Messages []Message `json:"messages"`
        }
        _ = json.NewDecoder(r.Body).Decode(&req)
        for _, m := range req.Messages {
            roles = append(roles, m.Role)
        }
        _ = json.NewEncoder(w).Encode(map[string]any{
            "choices": []map[string]any{
                {"message": map[string]any{"content": "ok"}},
            },
        })
    }))
    defer ts.Close()

    c := NewOpenAIClient(ts.URL, "sk-test", "gpt-4.1")
    msgs := []Message{
        {Role: "system", Content: "rules"},
        {Role: "tool", Content: "{}"},
    }
    if _, err := c.ChatMessages(context.Background(), msgs); err != nil {
        t.Fatalf("ChatMessages() unexpected error: %v", err)
    }
    for _, role := range roles {
        if role == "tool" {
            t.Fatalf("tool role should have been folded into a user turn, got roles: %v", roles)
        }
    }
}

func TestOpenAIChat_EmptyChoices(t *testing.T) {
    ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Write([]byte(`{"choices":[]}`))
    }))
    defer ts.Close()

    c := NewOpenAIClient(ts.URL, "sk-test", "gpt-4.1")
    if _, err := c.Chat(context.Background(), "x"); err == nil {
        t.Fatalf("expected error on empty choices")
    }
}

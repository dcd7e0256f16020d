package llm

import "context"

// Message is one turn of a chat conversation. Role is one of
// system, user, assistant or tool.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type LLMClient interface {
	Ping(ctx context.Context) error
	Chat(ctx context.Context, prompt string) (string, error)
	ChatMessages(ctx context.Context, messages []Message) (string, error)
}

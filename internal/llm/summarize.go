package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// SummarizeDiagnostics turns the raw tool results of a finished task into
// a short operator-facing report.
func SummarizeDiagnostics(ctx context.Context, c LLMClient, userMsg string, rawResults map[string]any) (string, error) {
	rawJSON, _ := json.Marshal(rawResults)

	prompt := fmt.Sprintf(`
You are a cloud operations assistant.

The operator asked: "%s"

These are the raw results returned by the diagnostic tools (JSON):

%s

Write a short plain-text summary for the operator, explaining:
- which checks were run,
- the key numbers or findings (CPU, memory, errors, resource state...),
- whether anything looks unhealthy and deserves attention.

Return ONLY plain text, no JSON, no markdown.
`, userMsg, string(rawJSON))

	out, err := c.Chat(ctx, prompt)
	if err != nil {
		return "", err
	}
	return out, nil
}

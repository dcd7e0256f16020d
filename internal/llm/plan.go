package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/metrics"
)

// The model must answer with exactly ONE JSON object: either a tool_call
// or a final summary. Anything else gets one corrective retry.

type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type Final struct {
	Summary string `json:"summary"`
}

type Action struct {
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	Final    *Final    `json:"final,omitempty"`
}

const retryInstruction = "Return ONLY the JSON object (either tool_call or final). No extra text."

// Plan sends the conversation to the model and decodes its decision.
// On invalid JSON it retries exactly once with a corrective message.
// It returns the decoded action plus the raw assistant output so the
// caller can append it to the conversation history.
func Plan(ctx context.Context, client LLMClient, messages []Message) (*Action, string, error) {
	raw, err := client.ChatMessages(ctx, messages)
	if err != nil {
		return nil, "", fmt.Errorf("plan chat: %w", err)
	}

	action, perr := parseAction(raw)
	if perr == nil {
		countAction(action)
		return action, raw, nil
	}

	// Single retry: nudge the model back to the protocol.
	retryMsgs := make([]Message, 0, len(messages)+1)
	retryMsgs = append(retryMsgs, messages...)
	retryMsgs = append(retryMsgs, Message{Role: "assistant", Content: retryInstruction})

	raw, err = client.ChatMessages(ctx, retryMsgs)
	if err != nil {
		return nil, "", fmt.Errorf("plan retry chat: %w", err)
	}

	action, perr = parseAction(raw)
	if perr != nil {
		metrics.PlanActions.Inc(map[string]string{"action": "invalid"})
		return nil, raw, fmt.Errorf("model did not return a valid action: %w; raw=%s", perr, raw)
	}
	countAction(action)
	return action, raw, nil
}

func countAction(a *Action) {
	kind := "final"
	if a.ToolCall != nil {
		kind = "tool_call"
	}
	metrics.PlanActions.Inc(map[string]string{"action": kind})
}

func parseAction(raw string) (*Action, error) {
	clean := sanitizeLLMOutput(raw)

	var out Action
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("JSON inválido: %w", err)
	}

	// sanity check
	if out.ToolCall == nil && out.Final == nil {
		return nil, fmt.Errorf("JSON sin tool_call ni final")
	}
	if out.ToolCall != nil && out.ToolCall.Name == "" {
		return nil, fmt.Errorf("tool_call sin name")
	}
	if out.ToolCall != nil && out.ToolCall.Arguments == nil {
		out.ToolCall.Arguments = map[string]any{}
	}
	return &out, nil
}

func sanitizeLLMOutput(s string) string {
	s = strings.TrimSpace(s)

	// 1) remover cualquier bloque ```xxx ... ```
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) > 1 {
			// quitar primera y última
			s = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	// 2) regex para sacar el primer objeto JSON válido
	re := regexp.MustCompile(`\{[\s\S]*\}`)
	match := re.FindString(s)
	if match != "" {
		s = match
	}

	// 3) reemplazar comillas curvas por comillas normales
	s = strings.ReplaceAll(s, "“", "\"")
	s = strings.ReplaceAll(s, "”", "\"")
	s = strings.ReplaceAll(s, "‘", "'")
	s = strings.ReplaceAll(s, "’", "'")

	return strings.TrimSpace(s)
}

// Package history persists the chat CLI's rolling conversation to a
// JSON file so a session can be resumed where it left off.
package history

import (
	"encoding/json"
	"os"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/llm"
)

// Load reads a saved conversation. A missing or corrupt file is not an
// error: the chat just starts fresh.
func Load(path string) []llm.Message {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var msgs []llm.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	return msgs
}

// Save writes the conversation to path. Best effort: a failed save
// never interrupts the chat loop.
func Save(path string, messages []llm.Message) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Trim keeps the last maxTurns messages, always preserving an initial
// system message if present.
func Trim(messages []llm.Message, maxTurns int) []llm.Message {
	if len(messages) == 0 || maxTurns <= 0 {
		return messages
	}
	var system *llm.Message
	core := messages
	if messages[0].Role == "system" {
		system = &messages[0]
		core = messages[1:]
	}
	if len(core) <= maxTurns {
		return messages
	}
	trimmed := core[len(core)-maxTurns:]
	if system == nil {
		return trimmed
	}
	out := make([]llm.Message, 0, len(trimmed)+1)
	out = append(out, *system)
	out = append(out, trimmed...)
	return out
}

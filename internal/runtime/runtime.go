package runtime

import (
	"context"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/llm"
)

// Runtime holds the readiness state the health endpoints inspect.
type Runtime struct {
	DefsLoaded bool
	LLMClient  llm.LLMClient
	// ToolsPing comprueba el tool server; nil cuando no hay ninguno
	ToolsPing func(ctx context.Context) error
}

package agent

import (
	"context"
	"encoding/json"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/bus"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/llm"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/ui"
)

// SystemPrompt fixes the JSON protocol the model must follow. The tool
// catalog gets appended at task start.
const SystemPrompt = `You are a cloud diagnostics assistant for operations engineers.
You answer questions about cloud resources, metrics and logs using the tools listed below.

Respond with EXACTLY ONE JSON object and nothing else. Two forms are accepted.

To call a tool:
{"tool_call": {"name": "<tool name>", "arguments": {"<arg>": "<value>"}}}

To finish and answer the user:
{"final": {"summary": "<plain-text answer for the operator>"}}

Rules:
- One tool call per response.
- Use only the tools listed below. Never invent tool names or arguments.
- After a tool result arrives, either call another tool or produce the final summary.
- If a tool returns an error, adjust the call or explain the problem in the final summary.
- The final summary is plain text for a human operator, not JSON.`

// Planner runs the plan loop: it asks the model for the next action and
// routes tool calls to the Executor and final answers to the Analyst.
type Planner struct {
	bus       *bus.Bus
	cfg       *config.Config
	inbox     chan bus.Message
	llmClient llm.LLMClient
	tools     Tools
	uiStore   *ui.UIStore
	maxSteps  int
}

func NewPlanner(b *bus.Bus, cfg *config.Config, llmClient llm.LLMClient, tools Tools, ui *ui.UIStore, maxSteps int) *Planner {
	if maxSteps <= 0 {
		maxSteps = 6
	}
	return &Planner{
		bus:       b,
		cfg:       cfg,
		inbox:     make(chan bus.Message, 16),
		llmClient: llmClient,
		tools:     tools,
		uiStore:   ui,
		maxSteps:  maxSteps,
	}
}

func (p *Planner) Inbox() chan bus.Message {
	return p.inbox
}

func (p *Planner) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Planner", "panic recovered in Start: %v", r)
		}
	}()
	for {
		select {
		case msg := <-p.inbox:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logx.Error("Planner", "panic recovered in dispatch: %v", r)
					}
				}()
				p.dispatch(msg)
			}()

		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Planner) dispatch(msg bus.Message) {
	switch msg.Type {
	case "plan_task":
		p.handlePlanTask(msg)

	case "tool_result":
		p.handleToolResult(msg)

	default:
		logx.Warn("Planner", "mensaje desconocido: %#v", msg)
	}
}

func (p *Planner) handlePlanTask(msg bus.Message) {
	id := msg.Payload["id"].(string)
	userMsg := msg.Payload["message"].(string)

	ctx := taskContextOr(id)

	catalog, err := p.tools.ListTools(ctx)
	if err != nil {
		logx.Error("Planner", "id=%s no se pudo cargar el catálogo de tools: %v", id, err)
		p.storeError(id, "tool server no disponible")
		return
	}

	catJSON, _ := json.Marshal(catalog)
	messages := []llm.Message{
		{Role: "system", Content: SystemPrompt + "\n\nAvailable tools:\n" + string(catJSON)},
		{Role: "user", Content: userMsg},
	}

	p.step(ctx, id, userMsg, messages, map[string]any{}, 0)
}

func (p *Planner) handleToolResult(msg bus.Message) {
	id := msg.Payload["id"].(string)
	userMsg, _ := msg.Payload["message"].(string)
	messages, _ := msg.Payload["messages"].([]llm.Message)
	results, _ := msg.Payload["results"].(map[string]any)
	steps, _ := msg.Payload["steps"].(int)

	if messages == nil {
		p.storeError(id, "conversación perdida entre agentes")
		return
	}
	if results == nil {
		results = map[string]any{}
	}

	p.step(taskContextOr(id), id, userMsg, messages, results, steps)
}

// step asks the model for the next action and dispatches it.
func (p *Planner) step(ctx context.Context, id, userMsg string, messages []llm.Message, results map[string]any, steps int) {
	if steps >= p.maxSteps {
		logx.Warn("Planner", "id=%s alcanzado el máximo de pasos (%d), forzando resumen", id, p.maxSteps)
		p.dispatchAnalyst(id, userMsg, "", results)
		return
	}

	timer := logx.Start(id, "Planner", "PlanLLM")
	action, raw, err := llm.Plan(ctx, p.llmClient, messages)
	timer.End()

	if err != nil {
		logx.Error("Planner", "id=%s el modelo no produjo una acción válida: %v", id, err)
		if len(results) > 0 {
			// Ya hay datos: degradamos a resumen en vez de fallar
			p.dispatchAnalyst(id, userMsg, "", results)
			return
		}
		p.storeError(id, "el modelo no produjo una acción válida")
		return
	}

	messages = append(messages, llm.Message{Role: "assistant", Content: raw})

	if action.Final != nil {
		logx.Info("Planner", "id=%s final tras %d tool calls", id, steps)
		p.uiStore.AddEvent(id, "Planner", "final", "summary del modelo", "")
		p.dispatchAnalyst(id, userMsg, action.Final.Summary, results)
		return
	}

	call := action.ToolCall
	NormalizeMonitorCall(call, p.cfg.Defaults)

	logx.Info("Planner", "id=%s paso %d -> tool %s", id, steps+1, call.Name)
	p.uiStore.AddEvent(id, "Planner", "tool_call", call.Name, "")

	p.bus.Send("executor", bus.Message{
		Type: "execute_tool",
		Payload: map[string]any{
			"id":       id,
			"message":  userMsg,
			"call":     *call,
			"messages": messages,
			"results":  results,
			"steps":    steps,
		},
	})
}

func (p *Planner) dispatchAnalyst(id, userMsg, summary string, results map[string]any) {
	p.bus.Send("analyst", bus.Message{
		Type: "summarize",
		Payload: map[string]any{
			"id":      id,
			"message": userMsg,
			"summary": summary,
			"results": results,
		},
	})
}

func (p *Planner) storeError(id string, errMsg string) {
	storeResult(id, Result{
		Status: "error",
		Err:    errMsg,
	})
}

// taskContextOr returns the registered task context, or Background when
// the task arrived without one (tests, CLI).
func taskContextOr(id string) context.Context {
	if ctx, ok := GetTaskContext(id); ok {
		return ctx
	}
	return context.Background()
}

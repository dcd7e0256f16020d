package agent

import (
	"context"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/bus"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/llm"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/ui"
)

// Analyst turns the collected tool results into the operator-facing
// answer. When the model already produced a final summary the Analyst
// just packages it; otherwise it asks the model for one.
type Analyst struct {
	bus       *bus.Bus
	inbox     chan bus.Message
	llmClient llm.LLMClient
	uiStore   *ui.UIStore
}

func NewAnalyst(b *bus.Bus, llmClient llm.LLMClient, ui *ui.UIStore) *Analyst {
	return &Analyst{
		bus:       b,
		inbox:     make(chan bus.Message, 16),
		llmClient: llmClient,
		uiStore:   ui,
	}
}

func (a *Analyst) Inbox() chan bus.Message {
	return a.inbox
}

func (a *Analyst) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Analyst", "panic recovered in Start: %v", r)
		}
	}()
	for {
		select {
		case msg := <-a.inbox:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logx.Error("Analyst", "panic recovered in dispatch: %v", r)
					}
				}()
				a.dispatch(msg)
			}()

		case <-ctx.Done():
			return nil
		}
	}
}

func (a *Analyst) dispatch(msg bus.Message) {
	switch msg.Type {
	case "summarize":
		a.handleSummarize(msg)
	default:
		logx.Warn("Analyst", "mensaje desconocido: %#v", msg)
	}
}

func (a *Analyst) handleSummarize(msg bus.Message) {
	id := msg.Payload["id"].(string)
	userMsg, _ := msg.Payload["message"].(string)
	summary, _ := msg.Payload["summary"].(string)
	raw, _ := msg.Payload["results"].(map[string]any)
	if raw == nil {
		raw = map[string]any{}
	}

	if summary != "" {
		a.uiStore.AddEvent(id, "Analyst", "summary", "summary del plan", "")
		storeResult(id, Result{
			Status: "ok",
			Data: map[string]any{
				"raw":     raw,
				"summary": summary,
			},
		})
		return
	}

	// Sin summary del plan: lo pedimos nosotros
	timer := logx.Start(id, "Analyst", "SummarizeLLM")
	generated, err := llm.SummarizeDiagnostics(taskContextOr(id), a.llmClient, userMsg, raw)
	timer.End()

	if err != nil {
		logx.Warn("Analyst", "id=%s error llamando al LLM: %v", id, err)
		// Degradamos de forma elegante: devolvemos solo el raw.
		storeResult(id, Result{
			Status: "ok",
			Data: map[string]any{
				"raw": raw,
			},
		})
		return
	}

	a.uiStore.AddEvent(id, "Analyst", "summary", "summary LLM generado", "")
	storeResult(id, Result{
		Status: "ok",
		Data: map[string]any{
			"raw":     raw,
			"summary": generated,
		},
	})
}

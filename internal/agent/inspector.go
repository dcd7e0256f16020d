package agent

import (
	"context"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/bus"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
)

// Inspector is the intake agent: it validates the incoming task and
// routes it to the Planner.
type Inspector struct {
	bus   *bus.Bus
	inbox chan bus.Message
}

func NewInspector(b *bus.Bus) *Inspector {
	return &Inspector{
		bus:   b,
		inbox: make(chan bus.Message, 16),
	}
}

func (i *Inspector) Inbox() chan bus.Message {
	return i.inbox
}

func (i *Inspector) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Inspector", "panic recovered in Start: %v", r)
		}
	}()
	for {
		select {
		case msg := <-i.inbox:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logx.Error("Inspector", "panic recovered in dispatch: %v", r)
					}
				}()
				i.dispatch(msg)
			}()

		case <-ctx.Done():
			return nil
		}
	}
}

func (i *Inspector) dispatch(msg bus.Message) {
	switch msg.Type {
	case "new_task":
		id, _ := msg.Payload["id"].(string)
		message, _ := msg.Payload["message"].(string)
		if id == "" || message == "" {
			logx.Warn("Inspector", "tarea incompleta descartada: %#v", msg.Payload)
			return
		}
		logx.Info("Inspector", "new task id=%s", id)

		i.bus.Send("planner", bus.Message{
			Type: "plan_task",
			Payload: map[string]any{
				"id":      id,
				"message": message,
			},
		})

	default:
		logx.Warn("Inspector", "unknown message: %#v", msg)
	}
}

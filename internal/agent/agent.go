package agent

import (
	"context"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/bus"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/mcpclient"
)

type Agent interface {
	Start(ctx context.Context) error
	Inbox() chan bus.Message
}

// Tools is the surface the planner and executor need from the remote
// tool server. *mcpclient.Client is the real implementation; tests
// plug fakes.
type Tools interface {
	ListTools(ctx context.Context) ([]mcpclient.ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

var _ Tools = (*mcpclient.Client)(nil)

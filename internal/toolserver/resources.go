package toolserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
)

// ResourceListTool handles resource_list: inventory of resources,
// optionally filtered by group or type.
type ResourceListTool struct {
	cfg *config.Config
}

func NewResourceListTool(cfg *config.Config) *ResourceListTool {
	return &ResourceListTool{cfg: cfg}
}

func (t *ResourceListTool) Definition() mcp.Tool {
	return mcp.NewTool("resource_list",
		mcp.WithDescription(
			"List cloud resources visible to the service identity. "+
				"Filter by resource group and/or resource type.",
		),
		mcp.WithString("resource_group",
			mcp.Description("Resource group name to filter by"),
		),
		mcp.WithString("resource_type",
			mcp.Description("Resource type to filter by, e.g. Microsoft.Compute/virtualMachines"),
		),
	)
}

func (t *ResourceListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := map[string]string{
		"resource_group": req.GetString("resource_group", ""),
		"resource_type":  req.GetString("resource_type", ""),
	}
	return runBackend(ctx, t.cfg, "resource_list", params)
}

// ResourceShowTool handles resource_show: full detail of one resource.
type ResourceShowTool struct {
	cfg *config.Config
}

func NewResourceShowTool(cfg *config.Config) *ResourceShowTool {
	return &ResourceShowTool{cfg: cfg}
}

func (t *ResourceShowTool) Definition() mcp.Tool {
	return mcp.NewTool("resource_show",
		mcp.WithDescription(
			"Show the full properties of one cloud resource by its ARM resource ID.",
		),
		mcp.WithString("resource_id",
			mcp.Required(),
			mcp.Description("Full ARM resource ID"),
		),
	)
}

func (t *ResourceShowTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("resource_id", "")
	if id == "" {
		return mcp.NewToolResultError("'resource_id' is required"), nil
	}
	return runBackend(ctx, t.cfg, "resource_show", map[string]string{
		"resource_id": id,
	})
}

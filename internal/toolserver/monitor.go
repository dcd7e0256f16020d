package toolserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
)

// MetricsQueryTool handles monitor_metrics_query: time-series metric
// values for one resource.
type MetricsQueryTool struct {
	cfg *config.Config
}

func NewMetricsQueryTool(cfg *config.Config) *MetricsQueryTool {
	return &MetricsQueryTool{cfg: cfg}
}

func (t *MetricsQueryTool) Definition() mcp.Tool {
	return mcp.NewTool("monitor_metrics_query",
		mcp.WithDescription(
			"Query platform metric values (CPU, memory, disk, network) for a cloud resource "+
				"over a time window. Returns time series per metric name.",
		),
		mcp.WithString("resource",
			mcp.Required(),
			mcp.Description("Full ARM resource ID of the target resource"),
		),
		mcp.WithString("metricnames",
			mcp.Description("Comma-separated metric names; defaults to the standard VM set"),
		),
		mcp.WithString("metricnamespace",
			mcp.Description("Metric namespace, e.g. Microsoft.Compute/virtualMachines"),
		),
		mcp.WithString("timespan",
			mcp.Description("ISO-8601 window like PT1H or start/end pair"),
		),
		mcp.WithString("interval",
			mcp.Description("Sampling interval, e.g. PT1M"),
		),
		mcp.WithString("aggregation",
			mcp.Description("Aggregation to apply"),
			mcp.Enum("Average", "Minimum", "Maximum", "Total", "Count"),
		),
	)
}

func (t *MetricsQueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource := req.GetString("resource", "")
	if resource == "" {
		return mcp.NewToolResultError("'resource' is required"), nil
	}

	params := map[string]string{
		"resource":        resource,
		"metricnames":     req.GetString("metricnames", ""),
		"metricnamespace": req.GetString("metricnamespace", ""),
		"timespan":        req.GetString("timespan", ""),
		"interval":        req.GetString("interval", ""),
		"aggregation":     req.GetString("aggregation", ""),
	}
	return runBackend(ctx, t.cfg, "monitor_metrics_query", params)
}

// MetricsDefinitionsTool handles monitor_metrics_definitions: which
// metrics a resource exposes.
type MetricsDefinitionsTool struct {
	cfg *config.Config
}

func NewMetricsDefinitionsTool(cfg *config.Config) *MetricsDefinitionsTool {
	return &MetricsDefinitionsTool{cfg: cfg}
}

func (t *MetricsDefinitionsTool) Definition() mcp.Tool {
	return mcp.NewTool("monitor_metrics_definitions",
		mcp.WithDescription(
			"List the metric definitions available for a cloud resource. Use this before "+
				"monitor_metrics_query when unsure which metric names exist.",
		),
		mcp.WithString("resource",
			mcp.Required(),
			mcp.Description("Full ARM resource ID of the target resource"),
		),
	)
}

func (t *MetricsDefinitionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource := req.GetString("resource", "")
	if resource == "" {
		return mcp.NewToolResultError("'resource' is required"), nil
	}
	return runBackend(ctx, t.cfg, "monitor_metrics_definitions", map[string]string{
		"resource": resource,
	})
}

// LogQueryTool handles monitor_log_query: KQL against a log analytics
// workspace. The query text goes through the KQL guard before it ever
// reaches the backend.
type LogQueryTool struct {
	cfg *config.Config
}

func NewLogQueryTool(cfg *config.Config) *LogQueryTool {
	return &LogQueryTool{cfg: cfg}
}

func (t *LogQueryTool) Definition() mcp.Tool {
	return mcp.NewTool("monitor_log_query",
		mcp.WithDescription(
			"Run a read-only KQL query against a log analytics workspace. "+
				"Management commands and ingestion statements are rejected.",
		),
		mcp.WithString("workspace",
			mcp.Required(),
			mcp.Description("Workspace ID (GUID) to query"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("KQL query text"),
		),
		mcp.WithString("timespan",
			mcp.Description("ISO-8601 window to restrict the query, e.g. PT1H"),
		),
		mcp.WithString("limit",
			mcp.Description("Max rows to return"),
		),
	)
}

func (t *LogQueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspace := req.GetString("workspace", "")
	query := req.GetString("query", "")
	if workspace == "" {
		return mcp.NewToolResultError("'workspace' is required"), nil
	}
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	params := map[string]string{
		"workspace": workspace,
		"query":     query,
		"timespan":  req.GetString("timespan", ""),
		"limit":     req.GetString("limit", ""),
	}
	return runBackend(ctx, t.cfg, "monitor_log_query", params)
}

// Package toolserver exposes the diagnostic tools over MCP
// (streamable HTTP). Each tool maps to a backend HTTP call defined in
// the tools/ YAML, gated by the per-tool policy.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/guard"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/tools"
)

// New creates the MCP server with all diagnostic tools registered.
func New(cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"oda-tools",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	metricsQuery := NewMetricsQueryTool(cfg)
	s.AddTool(metricsQuery.Definition(), metricsQuery.Handle)

	metricsDefs := NewMetricsDefinitionsTool(cfg)
	s.AddTool(metricsDefs.Definition(), metricsDefs.Handle)

	logQuery := NewLogQueryTool(cfg)
	s.AddTool(logQuery.Definition(), logQuery.Handle)

	resourceList := NewResourceListTool(cfg)
	s.AddTool(resourceList.Definition(), resourceList.Handle)

	resourceShow := NewResourceShowTool(cfg)
	s.AddTool(resourceShow.Definition(), resourceShow.Handle)

	return s
}

// NewHTTP wraps the MCP server in its streamable-HTTP transport at
// /mcp, protected by the API-key middleware.
func NewHTTP(s *server.MCPServer, apiKey string) http.Handler {
	httpSrv := server.NewStreamableHTTPServer(s, server.WithEndpointPath("/mcp"))
	return apiKeyMiddleware(httpSrv, apiKey)
}

// runBackend resolves the named tool from config, applies the guard
// rails and executes the backend call. Tool failures come back as MCP
// error results, not Go errors, so the model can see and react to them.
func runBackend(ctx context.Context, cfg *config.Config, name string, params map[string]string) (*mcp.CallToolResult, error) {
	t, ok := cfg.Tools[name]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("tool %s no está configurada", name)), nil
	}

	pol := cfg.PolicyFor(name)
	if err := guard.ValidateAll(t, pol, params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("guardrail: %v", err)), nil
	}

	if pol.ShadowMode {
		logx.Warn("Tools", "shadow mode: %s no ejecutada", name)
		out, _ := json.Marshal(map[string]any{
			"shadow": true,
			"tool":   name,
			"params": params,
		})
		return mcp.NewToolResultText(string(out)), nil
	}

	res, err := tools.ExecuteTool(ctx, t, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ejecutando %s: %v", name, err)), nil
	}

	out, err := json.Marshal(res)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("serializando resultado de %s: %v", name, err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

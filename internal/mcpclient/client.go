// Package mcpclient wraps the MCP streamable-HTTP client used to reach
// the remote tool-execution server. It owns session setup, the API-key
// header, a short-lived tool-catalog cache and result flattening.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/metrics"
)

const clientVersion = "0.3.0"

// ToolInfo is the compact catalog entry fed to the model.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Client struct {
	baseURL    string
	catalogTTL time.Duration

	mc *client.Client

	mu          sync.Mutex
	started     bool
	initialized bool
	catalog     []ToolInfo
	fetchedAt   time.Time
}

// New builds a client for the tool server at baseURL (the /mcp endpoint).
// When apiKey is non-empty it is sent as X-API-Key on every request.
func New(baseURL, apiKey string) (*Client, error) {
	var opts []transport.StreamableHTTPCOption
	if apiKey != "" {
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{
			"X-API-Key": apiKey,
		}))
	}

	mc, err := client.NewStreamableHttpClient(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creando cliente MCP: %w", err)
	}

	return &Client{
		baseURL:    baseURL,
		catalogTTL: 5 * time.Minute,
		mc:         mc,
	}, nil
}

// ensure lazily starts the transport and runs the MCP handshake. The
// connection survives for the process lifetime; a failed handshake can
// be retried on the next call without re-starting the transport.
func (c *Client) ensure(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}

	if !c.started {
		if err := c.mc.Start(ctx); err != nil {
			return fmt.Errorf("mcp start: %w", err)
		}
		c.started = true
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "oda",
		Version: clientVersion,
	}
	if _, err := c.mc.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("mcp initialize: %w", err)
	}

	c.initialized = true
	return nil
}

// Ping verifies the tool server answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ensure(ctx); err != nil {
		return err
	}
	return c.mc.Ping(ctx)
}

// ListTools returns the tool catalog, cached for a few minutes: the
// catalog changes only on server redeploys and the planner asks for it
// on every task.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	c.mu.Lock()
	if c.catalog != nil && time.Since(c.fetchedAt) < c.catalogTTL {
		out := c.catalog
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	if err := c.ensure(ctx); err != nil {
		return nil, err
	}

	res, err := c.mc.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp list tools: %w", err)
	}

	infos := make([]ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		infos = append(infos, ToolInfo{Name: t.Name, Description: t.Description})
	}

	c.mu.Lock()
	c.catalog = infos
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return infos, nil
}

// CallTool invokes a tool and returns its result flattened to a string
// suitable for feeding back into the model context.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if err := c.ensure(ctx); err != nil {
		return "", err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	start := time.Now()
	res, err := c.mc.CallTool(ctx, req)
	if err != nil {
		metrics.ToolCalls.Inc(map[string]string{"tool": name, "outcome": "error"})
		return "", fmt.Errorf("mcp call tool %s: %w", name, err)
	}

	out := flattenResult(res)
	if res.IsError {
		metrics.ToolCalls.Inc(map[string]string{"tool": name, "outcome": "tool_error"})
		return "", fmt.Errorf("tool %s devolvió error: %s", name, out)
	}

	metrics.ToolCalls.Inc(map[string]string{"tool": name, "outcome": "ok"})
	metrics.ToolCallDur.Observe(map[string]string{"tool": name, "outcome": "ok"}, time.Since(start).Seconds())
	return out, nil
}

func (c *Client) Close() error {
	return c.mc.Close()
}

// flattenResult prefers structured content, falling back to the text
// content blocks.
func flattenResult(res *mcp.CallToolResult) string {
	if res.StructuredContent != nil {
		if b, err := json.Marshal(res.StructuredContent); err == nil {
			return string(b)
		}
	}

	parts := make([]string, 0, len(res.Content))
	for _, cnt := range res.Content {
		if tc, ok := mcp.AsTextContent(cnt); ok {
			parts = append(parts, tc.Text)
			continue
		}
		if b, err := json.Marshal(cnt); err == nil {
			parts = append(parts, string(b))
		}
	}
	return strings.Join(parts, "\n")
}

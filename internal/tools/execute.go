package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/metrics"
)

// ExecuteTool ejecuta una tool HTTP contra su backend de monitorización.
// URL, query y body admiten placeholders {{ .param }} resueltos con params.
func ExecuteTool(ctx context.Context, t config.Tool, params map[string]string) (map[string]any, error) {
	if t.Type != "" && t.Type != "http" {
		return nil, fmt.Errorf("tool %s: tipo no soportado: %s", t.Name, t.Type)
	}

	rawURL, err := RenderTemplateString(t.URL, params)
	if err != nil {
		return nil, fmt.Errorf("error renderizando URL: %w", err)
	}

	// Query params declarados aparte del template de la URL
	if len(t.Query) > 0 {
		rendered, err := RenderTemplateMap(t.Query, params)
		if err != nil {
			return nil, fmt.Errorf("error renderizando query: %w", err)
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("error parseando URL: %w", err)
		}
		q := u.Query()
		for k, v := range rendered {
			if v != "" {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}

	var payload []byte
	method := t.Method
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && t.Body != nil {
		renderedBody, err := RenderTemplateMap(t.Body, params)
		if err != nil {
			return nil, fmt.Errorf("error renderizando body: %w", err)
		}
		payload, err = json.Marshal(renderedBody)
		if err != nil {
			return nil, fmt.Errorf("error serializando body: %w", err)
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	timeout := time.Duration(t.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creando request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: timeout}

	resp, err := client.Do(req)
	if err != nil {
		metrics.BackendCalls.Inc(map[string]string{"tool": t.Name, "outcome": "error"})
		return nil, fmt.Errorf("error ejecutando HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BackendCalls.Inc(map[string]string{"tool": t.Name, "outcome": "error"})
		return nil, fmt.Errorf("error leyendo respuesta: %w", err)
	}

	if resp.StatusCode >= 300 {
		metrics.BackendCalls.Inc(map[string]string{"tool": t.Name, "outcome": "error"})
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var out map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			metrics.BackendCalls.Inc(map[string]string{"tool": t.Name, "outcome": "error"})
			return nil, fmt.Errorf("error parseando JSON: %w", err)
		}
	}

	if out == nil {
		out = make(map[string]any)
	}

	metrics.BackendCalls.Inc(map[string]string{"tool": t.Name, "outcome": "ok"})
	return out, nil
}

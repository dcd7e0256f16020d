package tools

import (
	"bytes"
	"fmt"
	"text/template"
)

//
// -------------------------------------------------------------
// TEMPLATE RENDERING UTILITIES
// -------------------------------------------------------------
//

// RenderTemplateString procesa un template que es STRING.
// Sirve para URLs tipo:
//
//	"http://localhost:9100/monitor/logs/query?workspace={{ .workspace }}"
func RenderTemplateString(tpl string, params map[string]string) (string, error) {
	if params == nil {
		return tpl, nil
	}

	t, err := template.New("tpl").
		Option("missingkey=default").
		Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("error parseando template string: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("error ejecutando template string: %w", err)
	}

	return buf.String(), nil
}

// RenderTemplateMap procesa UN MAP de strings.
// Sirve para query params y bodies de las tools, por ejemplo:
//
// query:
//
//	resource: "{{ .resource }}"
//	interval: "{{ .interval }}"
//
// Produce un map[string]string renderizado.
func RenderTemplateMap(body map[string]string, params map[string]string) (map[string]string, error) {
	if body == nil {
		return map[string]string{}, nil
	}

	out := make(map[string]string)

	for k, v := range body {
		t, err := template.New("body").
			Option("missingkey=default").
			Parse(v)
		if err != nil {
			return nil, fmt.Errorf("error parseando template campo=%s: %w", k, err)
		}

		var buf bytes.Buffer
		if err := t.Execute(&buf, params); err != nil {
			return nil, fmt.Errorf("error ejecutando template campo=%s: %w", k, err)
		}

		out[k] = buf.String()
	}

	return out, nil
}

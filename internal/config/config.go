package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Tool describes one backend HTTP call the tool server can execute.
// URL, Query and Body values may contain text/template placeholders
// resolved from the MCP call parameters.
type Tool struct {
	Name      string            `yaml:"name"`
	Type      string            `yaml:"type"` // http (solo http en esta versión)
	Method    string            `yaml:"method"`
	URL       string            `yaml:"url"`
	Mode      string            `yaml:"mode"` // read, write, dangerous
	TimeoutMs int               `yaml:"timeout"`
	Query     map[string]string `yaml:"query"`
	Body      map[string]string `yaml:"body"`
}

// Policy is the guard-rail configuration for one tool (or "default").
type Policy struct {
	Tool           string `yaml:"tool"`
	AllowDangerous bool   `yaml:"allow_dangerous"` // puede ejecutar tools peligrosas
	MaxRows        int    `yaml:"max_rows"`        // tope de filas devueltas
	MaxTimespan    string `yaml:"max_timespan"`    // ventana máxima (ISO-8601, p.ej. P1D)
	ShadowMode     bool   `yaml:"shadow_mode"`     // ejecutar en modo simulación
}

// Defaults hold the monitor-query values filled in when the model
// omits them (see agent.NormalizeMonitorCall).
type Defaults struct {
	Subscription    string `yaml:"subscription"`
	ResourceType    string `yaml:"resource_type"`
	MetricNamespace string `yaml:"metric_namespace"`
	MetricNames     string `yaml:"metric_names"`
	Interval        string `yaml:"interval"`
	Aggregation     string `yaml:"aggregation"`
	Timespan        string `yaml:"timespan"`
}

type Config struct {
	Tools    map[string]Tool
	Policies map[string]Policy
	Defaults Defaults
}

func LoadFromDir(base string) (*Config, error) {
	cfg := &Config{
		Tools:    make(map[string]Tool),
		Policies: make(map[string]Policy),
	}

	if err := loadToolsDir(filepath.Join(base, "tools"), cfg); err != nil {
		return nil, err
	}
	if err := loadPoliciesDir(filepath.Join(base, "policies"), cfg); err != nil {
		return nil, err
	}
	if err := loadDefaults(filepath.Join(base, "defaults.yaml"), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PolicyFor returns the policy for a tool, falling back to "default".
func (c *Config) PolicyFor(tool string) Policy {
	if p, ok := c.Policies[tool]; ok {
		return p
	}
	return c.Policies["default"]
}

func loadToolsDir(dir string, cfg *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("leyendo tools dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var raw struct {
			Tools []Tool `yaml:"tools"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parseando %s: %w", path, err)
		}
		for _, t := range raw.Tools {
			cfg.Tools[t.Name] = t
		}
	}
	return nil
}

func loadPoliciesDir(dir string, cfg *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("leyendo policies dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var raw struct {
			Policies []Policy `yaml:"policies"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parseando %s: %w", path, err)
		}
		for _, p := range raw.Policies {
			cfg.Policies[p.Tool] = p
		}
	}
	return nil
}

// loadDefaults is tolerant: a missing defaults.yaml just leaves zero values.
func loadDefaults(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("leyendo defaults: %w", err)
	}
	var raw struct {
		Defaults Defaults `yaml:"defaults"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parseando %s: %w", path, err)
	}
	cfg.Defaults = raw.Defaults
	return nil
}

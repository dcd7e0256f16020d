package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type EnvVars struct {
	AppEnv       string        `envconfig:"APP_ENV" default:"dev"`
	Port         int           `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"5s"`

	// LLM provider selection: "ollama" (local runtime) or "openai" (hosted)
	LLMProvider string        `envconfig:"LLM_PROVIDER" default:"ollama"`
	LLMApiKey   string        `envconfig:"LLM_API_KEY"`
	LLMBaseURL  string        `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMModel    string        `envconfig:"LLM_MODEL" default:"gpt-4.1"`
	LLMTimeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"120s"`

	// Ollama (local LLM) configuration
	OllamaBaseURL string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel   string `envconfig:"OLLAMA_MODEL" default:"llama3.1:8b"`

	// Remote tool-execution server (MCP over streamable HTTP)
	MCPBaseURL string `envconfig:"MCP_BASE_URL" default:"http://localhost:8090/mcp"`
	MCPAPIKey  string `envconfig:"MCP_API_KEY"`

	// Default cloud subscription used to complete partial resource ids
	Subscription string `envconfig:"MONITOR_SUBSCRIPTION"`

	// Response cache (read-mode tool results)
	CachePath string        `envconfig:"CACHE_PATH" default:".oda_cache.db"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"60s"`

	// Upper bound on plan/execute iterations per task
	MaxPlanSteps int `envconfig:"MAX_PLAN_STEPS" default:"6"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func LoadEnv() (*EnvVars, error) {
	var v EnvVars
	if err := envconfig.Process("", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

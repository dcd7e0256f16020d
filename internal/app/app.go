// Package app wires the diagnostics agent: config, model client, tool
// client, cache and the agent set on the bus.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/agent"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/bus"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/cache"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/llm"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/mcpclient"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/runtime"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/ui"
)

const Version = "0.3.0"

type App struct {
	cfg    *config.Config
	env    *config.EnvVars
	bus    *bus.Bus
	ui     *ui.UIStore
	agents []agent.Agent
	llm    llm.LLMClient
	tools  *mcpclient.Client
	store  *cache.Store
	http   *HTTPServer
}

func New() (*App, error) {
	// .env es opcional; las variables reales mandan
	_ = godotenv.Load()

	env, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("leyendo variables de entorno: %w", err)
	}

	cfg, err := config.LoadFromDir("definitions")
	if err != nil {
		return nil, err
	}
	if env.Subscription != "" {
		cfg.Defaults.Subscription = env.Subscription
	}

	llmClient, err := newLLMClient(env)
	if err != nil {
		return nil, err
	}

	toolsClient, err := mcpclient.New(env.MCPBaseURL, env.MCPAPIKey)
	if err != nil {
		return nil, fmt.Errorf("creando cliente de tools: %w", err)
	}

	store, err := cache.Open(env.CachePath, env.CacheTTL)
	if err != nil {
		// La caché es opcional: sin ella todo sigue funcionando
		logx.Warn("App", "cache deshabilitada: %v", err)
		store = nil
	}

	uiStore := ui.NewUIStore()
	messageBus := bus.New()

	r := &runtime.Runtime{
		DefsLoaded: true,
		LLMClient:  llmClient,
		ToolsPing:  toolsClient.Ping,
	}

	// Crear todos los agentes
	apiAgent := agent.NewAPIAgent(messageBus, uiStore)
	inspector := agent.NewInspector(messageBus)
	planner := agent.NewPlanner(messageBus, cfg, llmClient, toolsClient, uiStore, env.MaxPlanSteps)
	executor := agent.NewExecutor(messageBus, cfg, toolsClient, store, uiStore)
	analyst := agent.NewAnalyst(messageBus, llmClient, uiStore)

	// Registrar subscripciones
	messageBus.Subscribe("inspector", inspector.Inbox())
	messageBus.Subscribe("planner", planner.Inbox())
	messageBus.Subscribe("executor", executor.Inbox())
	messageBus.Subscribe("analyst", analyst.Inbox())

	httpServer := NewHTTPServer(apiAgent, uiStore, r)

	return &App{
		cfg:    cfg,
		env:    env,
		bus:    messageBus,
		ui:     uiStore,
		agents: []agent.Agent{inspector, planner, executor, analyst},
		llm:    llmClient,
		tools:  toolsClient,
		store:  store,
		http:   httpServer,
	}, nil
}

// newLLMClient picks the provider from LLM_PROVIDER.
func newLLMClient(env *config.EnvVars) (llm.LLMClient, error) {
	switch env.LLMProvider {
	case "", "ollama":
		c := llm.NewOllamaClient(env.OllamaBaseURL, env.OllamaModel)
		c.Timeout = env.LLMTimeout
		c.HTTPClient.Timeout = env.LLMTimeout
		return c, nil
	case "openai":
		c := llm.NewOpenAIClient(env.LLMBaseURL, env.LLMApiKey, env.LLMModel)
		c.Timeout = env.LLMTimeout
		return c, nil
	default:
		return nil, fmt.Errorf("proveedor LLM desconocido: %s", env.LLMProvider)
	}
}

// StartAgents launches the agent goroutines without the HTTP server.
// Used by tests that serve the handler through httptest.
func (a *App) StartAgents(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	for _, ag := range a.agents {
		go func(ag agent.Agent) {
			_ = ag.Start(ctx)
		}(ag)
	}
	return cancel
}

// Handler returns the hardened HTTP handler.
func (a *App) Handler() http.Handler {
	return a.http.srv.Handler
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// Lanzar agentes
	for _, ag := range a.agents {
		agent := ag
		g.Go(func() error {
			return agent.Start(gctx)
		})
	}

	// Lanzar HTTP server
	g.Go(func() error {
		return a.http.Start(gctx)
	})

	logx.Info("App", "ODA v%s started", Version)

	err := g.Wait()

	if a.store != nil {
		_ = a.store.Close()
	}
	if a.tools != nil {
		_ = a.tools.Close()
	}

	return err
}

// oda-chat is the terminal front end: a conversational loop that plans
// tool calls against the remote tool server and prints the model's
// answers. History persists between sessions.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/agent"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/history"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/llm"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/logx"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/mcpclient"
)

const maxHistoryTurns = 30

func main() {
	histPath := flag.String("history", ".oda_history.json", "conversation history file")
	defs := flag.String("definitions", "definitions", "tool/policy definitions directory")
	flag.Parse()

	_ = godotenv.Load()

	env, err := config.LoadEnv()
	if err != nil {
		logx.Error("Chat", "leyendo variables de entorno: %v", err)
		os.Exit(1)
	}

	// Las definiciones solo aportan defaults aquí; sin ellas seguimos
	cfg, err := config.LoadFromDir(*defs)
	if err != nil {
		logx.Warn("Chat", "sin definiciones locales: %v", err)
		cfg = &config.Config{Tools: map[string]config.Tool{}, Policies: map[string]config.Policy{}}
	}
	if env.Subscription != "" {
		cfg.Defaults.Subscription = env.Subscription
	}

	client, err := newLLMClient(env)
	if err != nil {
		logx.Error("Chat", "%v", err)
		os.Exit(1)
	}

	tools, err := mcpclient.New(env.MCPBaseURL, env.MCPAPIKey)
	if err != nil {
		logx.Error("Chat", "creando cliente de tools: %v", err)
		os.Exit(1)
	}
	defer tools.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Ping(ctx); err != nil {
		logx.Error("Chat", "el modelo no responde: %v", err)
		os.Exit(1)
	}

	catalog, err := tools.ListTools(ctx)
	if err != nil {
		logx.Error("Chat", "tool server no disponible: %v", err)
		os.Exit(1)
	}
	catJSON, _ := json.Marshal(catalog)

	messages := history.Load(*histPath)
	if len(messages) == 0 {
		messages = []llm.Message{{
			Role:    "system",
			Content: agent.SystemPrompt + "\n\nAvailable tools:\n" + string(catJSON),
		}}
	}

	fmt.Print(formatToolIndex(catalog))
	fmt.Println("ODA chat. Escribe tu pregunta, /reset para limpiar, exit para salir.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case isExitCommand(line):
			return
		case line == "/reset":
			messages = messages[:1]
			_ = history.Save(*histPath, messages)
			fmt.Println("historial limpiado")
			continue
		}

		messages = runTurn(ctx, client, tools, cfg, messages, line, env.MaxPlanSteps)
		messages = history.Trim(messages, maxHistoryTurns)
		if err := history.Save(*histPath, messages); err != nil {
			logx.Warn("Chat", "no se pudo guardar el historial: %v", err)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// formatToolIndex renders the discovered tool catalog for the banner.
func formatToolIndex(catalog []mcpclient.ToolInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tools disponibles (%d):\n", len(catalog))
	for _, t := range catalog {
		fmt.Fprintf(&b, "  - %s: %s\n", t.Name, t.Description)
	}
	return b.String()
}

// isExitCommand accepts both the slash form and the bare keywords.
func isExitCommand(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit", "/exit", "/quit":
		return true
	}
	return false
}

// runTurn drives one user question through the plan loop and prints
// the outcome.
func runTurn(ctx context.Context, client llm.LLMClient, tools *mcpclient.Client, cfg *config.Config, messages []llm.Message, userMsg string, maxSteps int) []llm.Message {
	if maxSteps <= 0 {
		maxSteps = 6
	}
	messages = append(messages, llm.Message{Role: "user", Content: userMsg})

	for steps := 0; ; steps++ {
		if steps >= maxSteps {
			fmt.Println("(demasiados pasos, abandono el plan)")
			return messages
		}

		action, raw, err := llm.Plan(ctx, client, messages)
		if err != nil {
			fmt.Printf("(el modelo no produjo una acción válida: %v)\n", err)
			return messages
		}
		messages = append(messages, llm.Message{Role: "assistant", Content: raw})

		if action.Final != nil {
			fmt.Println(action.Final.Summary)
			return messages
		}

		call := action.ToolCall
		agent.NormalizeMonitorCall(call, cfg.Defaults)
		fmt.Printf("[tool] %s\n", call.Name)

		out, err := tools.CallTool(ctx, call.Name, call.Arguments)
		if err != nil {
			messages = append(messages, llm.Message{
				Role:    "tool",
				Content: fmt.Sprintf("ERROR calling %s: %v", call.Name, err),
			})
			continue
		}
		messages = append(messages, llm.Message{
			Role:    "tool",
			Content: fmt.Sprintf("Result of %s:\n%s", call.Name, out),
		})
	}
}

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

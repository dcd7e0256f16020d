package main

import (
	"strings"
	"testing"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/mcpclient"
)

func TestIsExitCommand(t *testing.T) {
	for _, line := range []string{"exit", "quit", "/exit", "/quit", "EXIT", "Quit"} {
		if !isExitCommand(line) {
			t.Fatalf("expected %q to exit the REPL", line)
		}
	}
	for _, line := range []string{"", "/reset", "exit the cluster?", "quit smoking tips"} {
		if isExitCommand(line) {
			t.Fatalf("%q should reach the model, not exit", line)
		}
	}
}

func TestFormatToolIndex(t *testing.T) {
	out := formatToolIndex([]mcpclient.ToolInfo{
		{Name: "resource_list", Description: "List cloud resources"},
		{Name: "monitor_log_query", Description: "Run a KQL query"},
	})

	if !strings.Contains(out, "Tools disponibles (2)") {
		t.Fatalf("missing tool count in banner: %s", out)
	}
	if !strings.Contains(out, "resource_list") || !strings.Contains(out, "monitor_log_query") {
		t.Fatalf("missing tool names in banner: %s", out)
	}
}

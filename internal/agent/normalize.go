package agent

import (
	"fmt"
	"strings"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/llm"
)

// Models tend to send partial metric queries ("CPU of vm-web-01")
// without namespace, interval or a full resource ID. Fill the gaps from
// the defaults so the tool server sees a complete request. Existing
// arguments are never overwritten.

func NormalizeMonitorCall(call *llm.ToolCall, d config.Defaults) {
	if call == nil {
		return
	}
	switch call.Name {
	case "monitor_metrics_query":
		normalizeMetricsQuery(call, d)
	case "monitor_metrics_definitions":
		normalizeResourceArg(call, d)
	}
}

func normalizeMetricsQuery(call *llm.ToolCall, d config.Defaults) {
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}

	normalizeResourceArg(call, d)

	setIfMissing(call.Arguments, "metricnamespace", d.MetricNamespace)
	setIfMissing(call.Arguments, "metricnames", d.MetricNames)
	setIfMissing(call.Arguments, "interval", d.Interval)
	setIfMissing(call.Arguments, "aggregation", d.Aggregation)
	setIfMissing(call.Arguments, "timespan", d.Timespan)
}

// normalizeResourceArg builds the full ARM resource ID when the model
// only gave a vm name and resource group.
func normalizeResourceArg(call *llm.ToolCall, d config.Defaults) {
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}

	if res := argString(call.Arguments, "resource"); res != "" {
		if strings.HasPrefix(res, "/subscriptions/") {
			return
		}
		// Nombre pelado: intentar construir el ID completo
		rg := argString(call.Arguments, "resource_group")
		if rg != "" && d.Subscription != "" {
			call.Arguments["resource"] = armResourceID(d.Subscription, rg, d.ResourceType, res)
			delete(call.Arguments, "resource_group")
		}
		return
	}

	vm := argString(call.Arguments, "vm")
	rg := argString(call.Arguments, "resource_group")
	if vm != "" && rg != "" && d.Subscription != "" {
		call.Arguments["resource"] = armResourceID(d.Subscription, rg, d.ResourceType, vm)
		delete(call.Arguments, "vm")
		delete(call.Arguments, "resource_group")
	}
}

func armResourceID(sub, rg, resourceType, name string) string {
	if resourceType == "" {
		resourceType = "Microsoft.Compute/virtualMachines"
	}
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s",
		sub, rg, resourceType, name)
}

func setIfMissing(args map[string]any, key, value string) {
	if value == "" {
		return
	}
	// Solo clave ausente: un valor presente, aunque no sea string, es del modelo
	if _, ok := args[key]; ok {
		return
	}
	args[key] = value
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

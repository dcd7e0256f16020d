// Package monitor is a mock of the cloud monitoring plane: metric
// values and definitions, log queries and resource inventory. It serves
// the same shapes the real backends answer with, with canned data.
package monitor

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/mock/monitor/metrics", getMetrics)
	mux.HandleFunc("/mock/monitor/metricdefinitions", getMetricDefinitions)
	mux.HandleFunc("/mock/monitor/logs", postLogQuery)
	mux.HandleFunc("/mock/resources", getResources)
	mux.HandleFunc("/mock/resources/show", getResourceShow)
}

// series fabrica una serie temporal sencilla alrededor de base.
func series(base float64, points int) []map[string]any {
	out := make([]map[string]any, 0, points)
	now := time.Now().UTC().Truncate(time.Minute)
	for i := points - 1; i >= 0; i-- {
		ts := now.Add(-time.Duration(i) * time.Minute)
		out = append(out, map[string]any{
			"timeStamp": ts.Format(time.RFC3339),
			"average":   base + float64(i%5),
		})
	}
	return out
}

func getMetrics(w http.ResponseWriter, r *http.Request) {
	log.Println("MOCK URL:", r.URL.String())
	log.Println("MOCK QUERY:", r.URL.Query())

	resource := r.URL.Query().Get("resource")
	names := r.URL.Query().Get("metricnames")
	if names == "" {
		names = "Percentage CPU"
	}

	values := make([]map[string]any, 0)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		base := 40.0
		if strings.Contains(name, "Memory") {
			base = 2.1e9
		}
		values = append(values, map[string]any{
			"name":       map[string]any{"value": name},
			"unit":       "Count",
			"timeseries": []map[string]any{{"data": series(base, 10)}},
		})
	}

	resp := map[string]any{
		"resource":    resource,
		"timespan":    r.URL.Query().Get("timespan"),
		"interval":    r.URL.Query().Get("interval"),
		"namespace":   r.URL.Query().Get("metricnamespace"),
		"aggregation": r.URL.Query().Get("aggregation"),
		"value":       values,
	}
	json.NewEncoder(w).Encode(resp)
}

func getMetricDefinitions(w http.ResponseWriter, r *http.Request) {
	log.Println("MOCK URL:", r.URL.String())

	resource := r.URL.Query().Get("resource")
	defs := []map[string]any{}
	for _, name := range []string{
		"Percentage CPU",
		"Available Memory Bytes",
		"Disk Read Bytes",
		"Disk Write Bytes",
		"Network In Total",
		"Network Out Total",
	} {
		defs = append(defs, map[string]any{
			"name":                 map[string]any{"value": name},
			"unit":                 "Count",
			"primaryAggregation":   "Average",
			"supportedAggregation": []string{"Average", "Minimum", "Maximum", "Total"},
		})
	}
	json.NewEncoder(w).Encode(map[string]any{
		"resource": resource,
		"value":    defs,
	})
}

func postLogQuery(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	log.Println("[MOCK LOGS]", body)

	rows := [][]any{
		{"2025-08-30T09:15:00Z", "vm-web-01", "Error", "disk I/O timeout on /dev/sda"},
		{"2025-08-30T09:16:12Z", "vm-web-01", "Warning", "high memory pressure"},
		{"2025-08-30T09:17:40Z", "vm-db-02", "Error", "connection pool exhausted"},
	}
	if limStr, ok := body["limit"].(string); ok && limStr != "" {
		if lim, err := strconv.Atoi(limStr); err == nil && lim < len(rows) {
			rows = rows[:lim]
		}
	}

	resp := map[string]any{
		"tables": []map[string]any{
			{
				"name":    "PrimaryResult",
				"columns": []map[string]string{{"name": "TimeGenerated"}, {"name": "Computer"}, {"name": "Level"}, {"name": "Message"}},
				"rows":    rows,
			},
		},
	}
	json.NewEncoder(w).Encode(resp)
}

func getResources(w http.ResponseWriter, r *http.Request) {
	log.Println("MOCK URL:", r.URL.String())

	group := r.URL.Query().Get("resource_group")
	rtype := r.URL.Query().Get("resource_type")

	all := []map[string]any{
		{"name": "vm-web-01", "resourceGroup": "rg-prod", "type": "Microsoft.Compute/virtualMachines", "location": "westeurope"},
		{"name": "vm-db-02", "resourceGroup": "rg-prod", "type": "Microsoft.Compute/virtualMachines", "location": "westeurope"},
		{"name": "st-logs", "resourceGroup": "rg-shared", "type": "Microsoft.Storage/storageAccounts", "location": "westeurope"},
	}

	out := make([]map[string]any, 0, len(all))
	for _, res := range all {
		if group != "" && res["resourceGroup"] != group {
			continue
		}
		if rtype != "" && res["type"] != rtype {
			continue
		}
		out = append(out, res)
	}
	json.NewEncoder(w).Encode(map[string]any{"value": out})
}

func getResourceShow(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("resource_id")
	resp := map[string]any{
		"id":       id,
		"location": "westeurope",
		"properties": map[string]any{
			"provisioningState": "Succeeded",
			"hardwareProfile":   map[string]any{"vmSize": "Standard_D2s_v3"},
			"powerState":        "PowerState/running",
		},
		"tags": map[string]string{"env": "prod"},
	}
	json.NewEncoder(w).Encode(resp)
}

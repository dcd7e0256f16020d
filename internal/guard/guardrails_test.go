package guard

import (
    "testing"
    "time"

    "github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
)

func TestParseISODuration(t *testing.T) {
    cases := map[string]time.Duration{
        "PT1M":    time.Minute,
        "PT1H":    time.Hour,
        "P1D":     24 * time.Hour,
        "P1DT12H": 36 * time.Hour,
        "PT30S":   30 * time.Second,
    }
    for in, want := range cases {
        got, err := ParseISODuration(in)
        if err != nil {
            t.Fatalf("ParseISODuration(%q) error: %v", in, err)
        }
        if got != want {
            t.Fatalf("ParseISODuration(%q) = %v, want %v", in, got, want)
        }
    }

    for _, bad := range []string{"", "P", "1h", "PT", "banana"} {
        if _, err := ParseISODuration(bad); err == nil {
            t.Fatalf("expected error for %q", bad)
        }
    }
}

func TestValidateKQL(t *testing.T) {
    t.Run("plain read query passes", func(t *testing.T) {
        q := `AzureActivity | where Level == "Error" | take 20`
        if err := ValidateKQL(q); err != nil {
            t.Fatalf("unexpected: %v", err)
        }
    })

    t.Run("empty query fails", func(t *testing.T) {
        if err := ValidateKQL("   "); err == nil {
            t.Fatalf("expected error for empty query")
        }
    })

    t.Run("management command fails", func(t *testing.T) {
        if err := ValidateKQL(".drop table AzureActivity"); err == nil {
            t.Fatalf("expected error for management command")
        }
    })

    t.Run("externaldata fails", func(t *testing.T) {
        q := `let x = externaldata(a:string) ["https://evil/x.csv"]; x`
        if err := ValidateKQL(q); err == nil {
            t.Fatalf("expected error for externaldata")
        }
    })

    t.Run("ingest hidden mid-query fails", func(t *testing.T) {
        q := `AzureActivity | take 1; .ingest inline into table T <| 1`
        if err := ValidateKQL(q); err == nil {
            t.Fatalf("expected error for ingest")
        }
    })
}

func TestValidateToolPermissions(t *testing.T) {
    dangerous := config.Tool{Name: "resource_restart", Mode: "dangerous"}
    read := config.Tool{Name: "resource_list", Mode: "read"}

    if err := ValidateToolPermissions(dangerous, config.Policy{AllowDangerous: false}); err == nil {
        t.Fatalf("expected error when dangerous tool not allowed")
    }
    if err := ValidateToolPermissions(dangerous, config.Policy{AllowDangerous: true}); err != nil {
        t.Fatalf("unexpected: %v", err)
    }
    if err := ValidateToolPermissions(read, config.Policy{}); err != nil {
        t.Fatalf("unexpected: %v", err)
    }
}

func TestValidateTimespan(t *testing.T) {
    pol := config.Policy{MaxTimespan: "P1D"}

    t.Run("within max passes", func(t *testing.T) {
        if err := ValidateTimespan(pol, map[string]string{"timespan": "PT1H"}); err != nil {
            t.Fatalf("unexpected: %v", err)
        }
    })

    t.Run("over max fails", func(t *testing.T) {
        if err := ValidateTimespan(pol, map[string]string{"timespan": "P1DT1H"}); err == nil {
            t.Fatalf("expected error over max window")
        }
    })

    t.Run("missing timespan passes", func(t *testing.T) {
        if err := ValidateTimespan(pol, map[string]string{}); err != nil {
            t.Fatalf("unexpected: %v", err)
        }
    })

    t.Run("no policy max passes anything", func(t *testing.T) {
        if err := ValidateTimespan(config.Policy{}, map[string]string{"timespan": "P30D"}); err != nil {
            t.Fatalf("unexpected: %v", err)
        }
    })
}

func TestValidateRowLimit(t *testing.T) {
    pol := config.Policy{MaxRows: 500}

    if err := ValidateRowLimit(pol, map[string]string{"limit": "100"}); err != nil {
        t.Fatalf("unexpected: %v", err)
    }
    if err := ValidateRowLimit(pol, map[string]string{"limit": "501"}); err == nil {
        t.Fatalf("expected error over max rows")
    }
    if err := ValidateRowLimit(pol, map[string]string{"limit": "abc"}); err == nil {
        t.Fatalf("expected error for non-numeric limit")
    }
    if err := ValidateRowLimit(pol, map[string]string{}); err != nil {
        t.Fatalf("unexpected: %v", err)
    }
}

func TestValidateAll(t *testing.T) {
    tool := config.Tool{Name: "monitor_log_query", Mode: "read"}
    pol := config.Policy{Tool: "monitor_log_query", MaxRows: 500, MaxTimespan: "P1D"}

    params := map[string]string{
        "query":    `AzureActivity | where Level == "Error"`,
        "timespan": "PT6H",
        "limit":    "200",
    }
    if err := ValidateAll(tool, pol, params); err != nil {
        t.Fatalf("unexpected: %v", err)
    }

    // Failing case: KQL management command slips in
    params["query"] = ".drop table X"
    if err := ValidateAll(tool, pol, params); err == nil {
        t.Fatalf("expected error for denied KQL")
    }
}

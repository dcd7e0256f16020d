package guard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/config"
)

// ---- helpers internos ----

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration parses the subset of ISO-8601 durations the monitor
// APIs use (P1D, PT1H, PT5M, P1DT12H...).
func ParseISODuration(s string) (time.Duration, error) {
	m := isoDurationRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil || s == "" || strings.ToUpper(s) == "P" {
		return 0, fmt.Errorf("duración ISO-8601 inválida: %q", s)
	}
	var d time.Duration
	if m[1] != "" {
		n, _ := strconv.Atoi(m[1])
		d += time.Duration(n) * 24 * time.Hour
	}
	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		d += time.Duration(n) * time.Hour
	}
	if m[3] != "" {
		n, _ := strconv.Atoi(m[3])
		d += time.Duration(n) * time.Minute
	}
	if m[4] != "" {
		n, _ := strconv.Atoi(m[4])
		d += time.Duration(n) * time.Second
	}
	if d == 0 {
		return 0, fmt.Errorf("duración ISO-8601 vacía: %q", s)
	}
	return d, nil
}

// kqlDenied lists constructs a read-only diagnostics query must never use:
// management commands and external data pulls.
var kqlDenied = []string{
	".ingest",
	".drop",
	".delete",
	".set",
	".alter",
	"externaldata",
}

// ValidateKQL rejects queries that are not plain read-only searches.
func ValidateKQL(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return fmt.Errorf("query KQL vacía")
	}
	if strings.HasPrefix(q, ".") {
		return fmt.Errorf("query KQL no puede ser un management command: %q", firstLine(q))
	}
	lower := strings.ToLower(q)
	for _, bad := range kqlDenied {
		if strings.Contains(lower, bad) {
			return fmt.Errorf("query KQL contiene construcción prohibida %q", bad)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Tool de modo dangerous solo con policy explícita
func ValidateToolPermissions(t config.Tool, pol config.Policy) error {
	if t.Mode == "dangerous" && !pol.AllowDangerous {
		return fmt.Errorf("la tool '%s' es peligrosa y la policy no lo permite", t.Name)
	}
	return nil
}

// ValidateTimespan caps the requested window against the policy maximum.
func ValidateTimespan(pol config.Policy, params map[string]string) error {
	if pol.MaxTimespan == "" {
		return nil
	}
	span := params["timespan"]
	if span == "" {
		return nil
	}
	max, err := ParseISODuration(pol.MaxTimespan)
	if err != nil {
		return fmt.Errorf("policy max_timespan inválido: %w", err)
	}
	got, err := ParseISODuration(span)
	if err != nil {
		return fmt.Errorf("timespan inválido: %w", err)
	}
	if got > max {
		return fmt.Errorf("timespan %s excede el máximo permitido %s", span, pol.MaxTimespan)
	}
	return nil
}

// ValidateRowLimit caps the requested row count against the policy maximum.
func ValidateRowLimit(pol config.Policy, params map[string]string) error {
	if pol.MaxRows <= 0 {
		return nil
	}
	raw := params["limit"]
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fmt.Errorf("limit inválido: %s", raw)
	}
	if n > pol.MaxRows {
		return fmt.Errorf("limit %d excede el máximo permitido %d", n, pol.MaxRows)
	}
	return nil
}

// ---- API pública: un solo punto de entrada ----

func ValidateAll(t config.Tool, pol config.Policy, params map[string]string) error {
	if err := ValidateToolPermissions(t, pol); err != nil {
		return err
	}
	if q, ok := params["query"]; ok {
		if err := ValidateKQL(q); err != nil {
			return err
		}
	}
	if err := ValidateTimespan(pol, params); err != nil {
		return err
	}
	if err := ValidateRowLimit(pol, params); err != nil {
		return err
	}
	return nil
}

package llm

import (
	"math"
	"os"
	"strings"
	"time"

	"github.com/promptcheck/promptcheck/internal/config"
)

// credentialFor looks up a backend credential: environment variable first,
// then the config credential bag.
func credentialFor(cfg *config.Config, envVar, provider string) string {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v
	}
	return cfg.APIKey(provider)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func stringValues(v any) []string {
	switch s := v.(type) {
	case string:
		if t := strings.TrimSpace(s); t != "" {
			return []string{t}
		}
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

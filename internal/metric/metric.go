// Package metric scores LLM responses against test case expectations.
package metric

import (
	"strings"

	"github.com/promptcheck/promptcheck/internal/config"
	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// ScoreNA marks a score a calculator could not produce.
const ScoreNA = "N/A"

// Result is one metric's verdict for one test case.
type Result struct {
	Name    string
	Score   any // bool, float64, string, or a keyed map per metric kind
	Passed  *bool
	Details map[string]any
	Error   string
}

// Metric scores one aspect of an LLM response. Calculate never panics and
// never returns a Go error: internal failures land on the Result with the
// score left at ScoreNA and Passed forced false. A nil Passed means the
// metric is descriptive for this configuration.
type Metric interface {
	Name() string
	Calculate(tc testcase.TestCase, resp *llm.Response) Result
}

// New returns the calculator registered under the config's metric name,
// configured with its parameters and threshold. Latency and cost ceilings
// left unset by the test case are backfilled from the global defaults.
// Unknown names return false.
func New(cfg testcase.MetricConfig, defaults config.DefaultThresholds) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(cfg.Metric)) {
	case "exact_match":
		return ExactMatch{}, true
	case "regex_match":
		return RegexMatch{}, true
	case "rouge", "rouge_l", "rougel", "rougel_f1":
		return RougeL{Floor: floorFrom(cfg.Threshold)}, true
	case "bleu":
		return Bleu{Floor: floorFrom(cfg.Threshold)}, true
	case "token_count":
		return TokenCount{
			CountTypes:    countTypes(cfg.Parameters),
			CompletionMax: completionMaxFrom(cfg.Threshold),
		}, true
	case "latency":
		ceiling := valueFrom(cfg.Threshold)
		if ceiling == nil && defaults.LatencyP95Ms != nil {
			ms := float64(*defaults.LatencyP95Ms)
			ceiling = &ms
		}
		return Latency{Ceiling: ceiling}, true
	case "cost":
		ceiling := valueFrom(cfg.Threshold)
		if ceiling == nil && defaults.CostPerRunUSD != nil {
			usd := *defaults.CostPerRunUSD
			ceiling = &usd
		}
		return Cost{Ceiling: ceiling}, true
	default:
		return nil, false
	}
}

func floorFrom(th *testcase.Threshold) *float64 {
	if th == nil {
		return nil
	}
	return th.FScore
}

func valueFrom(th *testcase.Threshold) *float64 {
	if th == nil {
		return nil
	}
	return th.Value
}

func completionMaxFrom(th *testcase.Threshold) *int {
	if th == nil {
		return nil
	}
	return th.CompletionMax
}

func countTypes(params map[string]any) []string {
	raw, ok := params["count_types"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func verdict(b bool) *bool { return &b }

func failure(name, msg string) Result {
	return Result{Name: name, Score: ScoreNA, Passed: verdict(false), Error: msg}
}

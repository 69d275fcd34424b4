package metric

import (
	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// Latency reports the call latency in milliseconds. A Ceiling, when set,
// turns the value into a pass/fail check; without one the metric is
// descriptive.
type Latency struct {
	Ceiling *float64
}

func (Latency) Name() string { return "latency" }

func (m Latency) Calculate(tc testcase.TestCase, resp *llm.Response) Result {
	if resp == nil {
		return failure(m.Name(), "no response to score")
	}
	if resp.LatencyMs == nil {
		if m.Ceiling != nil {
			return failure(m.Name(), "latency not measured for this call")
		}
		return Result{
			Name:    m.Name(),
			Score:   ScoreNA,
			Details: map[string]any{"reason": "latency not measured for this call"},
		}
	}

	out := Result{Name: m.Name(), Score: *resp.LatencyMs}
	if m.Ceiling != nil {
		passed := *resp.LatencyMs <= *m.Ceiling
		out.Passed = verdict(passed)
		if !passed {
			out.Details = map[string]any{
				"latency_ms": *resp.LatencyMs,
				"ceiling_ms": *m.Ceiling,
			}
		}
	}
	return out
}

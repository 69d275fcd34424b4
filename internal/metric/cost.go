package metric

import (
	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// Cost reports the estimated USD cost of the call. Most backends report no
// cost, in which case the metric stays descriptive unless a Ceiling demands
// a value.
type Cost struct {
	Ceiling *float64
}

func (Cost) Name() string { return "cost" }

func (m Cost) Calculate(tc testcase.TestCase, resp *llm.Response) Result {
	if resp == nil {
		return failure(m.Name(), "no response to score")
	}
	if resp.Cost == nil {
		if m.Ceiling != nil {
			return failure(m.Name(), "cost not reported by the backend")
		}
		return Result{
			Name:    m.Name(),
			Score:   ScoreNA,
			Details: map[string]any{"reason": "cost not reported by the backend"},
		}
	}

	out := Result{Name: m.Name(), Score: *resp.Cost}
	if m.Ceiling != nil {
		passed := *resp.Cost <= *m.Ceiling
		out.Passed = verdict(passed)
		if !passed {
			out.Details = map[string]any{
				"cost_usd":    *resp.Cost,
				"ceiling_usd": *m.Ceiling,
			}
		}
	}
	return out
}

package metric

import (
	"strings"

	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// TokenCount reports the requested token counts off the response. The only
// threshold it understands is CompletionMax, a ceiling on completion tokens.
type TokenCount struct {
	CountTypes    []string
	CompletionMax *int
}

func (TokenCount) Name() string { return "token_count" }

func (m TokenCount) Calculate(tc testcase.TestCase, resp *llm.Response) Result {
	if resp == nil {
		return failure(m.Name(), "no response to score")
	}

	noUsage := resp.PromptTokens == nil && resp.CompletionTokens == nil && resp.TotalTokens == nil
	if noUsage {
		if m.CompletionMax != nil {
			return failure(m.Name(), "token usage not reported by the backend")
		}
		return Result{
			Name:    m.Name(),
			Score:   ScoreNA,
			Details: map[string]any{"reason": "token usage not reported by the backend"},
		}
	}

	kinds := m.CountTypes
	if len(kinds) == 0 {
		kinds = []string{"prompt", "completion", "total"}
	}

	score := make(map[string]any, len(kinds))
	var ignored []string
	for _, kind := range kinds {
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "prompt", "prompt_tokens":
			score["prompt_tokens"] = intOrNil(resp.PromptTokens)
		case "completion", "completion_tokens":
			score["completion_tokens"] = intOrNil(resp.CompletionTokens)
		case "total", "total_tokens":
			score["total_tokens"] = intOrNil(resp.TotalTokens)
		default:
			ignored = append(ignored, kind)
		}
	}

	out := Result{Name: m.Name(), Score: score}
	if len(ignored) > 0 {
		out.Details = map[string]any{"ignored_count_types": ignored}
	}

	if m.CompletionMax != nil {
		if resp.CompletionTokens == nil {
			return failure(m.Name(), "completion token count not reported by the backend")
		}
		passed := *resp.CompletionTokens <= *m.CompletionMax
		out.Passed = verdict(passed)
		if !passed {
			if out.Details == nil {
				out.Details = make(map[string]any, 2)
			}
			out.Details["completion_tokens"] = *resp.CompletionTokens
			out.Details["completion_max"] = *m.CompletionMax
		}
	}
	return out
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// Package runner executes test cases against LLM providers and assembles
// the run report.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/promptcheck/promptcheck/internal/config"
	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/metric"
	"github.com/promptcheck/promptcheck/internal/prompt"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// Runner executes test cases one at a time against a per-run provider
// registry. The registry caches one provider instance per backend name so
// credentials and clients are set up once per run.
type Runner struct {
	cfg       *config.Config
	providers *llm.Registry
}

// New builds a Runner. A nil config falls back to the built-in defaults, a
// nil registry gets a fresh one scoped to this runner.
func New(cfg *config.Config, providers *llm.Registry) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	if providers == nil {
		providers = llm.NewRegistry(cfg)
	}
	return &Runner{cfg: cfg, providers: providers}
}

// RunCase executes a single test case end to end: resolve the model
// selection, render the prompt, call the provider, score every configured
// metric in declared order. Every failure mode degrades to fields on the
// returned output; RunCase itself never fails and always returns exactly
// one TestCaseOutput.
func (r *Runner) RunCase(ctx context.Context, tc testcase.TestCase) TestCaseOutput {
	if ctx == nil {
		ctx = context.Background()
	}
	slog.Info("executing test case", "name", tc.Name, "id", tc.ID)

	out := TestCaseOutput{
		TestCaseID:          strOrNil(tc.ID),
		TestCaseName:        tc.Name,
		TestCaseDescription: strOrNil(tc.Description),
		PromptSent:          tc.Input.Prompt,
		Metrics:             []MetricOutput{},
	}

	resp := r.callProvider(ctx, tc, &out)
	fillResponseFields(&out, resp)

	overall := resp.Error == ""
	for _, mc := range tc.Metrics {
		calc, ok := metric.New(mc, r.cfg.DefaultThresholds)
		if !ok {
			slog.Warn("metric calculator not found", "metric", mc.Metric, "test", tc.Name)
			out.Metrics = append(out.Metrics, MetricOutput{
				MetricName: mc.Metric,
				Score:      metric.ScoreNA,
				Passed:     boolPtr(false),
				Error:      strOrNil("Calculator not found"),
			})
			overall = false
			continue
		}

		res := calc.Calculate(tc, resp)
		out.Metrics = append(out.Metrics, MetricOutput{
			MetricName: mc.Metric,
			Score:      res.Score,
			Passed:     res.Passed,
			Details:    res.Details,
			Error:      strOrNil(res.Error),
		})
		if res.Passed != nil && !*res.Passed {
			overall = false
		}
	}

	out.OverallTestPassed = overall
	return out
}

// callProvider walks the pre-call stages and performs the LLM call. Stage
// failures come back as a synthetic error response so metrics still run
// against a well-formed value.
func (r *Runner) callProvider(ctx context.Context, tc testcase.TestCase, out *TestCaseOutput) *llm.Response {
	resolved, err := config.Resolve(tc.Model, r.cfg)
	if err != nil {
		slog.Error("model config did not resolve", "test", tc.Name, "error", err)
		return &llm.Response{Error: err.Error(), ModelNameUsed: tc.Model.ModelName}
	}

	rendered, err := prompt.Render(tc.Input.Prompt, tc.Input.Variables)
	if err != nil {
		slog.Error("prompt render failed", "test", tc.Name, "error", err)
		return &llm.Response{Error: err.Error(), ModelNameUsed: resolved.ModelName}
	}
	out.PromptSent = rendered

	provider, ok := r.providers.Get(resolved.Provider)
	if !ok {
		slog.Error("provider not found, skipping llm call", "provider", resolved.Provider, "test", tc.Name)
		return &llm.Response{
			Error:         fmt.Sprintf("Provider '%s' not found.", resolved.Provider),
			ModelNameUsed: resolved.ModelName,
		}
	}

	slog.Info("calling provider", "provider", resolved.Provider, "model", resolved.ModelName)
	resp := llm.Call(ctx, provider, r.cfg, tc.Name, rendered, resolved)
	if resp.Error != "" {
		slog.Error("llm call failed", "test", tc.Name, "error", resp.Error)
	}
	return resp
}

func fillResponseFields(out *TestCaseOutput, resp *llm.Response) {
	if resp == nil {
		return
	}
	if resp.Error == "" || resp.TextOutput != "" {
		text := resp.TextOutput
		out.LLMTextOutput = &text
	}
	out.LLMPromptTokens = resp.PromptTokens
	out.LLMCompletionTokens = resp.CompletionTokens
	out.LLMTotalTokens = resp.TotalTokens
	out.LLMCost = resp.Cost
	out.LLMLatencyMs = resp.LatencyMs
	out.LLMModelNameUsed = strOrNil(resp.ModelNameUsed)
	out.LLMError = strOrNil(resp.Error)
}

package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/promptcheck/promptcheck/internal/config"
	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/testcase"
	"github.com/promptcheck/promptcheck/internal/version"
)

// Execute runs every test case strictly in input order and assembles one
// complete RunOutput. The provider registry lives for exactly this run.
// Cancelling the context stops the run between test cases; cases already
// executed stay in the report, so total_tests_executed may fall short of
// total_tests_configured.
func Execute(ctx context.Context, cfg *config.Config, cases []testcase.TestCase) *RunOutput {
	if cfg == nil {
		cfg = config.Default()
	}
	return execute(ctx, cfg, cases, llm.NewRegistry(cfg))
}

func execute(ctx context.Context, cfg *config.Config, cases []testcase.TestCase, providers *llm.Registry) *RunOutput {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	r := New(cfg, providers)

	out := &RunOutput{
		RunID:                uuid.NewString(),
		RunTimestampUTC:      time.Now().UTC().Format(time.RFC3339),
		PromptcheckVersion:   version.Version,
		TotalTestsConfigured: len(cases),
		TestResults:          make([]TestCaseOutput, 0, len(cases)),
	}

	slog.Info("beginning test execution", "configured", len(cases))
	for _, tc := range cases {
		if ctx.Err() != nil {
			slog.Warn("run canceled, stopping",
				"executed", len(out.TestResults), "configured", len(cases))
			break
		}

		result := r.RunCase(ctx, tc)
		out.TestResults = append(out.TestResults, result)
		if result.OverallTestPassed {
			out.TotalTestsPassed++
			slog.Info("test case passed", "name", tc.Name)
		} else {
			out.TotalTestsFailed++
			slog.Info("test case failed", "name", tc.Name)
		}
	}
	out.TotalTestsExecuted = len(out.TestResults)

	slog.Info("test execution finished",
		"executed", out.TotalTestsExecuted,
		"passed", out.TotalTestsPassed,
		"failed", out.TotalTestsFailed)
	return out
}

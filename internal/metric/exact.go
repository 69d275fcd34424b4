package metric

import (
	"strings"

	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// ExactMatch compares the trimmed response text against the expected string.
type ExactMatch struct{}

func (ExactMatch) Name() string { return "exact_match" }

func (m ExactMatch) Calculate(tc testcase.TestCase, resp *llm.Response) Result {
	if resp == nil {
		return failure(m.Name(), "no response to score")
	}
	want := tc.Expected.ExactMatchString
	if want == nil {
		return failure(m.Name(), "no exact_match_string in expected output")
	}

	expected := strings.TrimSpace(*want)
	actual := strings.TrimSpace(resp.TextOutput)
	match := actual == expected

	r := Result{Name: m.Name(), Score: match, Passed: verdict(match)}
	if !match {
		r.Details = map[string]any{"expected": expected, "actual": actual}
	}
	return r
}

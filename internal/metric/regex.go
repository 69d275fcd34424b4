package metric

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// RegexMatch searches the response text for the expected pattern. Search
// semantics: the pattern may match anywhere, it is not anchored.
type RegexMatch struct{}

func (RegexMatch) Name() string { return "regex_match" }

func (m RegexMatch) Calculate(tc testcase.TestCase, resp *llm.Response) Result {
	if resp == nil {
		return failure(m.Name(), "no response to score")
	}
	want := tc.Expected.RegexPattern
	if want == nil || strings.TrimSpace(*want) == "" {
		return failure(m.Name(), "no regex_pattern in expected output")
	}

	re, err := regexp.Compile(*want)
	if err != nil {
		return failure(m.Name(), fmt.Sprintf("invalid regex pattern: %v", err))
	}

	matched := re.MatchString(resp.TextOutput)
	r := Result{Name: m.Name(), Score: matched, Passed: verdict(matched)}
	if !matched {
		r.Details = map[string]any{"pattern": *want}
	}
	return r
}

package metric

import (
	"strings"
	"unicode"

	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// RougeL scores the response against each reference text with ROUGE-L F1
// and keeps the best. A Floor, when set, turns the score into a pass/fail
// check; without one the metric is descriptive.
type RougeL struct {
	Floor *float64
}

func (RougeL) Name() string { return "rouge_l" }

func (m RougeL) Calculate(tc testcase.TestCase, resp *llm.Response) Result {
	if resp == nil {
		return failure(m.Name(), "no response to score")
	}
	refs := tc.Expected.ReferenceTexts
	if len(refs) == 0 {
		return failure(m.Name(), "no reference_texts in expected output")
	}

	candidate := tokenize(resp.TextOutput)
	var bestF, bestP, bestR float64
	for _, ref := range refs {
		p, r, f := rougeLScores(tokenize(ref), candidate)
		if f > bestF {
			bestF, bestP, bestR = f, p, r
		}
	}

	out := Result{
		Name:  m.Name(),
		Score: bestF,
		Details: map[string]any{
			"precision": bestP,
			"recall":    bestR,
		},
	}
	if m.Floor != nil {
		out.Passed = verdict(bestF >= *m.Floor)
	}
	return out
}

// rougeLScores returns precision, recall and F1 for one reference.
func rougeLScores(reference, candidate []string) (p, r, f float64) {
	if len(reference) == 0 || len(candidate) == 0 {
		return 0, 0, 0
	}
	lcs := float64(lcsLength(reference, candidate))
	p = lcs / float64(len(candidate))
	r = lcs / float64(len(reference))
	if p+r == 0 {
		return p, r, 0
	}
	return p, r, 2 * p * r / (p + r)
}

// lcsLength computes the longest common subsequence length over tokens,
// keeping only two DP rows.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
		for j := range cur {
			cur[j] = 0
		}
	}
	return prev[len(b)]
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

package metric

import (
	"math"

	"github.com/promptcheck/promptcheck/internal/llm"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// bleuEpsilon smooths zero n-gram matches so a single missing order does
// not zero the whole geometric mean.
const bleuEpsilon = 0.1

// Bleu scores the response against the reference texts with sentence BLEU
// up to 4-grams. A Floor, when set, turns the score into a pass/fail check.
type Bleu struct {
	Floor *float64
}

func (Bleu) Name() string { return "bleu" }

func (m Bleu) Calculate(tc testcase.TestCase, resp *llm.Response) Result {
	if resp == nil {
		return failure(m.Name(), "no response to score")
	}
	if len(tc.Expected.ReferenceTexts) == 0 {
		return failure(m.Name(), "no reference_texts in expected output")
	}

	refs := make([][]string, 0, len(tc.Expected.ReferenceTexts))
	for _, ref := range tc.Expected.ReferenceTexts {
		refs = append(refs, tokenize(ref))
	}
	candidate := tokenize(resp.TextOutput)

	score, bp, order := sentenceBleu(refs, candidate)
	out := Result{
		Name:  m.Name(),
		Score: score,
		Details: map[string]any{
			"brevity_penalty": bp,
			"ngram_order":     order,
		},
	}
	if m.Floor != nil {
		out.Passed = verdict(score >= *m.Floor)
	}
	return out
}

// sentenceBleu computes BLEU over n-gram orders 1..min(4, len(candidate)),
// clipping candidate n-gram counts against the best reference count and
// smoothing zero matches with bleuEpsilon.
func sentenceBleu(refs [][]string, candidate []string) (score, bp float64, order int) {
	order = len(candidate)
	if order > 4 {
		order = 4
	}
	if order == 0 {
		return 0, 0, 0
	}

	var logSum float64
	for n := 1; n <= order; n++ {
		matched, total := clippedMatches(refs, candidate, n)
		p := float64(matched) / float64(total)
		if matched == 0 {
			p = bleuEpsilon / float64(total)
		}
		logSum += math.Log(p)
	}

	bp = brevityPenalty(refs, len(candidate))
	return bp * math.Exp(logSum/float64(order)), bp, order
}

// clippedMatches counts candidate n-grams, capped per n-gram at the highest
// count any single reference carries.
func clippedMatches(refs [][]string, candidate []string, n int) (matched, total int) {
	cand := ngramCounts(candidate, n)
	for _, count := range cand {
		total += count
	}

	best := make(map[string]int)
	for _, ref := range refs {
		for gram, count := range ngramCounts(ref, n) {
			if count > best[gram] {
				best[gram] = count
			}
		}
	}

	for gram, count := range cand {
		if allowed := best[gram]; count < allowed {
			matched += count
		} else {
			matched += allowed
		}
	}
	return matched, total
}

func ngramCounts(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		gram := tokens[i]
		for j := 1; j < n; j++ {
			gram += " " + tokens[i+j]
		}
		counts[gram]++
	}
	return counts
}

// brevityPenalty compares the candidate length against the closest
// reference length, preferring the shorter reference on ties.
func brevityPenalty(refs [][]string, candLen int) float64 {
	if candLen == 0 {
		return 0
	}
	closest := -1
	for _, ref := range refs {
		rl := len(ref)
		if closest < 0 {
			closest = rl
			continue
		}
		dNew := rl - candLen
		if dNew < 0 {
			dNew = -dNew
		}
		dOld := closest - candLen
		if dOld < 0 {
			dOld = -dOld
		}
		if dNew < dOld || (dNew == dOld && rl < closest) {
			closest = rl
		}
	}
	if candLen >= closest {
		return 1
	}
	return math.Exp(1 - float64(closest)/float64(candLen))
}

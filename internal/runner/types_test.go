package runner

import (
	"encoding/json"
	"testing"
)

func keysOf(t *testing.T, v any) map[string]json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func assertExactKeys(t *testing.T, got map[string]json.RawMessage, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("field count: got %d want %d (%v)", len(got), len(want), got)
	}
	for _, k := range want {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing field %q in %v", k, got)
		}
	}
}

// The JSON field names are a wire contract with downstream report readers.
func TestReportFieldNames(t *testing.T) {
	t.Parallel()

	run := keysOf(t, RunOutput{TestResults: []TestCaseOutput{}})
	assertExactKeys(t, run, []string{
		"run_id", "run_timestamp_utc", "promptcheck_version",
		"total_tests_configured", "total_tests_executed",
		"total_tests_passed", "total_tests_failed", "test_results",
	})

	tc := keysOf(t, TestCaseOutput{Metrics: []MetricOutput{}})
	assertExactKeys(t, tc, []string{
		"test_case_id", "test_case_name", "test_case_description",
		"prompt_sent", "llm_text_output", "llm_prompt_tokens",
		"llm_completion_tokens", "llm_total_tokens", "llm_cost",
		"llm_latency_ms", "llm_model_name_used", "llm_error",
		"metrics", "overall_test_passed",
	})

	m := keysOf(t, MetricOutput{})
	assertExactKeys(t, m, []string{"metric_name", "score", "passed", "details", "error"})
}

func TestReportNullsAndEmpties(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(TestCaseOutput{TestCaseName: "x", Metrics: []MetricOutput{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, field := range []string{"test_case_id", "llm_text_output", "llm_error", "llm_cost", "llm_latency_ms"} {
		if m[field] != nil {
			t.Fatalf("%s: got %v want null", field, m[field])
		}
	}
	metrics, ok := m["metrics"].([]any)
	if !ok || len(metrics) != 0 {
		t.Fatalf("metrics: got %v want []", m["metrics"])
	}
	if m["overall_test_passed"] != false {
		t.Fatalf("overall_test_passed: got %v", m["overall_test_passed"])
	}
}

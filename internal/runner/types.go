package runner

// MetricOutput is one metric's row in a test case's report entry. Score is
// polymorphic: bool, number, string sentinel, or a keyed map depending on
// the metric. Passed stays null for descriptive metrics.
type MetricOutput struct {
	MetricName string         `json:"metric_name"`
	Score      any            `json:"score"`
	Passed     *bool          `json:"passed"`
	Details    map[string]any `json:"details"`
	Error      *string        `json:"error"`
}

// TestCaseOutput is the denormalized report entry for one executed test
// case: identity, the prompt actually sent, the call outcome, and every
// metric verdict. Optional fields are pointers so absence serializes as
// null, which downstream report renderers depend on.
type TestCaseOutput struct {
	TestCaseID          *string        `json:"test_case_id"`
	TestCaseName        string         `json:"test_case_name"`
	TestCaseDescription *string        `json:"test_case_description"`
	PromptSent          string         `json:"prompt_sent"`
	LLMTextOutput       *string        `json:"llm_text_output"`
	LLMPromptTokens     *int           `json:"llm_prompt_tokens"`
	LLMCompletionTokens *int           `json:"llm_completion_tokens"`
	LLMTotalTokens      *int           `json:"llm_total_tokens"`
	LLMCost             *float64       `json:"llm_cost"`
	LLMLatencyMs        *float64       `json:"llm_latency_ms"`
	LLMModelNameUsed    *string        `json:"llm_model_name_used"`
	LLMError            *string        `json:"llm_error"`
	Metrics             []MetricOutput `json:"metrics"`
	OverallTestPassed   bool           `json:"overall_test_passed"`
}

// RunOutput is the complete report for one run: identity, totals, and the
// per-case results in input order. One is produced per invocation and is
// the unit of persistence.
type RunOutput struct {
	RunID                string           `json:"run_id"`
	RunTimestampUTC      string           `json:"run_timestamp_utc"`
	PromptcheckVersion   string           `json:"promptcheck_version"`
	TotalTestsConfigured int              `json:"total_tests_configured"`
	TotalTestsExecuted   int              `json:"total_tests_executed"`
	TotalTestsPassed     int              `json:"total_tests_passed"`
	TotalTestsFailed     int              `json:"total_tests_failed"`
	TestResults          []TestCaseOutput `json:"test_results"`
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolPtr(b bool) *bool { return &b }

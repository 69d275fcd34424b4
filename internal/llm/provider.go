// Package llm abstracts the LLM backends behind one Provider interface and
// a shared call policy that owns credentials checks, timeouts, and retries.
package llm

import "context"

// Message is one chat turn sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AttemptRequest carries what a backend needs for a single call attempt.
// Parameters holds model knobs only; the orchestration knobs timeout_s and
// retry_attempts are stripped before the request is built.
type AttemptRequest struct {
	Model      string
	Messages   []Message
	Parameters map[string]any
}

// Response is the outcome of one logical provider call, after any retries.
// Optional measurements are pointers so absence survives into the report.
type Response struct {
	TextOutput       string
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
	Cost             *float64
	LatencyMs        *float64
	ModelNameUsed    string
	RawResponse      any
	Error            string
	AttemptsMade     int
}

// Provider is one LLM backend. ExecuteAttempt performs exactly one network
// call: a transient failure comes back as a *TransientError for the shared
// retry policy, a non-transient failure as a Response carrying the error
// string.
type Provider interface {
	Name() string
	Credential() string
	NeedsCredential() bool
	ExecuteAttempt(ctx context.Context, req *AttemptRequest) (*Response, error)
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/promptcheck/promptcheck/internal/config"
)

func TestMain(m *testing.M) {
	// Real backoff starts at one second; tests should not wait for that.
	retryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// fakeProvider scripts attempt outcomes and records what Call sends it.
type fakeProvider struct {
	name      string
	cred      string
	noCred    bool
	reply     string
	failFirst int
	err       error

	mu        sync.Mutex
	attempts  int
	lastReq   *AttemptRequest
	remaining time.Duration
}

func (f *fakeProvider) Name() string          { return f.name }
func (f *fakeProvider) Credential() string    { return f.cred }
func (f *fakeProvider) NeedsCredential() bool { return !f.noCred }

func (f *fakeProvider) ExecuteAttempt(ctx context.Context, req *AttemptRequest) (*Response, error) {
	f.mu.Lock()
	f.attempts++
	n := f.attempts
	f.lastReq = req
	if deadline, ok := ctx.Deadline(); ok {
		f.remaining = time.Until(deadline)
	}
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if n <= f.failFirst {
		return nil, transient(KindRateLimit, fmt.Errorf("throttled %d", n))
	}
	return &Response{TextOutput: f.reply}, nil
}

func (f *fakeProvider) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeProvider) request() *AttemptRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func intp(n int) *int           { return &n }
func floatp(f float64) *float64 { return &f }

func TestCall_MissingCredential(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{name: "openai"}
	mc := config.ModelConfig{Provider: "openai", ModelName: "gpt-4o"}

	resp := Call(context.Background(), f, config.Default(), "cred test", "hi", mc)
	want := "openai API key not found in configuration for test: cred test"
	if resp.Error != want {
		t.Fatalf("Error: got %q want %q", resp.Error, want)
	}
	if resp.AttemptsMade != 1 {
		t.Fatalf("AttemptsMade: got %d want 1", resp.AttemptsMade)
	}
	if resp.ModelNameUsed != "gpt-4o" {
		t.Fatalf("ModelNameUsed: got %q want %q", resp.ModelNameUsed, "gpt-4o")
	}
	if f.attemptCount() != 0 {
		t.Fatalf("attempts: got %d want 0", f.attemptCount())
	}
}

func TestCall_NoCredentialBackendSkipsCheck(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{name: "dummy", noCred: true, reply: "ok"}
	mc := config.ModelConfig{Provider: "dummy", ModelName: "dummy-model"}

	resp := Call(context.Background(), f, config.Default(), "dummy test", "hi", mc)
	if resp.Error != "" {
		t.Fatalf("Error: got %q want empty", resp.Error)
	}
	if resp.TextOutput != "ok" {
		t.Fatalf("TextOutput: got %q", resp.TextOutput)
	}
	if resp.ModelNameUsed != "dummy-model" {
		t.Fatalf("ModelNameUsed: got %q want backfilled model", resp.ModelNameUsed)
	}
}

func TestCall_ModelFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		defaultProvider string
		wantModel       string
		wantError       bool
	}{
		{name: "global default names this backend", defaultProvider: "fake", wantModel: "fallback-model"},
		{name: "global default is the sentinel", defaultProvider: "default", wantModel: "fallback-model"},
		{name: "global default names another backend", defaultProvider: "other", wantError: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			global := config.Default()
			global.DefaultModel.Provider = tt.defaultProvider
			global.DefaultModel.ModelName = "fallback-model"

			f := &fakeProvider{name: "fake", cred: "k", reply: "ok"}
			mc := config.ModelConfig{Provider: "fake", ModelName: config.DefaultSentinel}

			resp := Call(context.Background(), f, global, "mf test", "hi", mc)
			if tt.wantError {
				want := "No valid fake model name specified for test: mf test"
				if resp.Error != want {
					t.Fatalf("Error: got %q want %q", resp.Error, want)
				}
				if f.attemptCount() != 0 {
					t.Fatalf("attempts: got %d want 0", f.attemptCount())
				}
				return
			}
			if resp.Error != "" {
				t.Fatalf("Error: got %q want empty", resp.Error)
			}
			if got := f.request().Model; got != tt.wantModel {
				t.Fatalf("request model: got %q want %q", got, tt.wantModel)
			}
		})
	}
}

func TestCall_StripsControlParameters(t *testing.T) {
	t.Parallel()

	global := config.Default()
	global.DefaultModel.Parameters = config.ModelParameters{
		Temperature: floatp(0.2),
		Extra:       map[string]any{"top_p": 0.9},
	}

	f := &fakeProvider{name: "fake", cred: "k", reply: "ok"}
	mc := config.ModelConfig{
		Provider:  "fake",
		ModelName: "m",
		Parameters: config.ModelParameters{
			Temperature:   floatp(0.7),
			TimeoutS:      floatp(5),
			RetryAttempts: intp(2),
			Extra:         map[string]any{"custom_flag": true},
		},
	}

	resp := Call(context.Background(), f, global, "params test", "hi", mc)
	if resp.Error != "" {
		t.Fatalf("Error: got %q want empty", resp.Error)
	}

	bag := f.request().Parameters
	if _, ok := bag["timeout_s"]; ok {
		t.Fatalf("timeout_s leaked into the parameter bag: %#v", bag)
	}
	if _, ok := bag["retry_attempts"]; ok {
		t.Fatalf("retry_attempts leaked into the parameter bag: %#v", bag)
	}
	if got := bag["temperature"]; got != 0.7 {
		t.Fatalf("temperature: got %v want 0.7", got)
	}
	if got := bag["top_p"]; got != 0.9 {
		t.Fatalf("top_p from global default: got %v want 0.9", got)
	}
	if got := bag["custom_flag"]; got != true {
		t.Fatalf("custom_flag: got %v want true", got)
	}
}

func TestCall_SendsUserPromptMessage(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{name: "fake", cred: "k", reply: "ok"}
	mc := config.ModelConfig{Provider: "fake", ModelName: "m"}

	Call(context.Background(), f, config.Default(), "msg test", "What is Go?", mc)

	msgs := f.request().Messages
	if len(msgs) != 1 {
		t.Fatalf("messages: got %d want 1", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "What is Go?" {
		t.Fatalf("message: got %+v", msgs[0])
	}
}

func TestCall_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{name: "fake", cred: "k", reply: "ok", failFirst: 2}
	mc := config.ModelConfig{
		Provider:   "fake",
		ModelName:  "m",
		Parameters: config.ModelParameters{RetryAttempts: intp(5)},
	}

	resp := Call(context.Background(), f, config.Default(), "retry test", "hi", mc)
	if resp.Error != "" {
		t.Fatalf("Error: got %q want empty", resp.Error)
	}
	if resp.AttemptsMade != 3 {
		t.Fatalf("AttemptsMade: got %d want 3", resp.AttemptsMade)
	}
	if f.attemptCount() != 3 {
		t.Fatalf("attempts: got %d want 3", f.attemptCount())
	}
}

func TestCall_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{name: "fake", cred: "k", failFirst: 100}
	mc := config.ModelConfig{
		Provider:   "fake",
		ModelName:  "m",
		Parameters: config.ModelParameters{RetryAttempts: intp(3)},
	}

	resp := Call(context.Background(), f, config.Default(), "retry test", "hi", mc)
	if f.attemptCount() != 3 {
		t.Fatalf("attempts: got %d want 3", f.attemptCount())
	}
	if resp.AttemptsMade != 3 {
		t.Fatalf("AttemptsMade: got %d want 3", resp.AttemptsMade)
	}
	want := "LLM call ultimately failed after 3 attempts for test 'retry test': rate_limit - throttled 3"
	if resp.Error != want {
		t.Fatalf("Error: got %q want %q", resp.Error, want)
	}
	if resp.ModelNameUsed != "m" {
		t.Fatalf("ModelNameUsed: got %q want %q", resp.ModelNameUsed, "m")
	}
}

func TestCall_NonTransientStopsRetrying(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{name: "fake", cred: "k", err: errors.New("model does not exist")}
	mc := config.ModelConfig{Provider: "fake", ModelName: "m"}

	resp := Call(context.Background(), f, config.Default(), "terminal test", "hi", mc)
	if f.attemptCount() != 1 {
		t.Fatalf("attempts: got %d want 1", f.attemptCount())
	}
	if !strings.Contains(resp.Error, "model does not exist") {
		t.Fatalf("Error: got %q want the backend message", resp.Error)
	}
	if !strings.Contains(resp.Error, "ultimately failed") {
		t.Fatalf("Error: got %q want the failure wrapper", resp.Error)
	}
}

func TestCall_TruncatesLongErrorMessages(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 500)
	f := &fakeProvider{name: "fake", cred: "k", err: transient(KindServerError, errors.New(long))}
	mc := config.ModelConfig{
		Provider:   "fake",
		ModelName:  "m",
		Parameters: config.ModelParameters{RetryAttempts: intp(1)},
	}

	resp := Call(context.Background(), f, config.Default(), "trunc test", "hi", mc)
	if strings.Contains(resp.Error, strings.Repeat("x", 201)) {
		t.Fatalf("Error not truncated to 200 chars: %d chars", len(resp.Error))
	}
	if !strings.Contains(resp.Error, strings.Repeat("x", 200)) {
		t.Fatalf("Error: got %q want 200 chars of the message", resp.Error)
	}
}

func TestCall_TimeoutPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		testVal   *float64
		globalVal *float64
		// The attempt deadline proves which timeout source won.
		wantUnder time.Duration
		wantOver  time.Duration
	}{
		{name: "test case wins", testVal: floatp(0.5), globalVal: floatp(300), wantUnder: time.Second},
		{name: "global default wins over builtin", globalVal: floatp(0.7), wantUnder: time.Second},
		{name: "builtin constant", wantOver: 10 * time.Second},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			global := config.Default()
			global.DefaultModel.Parameters.TimeoutS = tt.globalVal

			f := &fakeProvider{name: "fake", cred: "k", reply: "ok"}
			mc := config.ModelConfig{
				Provider:   "fake",
				ModelName:  "m",
				Parameters: config.ModelParameters{TimeoutS: tt.testVal},
			}

			Call(context.Background(), f, global, "timeout test", "hi", mc)

			f.mu.Lock()
			remaining := f.remaining
			f.mu.Unlock()
			if remaining <= 0 {
				t.Fatalf("attempt context had no deadline")
			}
			if tt.wantUnder > 0 && remaining > tt.wantUnder {
				t.Fatalf("deadline: %v remaining, want under %v", remaining, tt.wantUnder)
			}
			if tt.wantOver > 0 && remaining < tt.wantOver {
				t.Fatalf("deadline: %v remaining, want over %v", remaining, tt.wantOver)
			}
		})
	}
}

func TestCall_CanceledParentStopsBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeProvider{name: "fake", cred: "k", failFirst: 100}
	mc := config.ModelConfig{
		Provider:   "fake",
		ModelName:  "m",
		Parameters: config.ModelParameters{RetryAttempts: intp(5)},
	}

	resp := Call(ctx, f, config.Default(), "cancel test", "hi", mc)
	if f.attemptCount() != 1 {
		t.Fatalf("attempts: got %d want 1", f.attemptCount())
	}
	if !strings.Contains(resp.Error, "canceled") {
		t.Fatalf("Error: got %q want cancellation", resp.Error)
	}
}

func TestRetryBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 4, want: 10 * time.Second},
		{attempt: 5, want: 10 * time.Second},
	}
	for _, tt := range tests {
		if got := retryBackoff(time.Second, tt.attempt); got != tt.want {
			t.Fatalf("retryBackoff(1s, %d): got %v want %v", tt.attempt, got, tt.want)
		}
	}
	if got := retryBackoff(0, 3); got != 0 {
		t.Fatalf("retryBackoff(0, 3): got %v want 0", got)
	}
}

package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/promptcheck/promptcheck/internal/config"
)

func TestDummyProvider_EchoesPrompt(t *testing.T) {
	t.Parallel()

	p := NewDummy()
	if p.Name() != "dummy" {
		t.Fatalf("Name: got %q", p.Name())
	}
	if p.NeedsCredential() {
		t.Fatalf("NeedsCredential: got true want false")
	}
	if p.Credential() != "" {
		t.Fatalf("Credential: got %q want empty", p.Credential())
	}

	resp, err := p.ExecuteAttempt(context.Background(), &AttemptRequest{
		Model:    "dummy-model",
		Messages: []Message{{Role: "user", Content: "hello wide world"}},
	})
	if err != nil {
		t.Fatalf("ExecuteAttempt: %v", err)
	}
	if resp.TextOutput != "hello wide world" {
		t.Fatalf("TextOutput: got %q", resp.TextOutput)
	}
	if resp.PromptTokens == nil || *resp.PromptTokens != 3 {
		t.Fatalf("PromptTokens: got %v want 3", resp.PromptTokens)
	}
	if resp.CompletionTokens == nil || *resp.CompletionTokens != 3 {
		t.Fatalf("CompletionTokens: got %v want 3", resp.CompletionTokens)
	}
	if resp.TotalTokens == nil || *resp.TotalTokens != 6 {
		t.Fatalf("TotalTokens: got %v want 6", resp.TotalTokens)
	}
	if resp.Cost == nil || *resp.Cost != 0 {
		t.Fatalf("Cost: got %v want 0", resp.Cost)
	}
	if resp.LatencyMs == nil {
		t.Fatalf("LatencyMs: got nil")
	}
	if resp.ModelNameUsed != "dummy-model" {
		t.Fatalf("ModelNameUsed: got %q", resp.ModelNameUsed)
	}
}

func TestDummyProvider_FixedReply(t *testing.T) {
	t.Parallel()

	p := &DummyProvider{Reply: "canned answer"}
	resp, err := p.ExecuteAttempt(context.Background(), &AttemptRequest{
		Model:    "dummy-model",
		Messages: []Message{{Role: "user", Content: "anything"}},
	})
	if err != nil {
		t.Fatalf("ExecuteAttempt: %v", err)
	}
	if resp.TextOutput != "canned answer" {
		t.Fatalf("TextOutput: got %q", resp.TextOutput)
	}
	if resp.CompletionTokens == nil || *resp.CompletionTokens != 2 {
		t.Fatalf("CompletionTokens: got %v want 2", resp.CompletionTokens)
	}
}

func TestDummyProvider_ScriptedFailures(t *testing.T) {
	t.Parallel()

	p := &DummyProvider{FailAttempts: 2}
	req := &AttemptRequest{
		Model:    "dummy-model",
		Messages: []Message{{Role: "user", Content: "retry me"}},
	}

	for i := 1; i <= 2; i++ {
		_, err := p.ExecuteAttempt(context.Background(), req)
		if !IsTransient(err) {
			t.Fatalf("attempt %d: got %v want transient error", i, err)
		}
	}
	resp, err := p.ExecuteAttempt(context.Background(), req)
	if err != nil {
		t.Fatalf("attempt 3: %v", err)
	}
	if resp.TextOutput != "retry me" {
		t.Fatalf("TextOutput: got %q", resp.TextOutput)
	}
	if p.Attempts() != 3 {
		t.Fatalf("Attempts: got %d want 3", p.Attempts())
	}
}

func TestDummyProvider_WorksThroughCall(t *testing.T) {
	t.Parallel()

	p := &DummyProvider{FailAttempts: 1}
	cfg := config.Default()
	resp := Call(context.Background(), p, cfg, "dummy test", "ping", config.ModelConfig{
		Provider:  "dummy",
		ModelName: "dummy-model",
	})
	if resp.Error != "" {
		t.Fatalf("Error: got %q", resp.Error)
	}
	if resp.AttemptsMade != 2 {
		t.Fatalf("AttemptsMade: got %d want 2", resp.AttemptsMade)
	}
	if !strings.Contains(resp.TextOutput, "ping") {
		t.Fatalf("TextOutput: got %q", resp.TextOutput)
	}
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// DummyProvider is the no-credential test double. It echoes the user prompt
// (or a fixed Reply), reports word counts as token counts and zero cost, and
// can be told to fail transiently for the first FailAttempts calls.
type DummyProvider struct {
	Reply        string
	FailAttempts int
	Err          error

	mu       sync.Mutex
	attempts int
}

// NewDummy builds a dummy backend that echoes prompts.
func NewDummy() *DummyProvider { return &DummyProvider{} }

func (p *DummyProvider) Name() string { return "dummy" }

func (p *DummyProvider) Credential() string { return "" }

func (p *DummyProvider) NeedsCredential() bool { return false }

// Attempts reports how many times ExecuteAttempt has run.
func (p *DummyProvider) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

func (p *DummyProvider) ExecuteAttempt(ctx context.Context, req *AttemptRequest) (*Response, error) {
	if p == nil {
		return nil, errors.New("llm: nil provider")
	}
	if req == nil {
		return nil, errors.New("llm: nil attempt request")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	p.attempts++
	n := p.attempts
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	if n <= p.FailAttempts {
		return nil, transient(KindServerError, fmt.Errorf("dummy backend failure %d", n))
	}

	prompt := ""
	for _, m := range req.Messages {
		if strings.EqualFold(strings.TrimSpace(m.Role), "user") {
			prompt = m.Content
		}
	}
	text := p.Reply
	if text == "" {
		text = prompt
	}

	pt := len(strings.Fields(prompt))
	ct := len(strings.Fields(text))
	tt := pt + ct
	cost := 0.0
	latency := 0.0

	return &Response{
		TextOutput:       text,
		PromptTokens:     &pt,
		CompletionTokens: &ct,
		TotalTokens:      &tt,
		Cost:             &cost,
		LatencyMs:        &latency,
		ModelNameUsed:    req.Model,
		RawResponse:      map[string]any{"provider": "dummy", "echo": p.Reply == ""},
		AttemptsMade:     1,
	}, nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/promptcheck/promptcheck/internal/config"
)

const (
	anthropicEnvKey     = "ANTHROPIC_API_KEY"
	anthropicBaseURL    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"

	// anthropicMaxTokens applies when a test case sets no max_tokens; the
	// messages API requires the field.
	anthropicMaxTokens = 1024
)

// AnthropicProvider drives the Anthropic messages API. SDK-internal retries
// are disabled so the shared call policy owns retrying.
type AnthropicProvider struct {
	apiKey  string
	baseURL string

	once   sync.Once
	client *anthropic.Client
}

// AnthropicOption adjusts an AnthropicProvider before its client is built.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicBaseURL points the provider at a different API endpoint.
func WithAnthropicBaseURL(baseURL string) AnthropicOption {
	return func(p *AnthropicProvider) {
		if p == nil {
			return
		}
		if v := strings.TrimSpace(baseURL); v != "" {
			p.baseURL = strings.TrimRight(v, "/")
		}
	}
}

// NewAnthropic builds the Anthropic backend. Credential order: the
// ANTHROPIC_API_KEY environment variable, then the config key "anthropic".
func NewAnthropic(cfg *config.Config, opts ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{
		apiKey:  credentialFor(cfg, anthropicEnvKey, "anthropic"),
		baseURL: anthropicBaseURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Credential() string {
	if p == nil {
		return ""
	}
	return p.apiKey
}

func (p *AnthropicProvider) NeedsCredential() bool { return true }

func (p *AnthropicProvider) getClient() *anthropic.Client {
	p.once.Do(func() {
		opts := []option.RequestOption{
			option.WithAPIKey(p.apiKey),
			option.WithMaxRetries(0),
			option.WithHeader("anthropic-version", anthropicAPIVersion),
		}
		if base := strings.TrimSpace(p.baseURL); base != "" {
			opts = append(opts, option.WithBaseURL(sdkBaseURL(base)))
		}
		client := anthropic.NewClient(opts...)
		p.client = &client
	})
	return p.client
}

// sdkBaseURL strips a trailing /v1: the SDK appends versioned paths itself.
func sdkBaseURL(base string) string {
	base = strings.TrimSpace(strings.TrimRight(base, "/"))
	return strings.TrimSuffix(base, "/v1")
}

// ExecuteAttempt performs one messages API call.
func (p *AnthropicProvider) ExecuteAttempt(ctx context.Context, req *AttemptRequest) (*Response, error) {
	if p == nil {
		return nil, errors.New("llm: nil provider")
	}
	if ctx == nil {
		return nil, errors.New("llm: nil context")
	}
	if req == nil {
		return nil, errors.New("llm: nil attempt request")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: anthropicMaxTokens,
		Messages:  toAnthropicMessages(req.Messages),
	}
	applyAnthropicParams(&params, req.Parameters)

	start := time.Now()
	msg, err := p.getClient().Messages.New(ctx, params)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		if terr := classifyAnthropicError(err); terr != nil {
			return nil, terr
		}
		return &Response{
			Error:         fmt.Sprintf("anthropic API error: %v", err),
			ModelNameUsed: req.Model,
			AttemptsMade:  1,
		}, nil
	}

	out := &Response{
		TextOutput:    anthropicText(msg),
		LatencyMs:     &latency,
		ModelNameUsed: req.Model,
		RawResponse:   msg,
		AttemptsMade:  1,
	}
	pt := int(msg.Usage.InputTokens)
	ct := int(msg.Usage.OutputTokens)
	tt := pt + ct
	out.PromptTokens, out.CompletionTokens, out.TotalTokens = &pt, &ct, &tt
	return out, nil
}

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		role := anthropic.MessageParamRoleUser
		if strings.EqualFold(strings.TrimSpace(m.Role), "assistant") {
			role = anthropic.MessageParamRoleAssistant
		}
		out = append(out, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
		})
	}
	return out
}

func applyAnthropicParams(params *anthropic.MessageNewParams, bag map[string]any) {
	for key, value := range bag {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "max_tokens":
			if n, ok := intValue(value); ok && n > 0 {
				params.MaxTokens = int64(n)
			}
		case "temperature":
			if f, ok := floatValue(value); ok {
				params.Temperature = param.NewOpt(f)
			}
		case "top_p":
			if f, ok := floatValue(value); ok {
				params.TopP = param.NewOpt(f)
			}
		case "top_k":
			if n, ok := intValue(value); ok {
				params.TopK = param.NewOpt(int64(n))
			}
		case "stop":
			params.StopSequences = stringValues(value)
		}
	}
}

func anthropicText(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String()
}

func classifyAnthropicError(err error) *TransientError {
	if err == nil {
		return nil
	}

	var sdkErr *anthropic.Error
	if errors.As(err, &sdkErr) {
		switch {
		case sdkErr.StatusCode == http.StatusTooManyRequests:
			return transient(KindRateLimit, err)
		case sdkErr.StatusCode == http.StatusRequestTimeout:
			return transient(KindTimeout, err)
		case sdkErr.StatusCode >= 500 && sdkErr.StatusCode <= 599:
			return transient(KindServerError, err)
		}
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return transient(KindTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return transient(KindTimeout, err)
		}
		return transient(KindConnection, err)
	}
	return nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/promptcheck/promptcheck/internal/config"
)

// ChatProvider is the shared backend for OpenAI-compatible chat completion
// APIs. The native OpenAI API, Groq, and OpenRouter all speak it; they
// differ only in base URL, credential source, and cost reporting.
type ChatProvider struct {
	name       string
	apiKey     string
	baseURL    string
	costHeader string

	once   sync.Once
	client *openai.Client
}

// ChatOption adjusts a ChatProvider before its client is built.
type ChatOption func(*ChatProvider)

// WithBaseURL points the provider at a different API endpoint.
func WithBaseURL(baseURL string) ChatOption {
	return func(p *ChatProvider) {
		if p == nil {
			return
		}
		if v := strings.TrimSpace(baseURL); v != "" {
			p.baseURL = strings.TrimRight(v, "/")
		}
	}
}

func newChatProvider(cfg *config.Config, name, envVar, baseURL, costHeader string, opts ...ChatOption) *ChatProvider {
	p := &ChatProvider{
		name:       name,
		apiKey:     credentialFor(cfg, envVar, name),
		baseURL:    baseURL,
		costHeader: costHeader,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *ChatProvider) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}

func (p *ChatProvider) Credential() string {
	if p == nil {
		return ""
	}
	return p.apiKey
}

func (p *ChatProvider) NeedsCredential() bool { return true }

func (p *ChatProvider) getClient() *openai.Client {
	p.once.Do(func() {
		cc := openai.DefaultConfig(p.apiKey)
		if v := strings.TrimSpace(p.baseURL); v != "" {
			cc.BaseURL = strings.TrimRight(v, "/")
		}
		p.client = openai.NewClientWithConfig(cc)
	})
	return p.client
}

// ExecuteAttempt performs one chat completion call.
func (p *ChatProvider) ExecuteAttempt(ctx context.Context, req *AttemptRequest) (*Response, error) {
	if p == nil {
		return nil, errors.New("llm: nil provider")
	}
	if ctx == nil {
		return nil, errors.New("llm: nil context")
	}
	if req == nil {
		return nil, errors.New("llm: nil attempt request")
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	r := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: msgs,
	}
	applyChatParams(&r, req.Parameters)

	start := time.Now()
	resp, err := p.getClient().CreateChatCompletion(ctx, r)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		if terr := classifyOpenAIError(err); terr != nil {
			return nil, terr
		}
		return &Response{
			Error:         fmt.Sprintf("%s API error: %v", p.name, err),
			ModelNameUsed: req.Model,
			AttemptsMade:  1,
		}, nil
	}

	out := &Response{
		LatencyMs:     &latency,
		ModelNameUsed: req.Model,
		RawResponse:   resp,
		AttemptsMade:  1,
	}
	if len(resp.Choices) > 0 {
		out.TextOutput = resp.Choices[0].Message.Content
	}
	pt, ct, tt := resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens
	out.PromptTokens, out.CompletionTokens, out.TotalTokens = &pt, &ct, &tt

	if p.costHeader != "" {
		if v := strings.TrimSpace(resp.Header().Get(p.costHeader)); v != "" {
			if cost, perr := strconv.ParseFloat(v, 64); perr == nil {
				out.Cost = &cost
			}
		}
	}
	return out, nil
}

// applyChatParams maps the open parameter bag onto the completion request.
// Keys the chat API has no field for are dropped.
func applyChatParams(r *openai.ChatCompletionRequest, params map[string]any) {
	for key, value := range params {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "temperature":
			if f, ok := floatValue(value); ok {
				r.Temperature = float32(f)
			}
		case "max_tokens":
			if n, ok := intValue(value); ok {
				r.MaxTokens = n
			}
		case "top_p":
			if f, ok := floatValue(value); ok {
				r.TopP = float32(f)
			}
		case "n":
			if n, ok := intValue(value); ok {
				r.N = n
			}
		case "presence_penalty":
			if f, ok := floatValue(value); ok {
				r.PresencePenalty = float32(f)
			}
		case "frequency_penalty":
			if f, ok := floatValue(value); ok {
				r.FrequencyPenalty = float32(f)
			}
		case "seed":
			if n, ok := intValue(value); ok {
				r.Seed = &n
			}
		case "stop":
			r.Stop = stringValues(value)
		}
	}
}

func classifyOpenAIError(err error) *TransientError {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return transient(KindRateLimit, err)
		case apiErr.HTTPStatusCode >= 500 && apiErr.HTTPStatusCode <= 599:
			return transient(KindServerError, err)
		}
		return nil
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == http.StatusTooManyRequests:
			return transient(KindRateLimit, err)
		case reqErr.HTTPStatusCode >= 500 && reqErr.HTTPStatusCode <= 599:
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

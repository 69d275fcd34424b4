package llm

import "github.com/promptcheck/promptcheck/internal/config"

const (
	openRouterEnvKey  = "OPENROUTER_API_KEY"
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	// openRouterCostHeader carries the request cost in USD.
	openRouterCostHeader = "x-openrouter-cost"
)

// NewOpenRouter builds the OpenRouter backend. OpenRouter is OpenAI
// compatible and reports per-request cost in a response header, which lands
// in Response.Cost.
func NewOpenRouter(cfg *config.Config, opts ...ChatOption) *ChatProvider {
	return newChatProvider(cfg, "openrouter", openRouterEnvKey, openRouterBaseURL, openRouterCostHeader, opts...)
}

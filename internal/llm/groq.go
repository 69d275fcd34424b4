package llm

import "github.com/promptcheck/promptcheck/internal/config"

const (
	groqEnvKey  = "GROQ_API_KEY"
	groqBaseURL = "https://api.groq.com/openai/v1"
)

// NewGroq builds the Groq backend. Groq speaks the OpenAI chat API, so it
// reuses the shared chat client with Groq's base URL.
func NewGroq(cfg *config.Config, opts ...ChatOption) *ChatProvider {
	return newChatProvider(cfg, "groq", groqEnvKey, groqBaseURL, "", opts...)
}

package llm

import "github.com/promptcheck/promptcheck/internal/config"

const openAIEnvKey = "OPENAI_API_KEY"

// NewOpenAI builds the native OpenAI backend. Credential order: the
// OPENAI_API_KEY environment variable, then the config key "openai".
func NewOpenAI(cfg *config.Config, opts ...ChatOption) *ChatProvider {
	return newChatProvider(cfg, "openai", openAIEnvKey, "", "", opts...)
}

package llm

import "github.com/promptcheck/promptcheck/internal/config"

// newProvider constructs the backend registered under name, or nil for an
// unknown name. Adding a backend means one more case here plus its
// constructor file.
func newProvider(name string, cfg *config.Config) Provider {
	switch name {
	case "openai":
		return NewOpenAI(cfg)
	case "groq":
		return NewGroq(cfg)
	case "openrouter":
		return NewOpenRouter(cfg)
	case "anthropic":
		return NewAnthropic(cfg)
	case "dummy":
		return NewDummy()
	default:
		return nil
	}
}

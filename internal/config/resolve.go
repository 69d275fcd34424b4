package config

import (
	"fmt"
	"strings"
)

// Resolve merges a test case's model selection with the global default
// model. Provider and model name fall back to the global default when the
// test case leaves them at the "default" sentinel (or empty); the parameter
// bag starts from the global default parameters and every parameter the test
// case sets wins field by field, including open-ended extras key by key.
//
// A selection that still reads "default" after resolution is an error: that
// means the global config itself carries the sentinel, and there is no
// concrete backend to call.
//
// Resolve never mutates its inputs and returns a fresh value on every call,
// so resolving the same inputs twice yields the same result.
func Resolve(tc ModelConfig, global *Config) (ModelConfig, error) {
	var def ModelConfig
	if global != nil {
		def = global.DefaultModel
	}

	provider := strings.TrimSpace(tc.Provider)
	if provider == "" || provider == DefaultSentinel {
		provider = strings.TrimSpace(def.Provider)
	}
	if provider == "" || provider == DefaultSentinel {
		return ModelConfig{}, fmt.Errorf("config: provider %q does not resolve to a concrete provider (global default is %q)", tc.Provider, def.Provider)
	}

	model := strings.TrimSpace(tc.ModelName)
	if model == "" || model == DefaultSentinel {
		model = strings.TrimSpace(def.ModelName)
	}
	if model == "" || model == DefaultSentinel {
		return ModelConfig{}, fmt.Errorf("config: model name %q does not resolve to a concrete model (global default is %q)", tc.ModelName, def.ModelName)
	}

	return ModelConfig{
		Provider:   provider,
		ModelName:  model,
		Parameters: MergeParameters(def.Parameters, tc.Parameters),
	}, nil
}

// MergeParameters overlays every parameter set in override onto base. Both
// inputs are left untouched; the result shares no pointers or maps with them.
func MergeParameters(base, override ModelParameters) ModelParameters {
	merged := base.clone()
	if override.Temperature != nil {
		merged.Temperature = clonePtr(override.Temperature)
	}
	if override.MaxTokens != nil {
		merged.MaxTokens = clonePtr(override.MaxTokens)
	}
	if override.TimeoutS != nil {
		merged.TimeoutS = clonePtr(override.TimeoutS)
	}
	if override.RetryAttempts != nil {
		merged.RetryAttempts = clonePtr(override.RetryAttempts)
	}
	if len(override.Extra) > 0 {
		if merged.Extra == nil {
			merged.Extra = make(map[string]any, len(override.Extra))
		}
		for k, v := range override.Extra {
			merged.Extra[k] = v
		}
	}
	return merged
}

// Package config loads the global promptcheck configuration and resolves
// per-test model selections against it.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file promptcheck looks for when given a
// directory.
const DefaultFileName = "promptcheck.config.yaml"

// DefaultSentinel marks a provider or model name that should fall back to
// the global default model.
const DefaultSentinel = "default"

// Built-in fallbacks used when no config file (or an empty one) is present.
const (
	DefaultProvider  = "openai"
	DefaultModelName = "gpt-3.5-turbo"
)

// Config is the global configuration from promptcheck.config.yaml.
type Config struct {
	APIKeys           map[string]string `yaml:"api_keys"`
	DefaultModel      ModelConfig       `yaml:"default_model"`
	DefaultThresholds DefaultThresholds `yaml:"default_thresholds"`
}

// DefaultThresholds backfill metric thresholds that test cases leave unset.
type DefaultThresholds struct {
	LatencyP95Ms  *int     `yaml:"latency_p95_ms"`
	CostPerRunUSD *float64 `yaml:"cost_per_run_usd"`
}

// ModelConfig selects a provider, a model name, and the call parameters.
type ModelConfig struct {
	Provider   string          `yaml:"provider"`
	ModelName  string          `yaml:"model_name"`
	Parameters ModelParameters `yaml:"parameters"`
}

// ModelParameters is the call parameter bag. The typed fields are the ones
// promptcheck itself interprets; everything else a test case sets is kept in
// Extra and passed through to the provider.
type ModelParameters struct {
	Temperature   *float64
	MaxTokens     *int
	TimeoutS      *float64
	RetryAttempts *int
	Extra         map[string]any
}

// UnmarshalYAML splits known parameter keys from the open-ended remainder.
func (p *ModelParameters) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*p = ModelParameters{}
	for key, v := range raw {
		switch key {
		case "temperature":
			f, err := toFloat(v)
			if err != nil {
				return fmt.Errorf("temperature: %w", err)
			}
			p.Temperature = &f
		case "max_tokens":
			n, err := toInt(v)
			if err != nil {
				return fmt.Errorf("max_tokens: %w", err)
			}
			p.MaxTokens = &n
		case "timeout_s":
			f, err := toFloat(v)
			if err != nil {
				return fmt.Errorf("timeout_s: %w", err)
			}
			p.TimeoutS = &f
		case "retry_attempts":
			n, err := toInt(v)
			if err != nil {
				return fmt.Errorf("retry_attempts: %w", err)
			}
			p.RetryAttempts = &n
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[key] = v
		}
	}
	return nil
}

// Validate checks the ranges promptcheck accepts for call parameters.
func (p ModelParameters) Validate() error {
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return fmt.Errorf("temperature %v out of range [0, 2]", *p.Temperature)
	}
	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", *p.MaxTokens)
	}
	if p.TimeoutS != nil && *p.TimeoutS <= 0 {
		return fmt.Errorf("timeout_s must be positive, got %v", *p.TimeoutS)
	}
	if p.RetryAttempts != nil && (*p.RetryAttempts < 0 || *p.RetryAttempts > 5) {
		return fmt.Errorf("retry_attempts %d out of range [0, 5]", *p.RetryAttempts)
	}
	return nil
}

// Bag flattens the set parameters into a map for a provider call. The typed
// fields win over same-named Extra entries. The map is a fresh copy.
func (p ModelParameters) Bag() map[string]any {
	bag := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		bag[k] = v
	}
	if p.Temperature != nil {
		bag["temperature"] = *p.Temperature
	}
	if p.MaxTokens != nil {
		bag["max_tokens"] = *p.MaxTokens
	}
	if p.TimeoutS != nil {
		bag["timeout_s"] = *p.TimeoutS
	}
	if p.RetryAttempts != nil {
		bag["retry_attempts"] = *p.RetryAttempts
	}
	return bag
}

func (p ModelParameters) clone() ModelParameters {
	out := ModelParameters{
		Temperature:   clonePtr(p.Temperature),
		MaxTokens:     clonePtr(p.MaxTokens),
		TimeoutS:      clonePtr(p.TimeoutS),
		RetryAttempts: clonePtr(p.RetryAttempts),
	}
	if p.Extra != nil {
		out.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	return &Config{
		APIKeys: map[string]string{},
		DefaultModel: ModelConfig{
			Provider:  DefaultProvider,
			ModelName: DefaultModelName,
		},
	}
}

// Load reads the global configuration. Path may name the config file itself
// or a directory holding promptcheck.config.yaml; empty means the current
// directory. A missing or empty file yields the built-in defaults, while a
// malformed one is an error.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "."
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if strings.TrimSpace(string(data)) == "" {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

// APIKey returns the configured credential for a provider, or "".
func (c *Config) APIKey(provider string) string {
	if c == nil || c.APIKeys == nil {
		return ""
	}
	return strings.TrimSpace(c.APIKeys[strings.ToLower(strings.TrimSpace(provider))])
}

func (c *Config) applyDefaults() {
	if c.APIKeys == nil {
		c.APIKeys = map[string]string{}
	}
	if strings.TrimSpace(c.DefaultModel.Provider) == "" {
		c.DefaultModel.Provider = DefaultProvider
	}
	if strings.TrimSpace(c.DefaultModel.ModelName) == "" {
		c.DefaultModel.ModelName = DefaultModelName
	}
}

func (c *Config) validate() error {
	if err := c.DefaultModel.Parameters.Validate(); err != nil {
		return fmt.Errorf("default_model.parameters: %w", err)
	}
	if v := c.DefaultThresholds.LatencyP95Ms; v != nil && *v <= 0 {
		return fmt.Errorf("default_thresholds.latency_p95_ms must be positive, got %d", *v)
	}
	if v := c.DefaultThresholds.CostPerRunUSD; v != nil && *v <= 0 {
		return fmt.Errorf("default_thresholds.cost_per_run_usd must be positive, got %v", *v)
	}
	return nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

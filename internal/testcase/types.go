// Package testcase defines the declarative test case schema and its YAML
// loader.
package testcase

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/promptcheck/promptcheck/internal/config"
)

// TypeLLMGeneration is the default (and currently only) test case type.
const TypeLLMGeneration = "llm_generation"

// TestCase is one declarative check: a prompt to send and the metrics to
// score the response with.
type TestCase struct {
	ID          string
	Name        string
	Description string
	Type        string
	Input       InputData
	Expected    ExpectedOutput
	Metrics     []MetricConfig
	Model       config.ModelConfig
	Tags        []string
}

// InputData carries the prompt template and its variables.
type InputData struct {
	Prompt    string         `yaml:"prompt"`
	Variables map[string]any `yaml:"variables"`
}

// ExpectedOutput holds the reference data metrics compare against.
type ExpectedOutput struct {
	ExactMatchString *string  `yaml:"exact_match_string"`
	RegexPattern     *string  `yaml:"regex_pattern"`
	ReferenceTexts   []string `yaml:"reference_texts"`
}

// MetricConfig names a metric and its parameters. The threshold may be
// spelled "threshold" or "thresholds" in YAML; when both are present the
// plural wins.
type MetricConfig struct {
	Metric     string
	Parameters map[string]any
	Threshold  *Threshold
}

// Threshold is the pass criterion for a metric. Which field applies depends
// on the metric: f_score floors similarity scores, value caps latency and
// cost, completion_max caps completion tokens.
type Threshold struct {
	FScore        *float64 `yaml:"f_score"`
	Value         *float64 `yaml:"value"`
	CompletionMax *int     `yaml:"completion_max"`
}

type metricConfigYAML struct {
	Metric     string         `yaml:"metric"`
	Parameters map[string]any `yaml:"parameters"`
	Threshold  *Threshold     `yaml:"threshold"`
	Thresholds *Threshold     `yaml:"thresholds"`
}

func (m *MetricConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw metricConfigYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	m.Metric = raw.Metric
	m.Parameters = raw.Parameters
	m.Threshold = raw.Thresholds
	if m.Threshold == nil {
		m.Threshold = raw.Threshold
	}
	return nil
}

type testCaseYAML struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`

	Input     *InputData `yaml:"input"`
	InputData *InputData `yaml:"input_data"`

	Expected       *ExpectedOutput `yaml:"expected"`
	ExpectedOutput *ExpectedOutput `yaml:"expected_output"`

	Metrics       []MetricConfig `yaml:"metrics"`
	MetricConfigs []MetricConfig `yaml:"metric_configs"`

	Model       *config.ModelConfig `yaml:"model"`
	ModelConfig *config.ModelConfig `yaml:"model_config"`

	Tags []string `yaml:"tags"`
}

// UnmarshalYAML accepts both the short and the long field spellings
// (input/input_data, expected/expected_output, metrics/metric_configs,
// model/model_config). The short spelling wins when both are present. A
// missing model config resolves against the global default model.
func (t *TestCase) UnmarshalYAML(value *yaml.Node) error {
	var raw testCaseYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	t.ID = raw.ID
	t.Name = raw.Name
	t.Description = raw.Description
	t.Type = raw.Type
	if strings.TrimSpace(t.Type) == "" {
		t.Type = TypeLLMGeneration
	}
	t.Tags = raw.Tags

	if in := firstNonNil(raw.Input, raw.InputData); in != nil {
		t.Input = *in
	}
	if exp := firstNonNil(raw.Expected, raw.ExpectedOutput); exp != nil {
		t.Expected = *exp
	}

	t.Metrics = raw.Metrics
	if t.Metrics == nil {
		t.Metrics = raw.MetricConfigs
	}

	model := firstNonNil(raw.Model, raw.ModelConfig)
	if model == nil {
		model = &config.ModelConfig{
			Provider:  config.DefaultSentinel,
			ModelName: config.DefaultSentinel,
		}
	}
	t.Model = *model
	if strings.TrimSpace(t.Model.Provider) == "" {
		t.Model.Provider = config.DefaultSentinel
	}
	if strings.TrimSpace(t.Model.ModelName) == "" {
		t.Model.ModelName = config.DefaultSentinel
	}
	return nil
}

func firstNonNil[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// Validate checks a single test case for the fields the runner depends on.
func (t *TestCase) Validate() error {
	if t == nil {
		return fmt.Errorf("nil test case")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if strings.TrimSpace(t.Input.Prompt) == "" {
		return fmt.Errorf("missing input.prompt")
	}
	if err := t.Model.Parameters.Validate(); err != nil {
		return fmt.Errorf("model parameters: %w", err)
	}
	for i, m := range t.Metrics {
		if strings.TrimSpace(m.Metric) == "" {
			return fmt.Errorf("metrics[%d]: missing metric name", i)
		}
	}
	return nil
}

// HasTag reports whether the case carries the tag, ignoring case and
// surrounding whitespace.
func (t *TestCase) HasTag(tag string) bool {
	if t == nil {
		return false
	}
	want := strings.ToLower(strings.TrimSpace(tag))
	if want == "" {
		return false
	}
	for _, have := range t.Tags {
		if strings.ToLower(strings.TrimSpace(have)) == want {
			return true
		}
	}
	return false
}

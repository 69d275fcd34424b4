package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/promptcheck/promptcheck/internal/config"
)

const sampleConfig = `# promptcheck configuration
#
# Every section is optional. Environment variables (OPENAI_API_KEY,
# GROQ_API_KEY, OPENROUTER_API_KEY, ANTHROPIC_API_KEY) take precedence
# over keys listed here.
#
# api_keys:
#   openai: "YOUR_OPENAI_KEY_HERE"
#   groq: "YOUR_GROQ_KEY_HERE"
#   openrouter: "YOUR_OPENROUTER_KEY_HERE"
#   anthropic: "YOUR_ANTHROPIC_KEY_HERE"
#
# default_model:
#   provider: "openai"
#   model_name: "gpt-3.5-turbo"
#   parameters:
#     temperature: 0.7
#     max_tokens: 150
#     timeout_s: 30.0
#     retry_attempts: 2
#
# default_thresholds:
#   latency_p95_ms: 5000       # latency metrics above this fail
#   cost_per_run_usd: 0.10     # cost metrics above this fail
`

const sampleTests = `- id: "openrouter_greet_test_001"
  name: "OpenRouter Basic Greeting Test"
  description: "Greets the user with a free OpenRouter model. Requires OPENROUTER_API_KEY."
  type: "llm_generation"

  input:
    prompt: "Briefly introduce yourself and greet the user."

  expected:
    regex_pattern: ".+"   # any non-empty response

  metrics:
    - metric: "regex_match"
    - metric: "token_count"
    - metric: "latency"
      threshold:
        value: 15000
    - metric: "cost"

  model:
    provider: "openrouter"
    model_name: "mistralai/mistral-7b-instruct"
    parameters:
      temperature: 0.7
      max_tokens: 75
      timeout_s: 25.0
      retry_attempts: 2

  tags: ["openrouter", "free_model", "greeting"]
`

func newInitCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a config file and an example test suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return scaffold(cmd.OutOrStdout(), dir, force)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to initialize")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")
	return cmd
}

func scaffold(out io.Writer, dir string, force bool) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("init: create %q: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.DefaultFileName)
	if err := writeScaffold(out, configPath, sampleConfig, force); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	testsDir := filepath.Join(dir, defaultTestsDir)
	if err := os.MkdirAll(testsDir, 0o755); err != nil {
		return fmt.Errorf("init: create %q: %w", testsDir, err)
	}
	examplePath := filepath.Join(testsDir, "basic_example.yaml")
	if err := writeScaffold(out, examplePath, sampleTests, force); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	_, _ = fmt.Fprintln(out, "promptcheck initialized. Next steps:")
	_, _ = fmt.Fprintf(out, "  1. Put API keys in %s or export the provider environment variables.\n", configPath)
	_, _ = fmt.Fprintf(out, "  2. Adjust the example test in %s.\n", examplePath)
	_, _ = fmt.Fprintln(out, "  3. Run 'promptcheck run'.")
	return nil
}

func writeScaffold(out io.Writer, path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			_, _ = fmt.Fprintf(out, "%s already exists, skipping. Use --force to overwrite.\n", path)
			return nil
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	_, _ = fmt.Fprintf(out, "Created %s\n", path)
	return nil
}

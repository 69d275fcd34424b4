package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/promptcheck/promptcheck/internal/runner"
)

const reportStampFormat = "20060102_150405"

// writeReport serializes the run report into dir and returns the path of
// the file it created.
func writeReport(dir string, report *runner.RunOutput) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %q: %w", dir, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	name := fmt.Sprintf("promptcheck_run_%s.json", time.Now().UTC().Format(reportStampFormat))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %q: %w", path, err)
	}
	return path, nil
}

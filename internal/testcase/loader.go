package testcase

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads one YAML file holding a list of test cases. An empty file
// yields an empty list; anything that is not a list of cases is an error.
func LoadFile(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testcase: read %q: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var cases []TestCase
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("testcase: parse %q: %w", path, err)
	}

	for i := range cases {
		if err := cases[i].Validate(); err != nil {
			return nil, fmt.Errorf("testcase: %q: cases[%d] (%s): %w", path, i, cases[i].Name, err)
		}
	}
	return cases, nil
}

// Discover expands files and directories into a sorted, de-duplicated list
// of YAML test files. Directories are walked recursively; explicit paths
// that are not YAML files are skipped.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("testcase: stat %q: %w", p, err)
		}
		if !info.IsDir() {
			if isYAMLFile(p) {
				add(p)
			}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isYAMLFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("testcase: walk %q: %w", p, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// FilterByTags keeps the cases carrying at least one of the wanted tags. An
// empty or all-blank filter keeps everything.
func FilterByTags(cases []TestCase, tags []string) []TestCase {
	wanted := make([]string, 0, len(tags))
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			wanted = append(wanted, t)
		}
	}
	if len(wanted) == 0 {
		return cases
	}

	out := make([]TestCase, 0, len(cases))
	for i := range cases {
		for _, tag := range wanted {
			if cases[i].HasTag(tag) {
				out = append(out, cases[i])
				break
			}
		}
	}
	return out
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

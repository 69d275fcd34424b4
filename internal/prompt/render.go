// Package prompt renders prompt templates by substituting {{name}}
// placeholders from a variables map.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// Render substitutes {{name}} placeholders in template with values from
// vars, formatting each value with %v. Placeholders with no matching
// variable are left verbatim so the model sees exactly what was written.
func Render(template string, vars map[string]any) (string, error) {
	if err := checkDelimiters(template); err != nil {
		return "", err
	}

	rendered := template
	for k, v := range vars {
		placeholder := "{{" + k + "}}"
		if strings.Contains(rendered, placeholder) {
			rendered = strings.ReplaceAll(rendered, placeholder, fmt.Sprintf("%v", v))
		}
	}
	return rendered, nil
}

func checkDelimiters(s string) error {
	open := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '{' && s[i+1] == '{' {
			open++
			i++
			continue
		}
		if s[i] == '}' && s[i+1] == '}' {
			if open == 0 {
				return errors.New(`prompt: unmatched "}}"`)
			}
			open--
			i++
		}
	}
	if open != 0 {
		return errors.New(`prompt: unmatched "{{"`)
	}
	return nil
}

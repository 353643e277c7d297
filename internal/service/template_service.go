package service

import (
	"strings"
)

// RenderTemplate substitutes {placeholder} tokens with contact data. Empty
// values render as <unknown> so a half-filled lead never produces a message
// with dangling braces.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "<unknown>"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

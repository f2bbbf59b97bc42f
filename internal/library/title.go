package library

import (
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLength = 80
	untitled       = "Untitled"
)

// InferTitle derives a title from the first meaningful line of body.
// Code fence lines are skipped and leading heading markers are removed.
func InferTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTitleLength {
			line = strings.TrimSpace(string([]rune(line)[:maxTitleLength]))
		}
		return line
	}
	return untitled
}

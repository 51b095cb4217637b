package summary

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	welcomeMarker = "Welcome to ChatPath"
	maxTitleRunes = 50
)

var sentenceEnd = regexp.MustCompile(`[.!?]`)

// Title returns the heading shown on a node: the first sentence of the first
// user message, truncated to 50 characters.
func Title(turns []Turn, nodeID string) string {
	fallback := fmt.Sprintf("Conversation %s", shortID(nodeID))

	for _, t := range turns {
		if t.Role != "user" {
			continue
		}
		content := strings.TrimSpace(t.Text)
		if strings.Contains(content, welcomeMarker) {
			return "New Conversation"
		}
		first := strings.TrimSpace(sentenceEnd.Split(content, 2)[0])
		if utf8.RuneCountInString(first) > maxTitleRunes {
			first = string([]rune(first)[:maxTitleRunes]) + "..."
		}
		if first == "" {
			return fallback
		}
		return first
	}
	return fallback
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

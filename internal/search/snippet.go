package search

import (
	"strings"
)

// Snippet returns at most maxLen characters of text around the first query term
// found in it, marking cut ends with "...". Without a match it starts at the beginning.
func Snippet(text, query string, maxLen int) string {
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}
	lower := []rune(strings.ToLower(text))
	start := 0
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if i := indexRunes(lower, []rune(term)); i >= 0 {
			start = i - maxLen/4
			break
		}
	}
	if start < 0 {
		start = 0
	}
	if start > len(runes)-maxLen {
		start = len(runes) - maxLen
	}
	end := start + maxLen

	var sb strings.Builder
	if start > 0 {
		sb.WriteString("...")
	}
	sb.WriteString(strings.TrimSpace(string(runes[start:end])))
	if end < len(runes) {
		sb.WriteString("...")
	}
	return sb.String()
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

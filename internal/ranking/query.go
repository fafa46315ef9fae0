// Package ranking re-orders question search hits by how the query matches the
// question stem and options.
package ranking

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var phraseRegex = regexp.MustCompile(`"([^"]+)"`)

// AnalyzedQuery is a search query split into terms, quoted phrases and negated terms.
// All parts are lowercased.
type AnalyzedQuery struct {
	Original     string
	Terms        []string
	Phrases      []string
	NegatedTerms []string
}

// Analyze parses a query string. Quoted text becomes a phrase; words prefixed with
// "-" or following NOT are negated; AND and OR are ignored.
func Analyze(query string) *AnalyzedQuery {
	result := &AnalyzedQuery{
		Original:     query,
		Terms:        []string{},
		Phrases:      []string{},
		NegatedTerms: []string{},
	}

	for _, match := range phraseRegex.FindAllStringSubmatch(query, -1) {
		phrase := strings.Join(strings.Fields(strings.ToLower(match[1])), " ")
		if phrase != "" {
			result.Phrases = append(result.Phrases, phrase)
		}
	}
	remaining := phraseRegex.ReplaceAllString(query, " ")

	negateNext := false
	for _, word := range strings.Fields(remaining) {
		switch {
		case strings.EqualFold(word, "NOT"):
			negateNext = true
			continue
		case strings.EqualFold(word, "AND"), strings.EqualFold(word, "OR"):
			continue
		}
		negated := negateNext || strings.HasPrefix(word, "-")
		negateNext = false
		token := normalizeToken(strings.TrimLeft(word, "-"))
		if token == "" {
			continue
		}
		if negated {
			result.NegatedTerms = append(result.NegatedTerms, token)
		} else {
			result.Terms = append(result.Terms, token)
		}
	}
	return result
}

// MatchText returns the positive part of the query (terms and phrase words) for the
// keyword index. It is empty when the query only negates.
func (q *AnalyzedQuery) MatchText() string {
	return strings.Join(q.Tokens(), " ")
}

// Tokens returns the terms followed by the words of each phrase, without duplicates.
func (q *AnalyzedQuery) Tokens() []string {
	seen := make(map[string]bool)
	tokens := make([]string, 0, len(q.Terms)+len(q.Phrases)*3)
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	for _, term := range q.Terms {
		add(term)
	}
	for _, phrase := range q.Phrases {
		for _, word := range strings.Fields(phrase) {
			add(normalizeToken(word))
		}
	}
	return tokens
}

// normalizeToken lowercases token and trims punctuation from its edges, keeping
// internal hyphens ("pré-eclâmpsia").
func normalizeToken(token string) string {
	return strings.TrimFunc(strings.ToLower(token), func(r rune) bool {
		return unicode.IsPunct(r) && r != '-' && r != '_'
	})
}

// indexWordPrefix returns the byte index of the first occurrence of term in text, at
// or after from, that starts a word, or -1. Both must already be lowercase.
func indexWordPrefix(text, term string, from int) int {
	if term == "" {
		return -1
	}
	offset := from
	for {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return -1
		}
		i += offset
		if i == 0 {
			return 0
		}
		if r, _ := utf8.DecodeLastRuneInString(text[:i]); !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return i
		}
		offset = i + len(term)
	}
}

// countMatchingTerms counts the terms that start a word in text.
func countMatchingTerms(terms []string, text string) int {
	count := 0
	for _, term := range terms {
		if indexWordPrefix(text, term, 0) >= 0 {
			count++
		}
	}
	return count
}

// termsInOrder reports whether every term starts a word in text, in order.
func termsInOrder(terms []string, text string) bool {
	if len(terms) == 0 {
		return false
	}
	offset := 0
	for _, term := range terms {
		i := indexWordPrefix(text, term, offset)
		if i < 0 {
			return false
		}
		offset = i + len(term)
	}
	return true
}

package keyword

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// TermDictionary provides the indexed terms used for query suggestions.
type TermDictionary interface {
	// Terms returns every indexed term with its document frequency.
	Terms() (map[string]int, error)
}

// Terms returns the stem and options terms of the index with their document frequency.
func (b *BleveIndex) Terms() (map[string]int, error) {
	terms := make(map[string]int)
	for _, field := range []string{"stem", "options"} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if int(entry.Count) > terms[entry.Term] {
				terms[entry.Term] = int(entry.Count)
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// Suggest rewrites query replacing each unknown term with the most frequent
// indexed term within maxDistance edits. It returns "" when nothing changes.
func Suggest(dict TermDictionary, query string, maxDistance int) (string, error) {
	terms, err := dict.Terms()
	if err != nil {
		return "", err
	}
	words := strings.Fields(strings.ToLower(query))
	changed := false
	for i, w := range words {
		if _, ok := terms[w]; ok {
			continue
		}
		if best := closestTerm(terms, w, maxDistance); best != "" {
			words[i] = best
			changed = true
		}
	}
	if !changed {
		return "", nil
	}
	return strings.Join(words, " "), nil
}

type candidate struct {
	term     string
	distance int
	freq     int
}

// closestTerm prefers smaller distance, then higher frequency, then lexical order.
func closestTerm(terms map[string]int, word string, maxDistance int) string {
	wordLen := utf8.RuneCountInString(word)
	var found []candidate
	for term, freq := range terms {
		diff := utf8.RuneCountInString(term) - wordLen
		if diff < 0 {
			diff = -diff
		}
		if diff > maxDistance {
			continue
		}
		if d := levenshtein(word, term); d <= maxDistance {
			found = append(found, candidate{term: term, distance: d, freq: freq})
		}
	}
	if len(found) == 0 {
		return ""
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].distance != found[j].distance {
			return found[i].distance < found[j].distance
		}
		if found[i].freq != found[j].freq {
			return found[i].freq > found[j].freq
		}
		return found[i].term < found[j].term
	})
	return found[0].term
}

// levenshtein is the rune edit distance between a and b, keeping two rows.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

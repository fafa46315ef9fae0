package models

import (
	"fmt"
	"strings"
)

// SearchQuery is a full-text search request over extracted questions.
type SearchQuery struct {
	Query        string `json:"query"`
	Limit        int    `json:"limit,omitempty"`
	ExtractionID string `json:"extraction_id,omitempty"`

	// Fuzzy tolerates one typo per term.
	Fuzzy bool `json:"fuzzy,omitempty"`
}

// Validate ensures the query is non-empty and normalizes limit into [1, maxLimit],
// using defaultLimit when unset.
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}

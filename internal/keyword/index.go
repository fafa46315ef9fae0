// Package keyword provides full-text indexing and search over extracted questions.
package keyword

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/revalida/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// ExtractionID restricts hits to the questions of one extraction.
	ExtractionID string
	// Fuzziness is the maximum edit distance per term (1 or 2). Zero disables fuzzy matching.
	Fuzziness int
}

// QuestionIndex defines question search operations.
type QuestionIndex interface {
	// IndexExtraction replaces every indexed question of extractionID with questions.
	IndexExtraction(ctx context.Context, extractionID string, questions []models.Question) error
	DeleteExtraction(ctx context.Context, extractionID string) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	// DocCount returns the total number of indexed questions.
	DocCount() (uint64, error)
	// ExtractionDocCount returns the number of indexed questions of extractionID.
	ExtractionDocCount(ctx context.Context, extractionID string) (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID           string
	ExtractionID string
	Position     int
	Score        float64
}

// DocID returns the index document id of the question at position in extractionID.
func DocID(extractionID string, position int) string {
	return extractionID + "/" + strconv.Itoa(position)
}

// ParseDocID splits a document id produced by DocID.
func ParseDocID(id string) (extractionID string, position int, err error) {
	i := strings.LastIndexByte(id, '/')
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid document id %q", id)
	}
	position, err = strconv.Atoi(id[i+1:])
	if err != nil || position < 0 {
		return "", 0, fmt.Errorf("invalid document id %q", id)
	}
	return id[:i], position, nil
}

// Package search provides the question search engine.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/revalida/internal/config"
	"github.com/hyperjump/revalida/internal/keyword"
	"github.com/hyperjump/revalida/internal/models"
	"github.com/hyperjump/revalida/internal/ranking"
	"github.com/hyperjump/revalida/internal/storage"
	"github.com/hyperjump/revalida/pkg/utils"
	"go.uber.org/zap"
)

const (
	snippetLength      = 200
	fuzzyDistance      = 1
	suggestMaxDistance = 2
	// Keyword hits fetched per requested result, leaving room for re-ranking and
	// negated terms.
	overfetchFactor = 2
)

// ErrInvalidQuery is returned for an empty query.
var ErrInvalidQuery = errors.New("invalid search query")

// Engine runs keyword search over questions and hydrates hits from the catalog.
type Engine struct {
	catalog storage.Catalog
	index   keyword.QuestionIndex
	config  *config.SearchConfig
	ranker  *ranking.Ranker
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRanker sets the ranker that re-orders keyword hits. The default is built from
// the search config.
func WithRanker(r *ranking.Ranker) Option {
	return func(e *Engine) {
		e.ranker = r
	}
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(catalog storage.Catalog, index keyword.QuestionIndex, cfg *config.SearchConfig, opts ...Option) *Engine {
	e := &Engine{catalog: catalog, index: index, config: cfg}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.NopIfNil(e.logger)
	if e.ranker == nil {
		e.ranker = ranking.NewRanker(&cfg.Ranking)
	}
	return e
}

// Search validates query, runs it and returns question-level results. Quoted phrases,
// "-term" and NOT term are understood; see ranking.Analyze.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(e.config.DefaultLimit, e.config.MaxLimit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	analyzed := ranking.Analyze(query.Query)
	matchText := analyzed.MatchText()
	if matchText == "" {
		return nil, fmt.Errorf("%w: query has no search terms", ErrInvalidQuery)
	}

	opts := &keyword.SearchOptions{ExtractionID: query.ExtractionID}
	if query.Fuzzy {
		opts.Fuzziness = fuzzyDistance
	}
	hits, err := e.index.Search(ctx, matchText, query.Limit*overfetchFactor, opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	response := &models.SearchResponse{
		Results: make([]*models.SearchResult, 0, len(hits)),
		Query:   query.Query,
	}
	filenames := make(map[string]string)
	for _, hit := range hits {
		q, err := e.catalog.GetQuestion(ctx, hit.ExtractionID, hit.Position)
		if err != nil {
			// Index entries can outlive a folder removed by hand until the next sync.
			e.logger.Debug("skipping stale search hit", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		filename, ok := filenames[hit.ExtractionID]
		if !ok {
			if m, err := e.catalog.GetExtraction(ctx, hit.ExtractionID); err == nil {
				filename = m.PDFFilename
			}
			filenames[hit.ExtractionID] = filename
		}
		response.Results = append(response.Results, &models.SearchResult{
			ExtractionID: hit.ExtractionID,
			PDFFilename:  filename,
			Question:     q,
			Score:        hit.Score,
			Snippet:      Snippet(q.Stem, matchText, snippetLength),
		})
	}
	response.Results = e.ranker.Rerank(analyzed, response.Results)
	if len(response.Results) > query.Limit {
		response.Results = response.Results[:query.Limit]
	}
	response.Total = len(response.Results)

	if response.Total == 0 {
		if dict, ok := e.index.(keyword.TermDictionary); ok {
			suggested, err := keyword.Suggest(dict, matchText, suggestMaxDistance)
			if err != nil {
				e.logger.Warn("query suggestion failed", zap.Error(err))
			}
			response.SuggestedQuery = suggested
		}
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

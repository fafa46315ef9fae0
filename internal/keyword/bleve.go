package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/revalida/internal/models"
)

// deleteBatchSize bounds how many hits one delete round fetches.
const deleteBatchSize = 500

// questionDoc is the indexed form of one question.
type questionDoc struct {
	ExtractionID string `json:"extraction_id"`
	Number       int    `json:"number"`
	Stem         string `json:"stem"`
	Options      string `json:"options"`
}

// BleveIndex implements QuestionIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is reopened as is; remove the directory after changing the
// mapping so the next Sync rebuilds it.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so accented terms match as typed.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("stem", textFieldMapping)
	docMapping.AddFieldMappingsAt("options", textFieldMapping)

	idFieldMapping := bleve.NewKeywordFieldMapping()
	idFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("extraction_id", idFieldMapping)

	numberFieldMapping := bleve.NewNumericFieldMapping()
	numberFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("number", numberFieldMapping)

	im.AddDocumentMapping("question", docMapping)
	im.DefaultType = "question"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexExtraction replaces the indexed questions of extractionID in one batch.
func (b *BleveIndex) IndexExtraction(ctx context.Context, extractionID string, questions []models.Question) error {
	if err := b.DeleteExtraction(ctx, extractionID); err != nil {
		return err
	}
	if len(questions) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for i := range questions {
		q := &questions[i]
		doc := questionDoc{
			ExtractionID: extractionID,
			Number:       q.Number,
			Stem:         q.Stem,
			Options:      optionsText(q.Options),
		}
		if err := batch.Index(DocID(extractionID, i), doc); err != nil {
			return fmt.Errorf("failed to index question %d: %w", q.Number, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index extraction %s: %w", extractionID, err)
	}
	return nil
}

// DeleteExtraction removes every indexed question of extractionID.
func (b *BleveIndex) DeleteExtraction(ctx context.Context, extractionID string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := bleve.NewSearchRequest(extractionQuery(extractionID))
		req.Size = deleteBatchSize
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("Bleve search failed: %w", err)
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete extraction %s from index: %w", extractionID, err)
		}
	}
}

// Search runs a match query over stem and options and returns up to limit results.
// When opts.Fuzziness > 0, each term is matched with that edit distance instead.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	var extractionID string
	fuzziness := 0
	if opts != nil {
		extractionID = opts.ExtractionID
		fuzziness = opts.Fuzziness
	}

	var q blevequery.Query
	if fuzziness > 0 {
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		q = bleve.NewMatchQuery(query)
	}
	if extractionID != "" {
		q = bleve.NewConjunctionQuery(q, extractionQuery(extractionID))
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, pos, err := ParseDocID(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, &KeywordResult{ID: hit.ID, ExtractionID: id, Position: pos, Score: hit.Score})
	}
	return out, nil
}

// DocCount returns the total number of indexed questions.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// ExtractionDocCount returns the number of indexed questions of extractionID.
func (b *BleveIndex) ExtractionDocCount(ctx context.Context, extractionID string) (uint64, error) {
	req := bleve.NewSearchRequest(extractionQuery(extractionID))
	req.Size = 0
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("Bleve search failed: %w", err)
	}
	return results.Total, nil
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

func extractionQuery(extractionID string) blevequery.Query {
	tq := bleve.NewTermQuery(extractionID)
	tq.SetField("extraction_id")
	return tq
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per query term.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := strings.Fields(strings.ToLower(queryStr))
	if len(terms) == 0 {
		return bleve.NewMatchQuery(queryStr)
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// optionsText joins the non-empty options as "A) text" lines.
func optionsText(o models.Options) string {
	var sb strings.Builder
	for _, letter := range models.Letters {
		text := o.Get(letter)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(letter)
		sb.WriteString(") ")
		sb.WriteString(text)
	}
	return sb.String()
}

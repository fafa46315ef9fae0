// Package pipeline runs extractions end to end: it stores the uploaded files, extracts
// and parses the exam, and records the result on disk, in the catalog and in the
// question index.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/revalida/internal/extract"
	"github.com/hyperjump/revalida/internal/fileid"
	"github.com/hyperjump/revalida/internal/keyword"
	"github.com/hyperjump/revalida/internal/metrics"
	"github.com/hyperjump/revalida/internal/models"
	"github.com/hyperjump/revalida/internal/parser"
	"github.com/hyperjump/revalida/internal/storage"
	"github.com/hyperjump/revalida/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrInvalidUpload is returned when the exam file is missing, not named .pdf or not a PDF.
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrAlreadyExtracted is returned by ExtractFile for a PDF whose content was already extracted.
	ErrAlreadyExtracted = errors.New("already extracted")
)

// DocumentExtractor reads exam PDFs and answer keys.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, content []byte, imagesDir string) (*extract.Document, error)
	AnswerKeyText(content []byte, ext string) (string, error)
}

// Upload is an exam PDF and an optional answer key, as received.
type Upload struct {
	Filename          string
	Content           []byte
	AnswerKeyFilename string
	AnswerKey         []byte
}

// HasAnswerKey reports whether an answer key was provided.
func (u *Upload) HasAnswerKey() bool {
	return u.AnswerKeyFilename != "" || len(u.AnswerKey) > 0
}

// Pipeline extracts exams into a Store, keeping the Catalog and QuestionIndex in step.
// Catalog and index may be nil; Sync fills them in later.
type Pipeline struct {
	store     storage.Store
	catalog   storage.Catalog
	index     keyword.QuestionIndex
	extractor DocumentExtractor
	parser    *parser.Parser
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for extraction events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records extraction outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the time source used for extraction IDs and timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline with the given dependencies.
func New(
	store storage.Store,
	catalog storage.Catalog,
	index keyword.QuestionIndex,
	extractor DocumentExtractor,
	p *parser.Parser,
	opts ...Option,
) *Pipeline {
	pl := &Pipeline{
		store:     store,
		catalog:   catalog,
		index:     index,
		extractor: extractor,
		parser:    p,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(pl)
	}
	pl.logger = utils.NopIfNil(pl.logger)
	if pl.parser == nil {
		pl.parser = parser.New(parser.Config{})
	}
	return pl
}

// Validate checks that u carries a PDF exam.
func Validate(u *Upload) error {
	if u.Filename == "" || len(u.Content) == 0 {
		return fmt.Errorf("%w: no PDF file provided", ErrInvalidUpload)
	}
	if !strings.HasSuffix(strings.ToLower(u.Filename), ".pdf") {
		return fmt.Errorf("%w: the exam file must be a PDF", ErrInvalidUpload)
	}
	if !extract.IsPDF(u.Content) {
		return fmt.Errorf("%w: %s is not a PDF document", ErrInvalidUpload, u.Filename)
	}
	return nil
}

// Extract runs one extraction. On any failure after the extraction folder is created,
// the folder and any catalog and index entries are removed.
func (p *Pipeline) Extract(ctx context.Context, u *Upload) (ext *models.Extraction, err error) {
	if err := Validate(u); err != nil {
		return nil, err
	}
	start := time.Now()
	created := p.now()
	id := fileid.NewExtractionID(created)
	log := p.logger.With(zap.String("extraction_id", id))

	if err := p.store.Create(id); err != nil {
		p.metrics.ObserveExtraction(metrics.OutcomeFailure, time.Since(start), 0, 0)
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		p.metrics.ObserveExtraction(metrics.OutcomeFailure, time.Since(start), 0, 0)
		log.Warn("extraction failed, removing folder", zap.Error(err))
		p.discard(id)
	}()

	pdfName, err := p.store.SaveSource(id, u.Filename, u.Content)
	if err != nil {
		return nil, err
	}

	var keyName, keyText string
	if u.HasAnswerKey() {
		name := u.AnswerKeyFilename
		if fileid.SanitizeFilename(name) == pdfName {
			name = "gabarito_" + pdfName
		}
		keyName, err = p.store.SaveSource(id, name, u.AnswerKey)
		if err != nil {
			return nil, err
		}
		keyText, err = p.extractor.AnswerKeyText(u.AnswerKey, filepath.Ext(keyName))
		if err != nil {
			return nil, fmt.Errorf("failed to read answer key: %w", err)
		}
		if strings.TrimSpace(keyText) == "" {
			log.Warn("answer key has no text, reading answers from the exam", zap.String("answer_key", keyName))
			keyText = ""
		}
	}

	doc, err := p.extractor.ExtractDocument(ctx, u.Content, p.store.ImagesDir(id))
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}

	questions := p.parser.Parse(doc.Pages, doc.Images, keyText)
	if repaired := parser.RepairEmptyOptions(questions); len(repaired) > 0 {
		log.Info("recovered options from question stems", zap.Ints("questions", repaired))
	}

	if err := p.store.SaveQuestions(id, questions); err != nil {
		return nil, err
	}
	meta := &models.Metadata{
		ExtractionID:      id,
		Timestamp:         created,
		PDFFilename:       pdfName,
		AnswerKeyFilename: keyName,
		TotalPages:        doc.TotalPages(),
		SourceDigest:      fileid.ContentDigest(u.Content),
	}
	meta.Summarize(questions)
	if err := p.store.SaveMetadata(meta); err != nil {
		return nil, err
	}
	if err := p.record(ctx, meta, questions); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	p.metrics.ObserveExtraction(metrics.OutcomeSuccess, elapsed, meta.TotalQuestions, meta.TotalImages)
	log.Info("extraction complete",
		zap.String("pdf", pdfName),
		zap.Int("pages", meta.TotalPages),
		zap.Int("questions", meta.TotalQuestions),
		zap.Int("images", meta.TotalImages),
		zap.Duration("elapsed", elapsed),
	)
	return &models.Extraction{Metadata: meta, Questions: questions}, nil
}

// record puts an extraction in the catalog and the question index.
func (p *Pipeline) record(ctx context.Context, m *models.Metadata, questions []models.Question) error {
	if p.catalog != nil {
		if err := p.catalog.PutExtraction(ctx, m, questions); err != nil {
			return fmt.Errorf("failed to catalog extraction: %w", err)
		}
	}
	if p.index != nil {
		if err := p.index.IndexExtraction(ctx, m.ExtractionID, questions); err != nil {
			return fmt.Errorf("failed to index questions: %w", err)
		}
	}
	return nil
}

// discard removes every trace of a failed extraction. It does not use the request
// context, which may already be cancelled.
func (p *Pipeline) discard(id string) {
	ctx := context.Background()
	if err := p.store.Delete(id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		p.logger.Warn("failed to remove extraction folder", zap.String("extraction_id", id), zap.Error(err))
	}
	if err := p.forget(ctx, id); err != nil {
		p.logger.Warn("failed to remove extraction entries", zap.String("extraction_id", id), zap.Error(err))
	}
}

// forget removes an extraction from the catalog and the question index.
func (p *Pipeline) forget(ctx context.Context, id string) error {
	if p.catalog != nil {
		if err := p.catalog.DeleteExtraction(ctx, id); err != nil {
			return fmt.Errorf("failed to delete from catalog: %w", err)
		}
	}
	if p.index != nil {
		if err := p.index.DeleteExtraction(ctx, id); err != nil {
			return fmt.Errorf("failed to delete from question index: %w", err)
		}
	}
	return nil
}

// Delete removes an extraction folder with its catalog and index entries. It returns
// storage.ErrNotFound (wrapped) when the folder does not exist; stale catalog and index
// entries are removed either way.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	storeErr := p.store.Delete(id)
	if storeErr != nil && !errors.Is(storeErr, storage.ErrNotFound) {
		return storeErr
	}
	if fileid.ValidExtractionID(id) {
		if err := p.forget(ctx, id); err != nil {
			return err
		}
	}
	if storeErr != nil {
		return storeErr
	}
	p.logger.Info("extraction deleted", zap.String("extraction_id", id))
	return nil
}

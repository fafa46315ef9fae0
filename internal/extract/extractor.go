// Package extract reads exam PDFs (page text and embedded images) and answer-key documents.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/revalida/pkg/utils"
	"go.uber.org/zap"
)

// Document is the raw content of an exam PDF.
type Document struct {
	// Pages holds the plain text of each page; page n is Pages[n-1].
	Pages []string
	// Images maps a 1-based page number to the image filenames written for it.
	Images map[int][]string
}

// TotalPages returns the number of pages in the document.
func (d *Document) TotalPages() int {
	return len(d.Pages)
}

// TotalImages returns the number of images written for the document.
func (d *Document) TotalImages() int {
	n := 0
	for _, imgs := range d.Images {
		n += len(imgs)
	}
	return n
}

// Extractor extracts exam documents and answer keys.
type Extractor struct {
	logger        *zap.Logger
	extractImages bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for non-fatal extraction problems.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// WithImages enables or disables embedded image extraction.
func WithImages(enabled bool) Option {
	return func(e *Extractor) {
		e.extractImages = enabled
	}
}

// NewExtractor returns a new Extractor. Image extraction is enabled by default.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{extractImages: true}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.NopIfNil(e.logger)
	return e
}

// ExtractDocument reads page text from content and writes embedded images into imagesDir.
// A text extraction failure is returned as an error; an image extraction failure is
// logged and the document is returned without images.
func (e *Extractor) ExtractDocument(ctx context.Context, content []byte, imagesDir string) (*Document, error) {
	pages, err := pdfPages(ctx, content)
	if err != nil {
		return nil, err
	}
	doc := &Document{Pages: pages, Images: map[int][]string{}}
	if !e.extractImages || imagesDir == "" {
		return doc, nil
	}
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	images, err := writeImages(ctx, content, imagesDir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("failed to extract images, continuing without images", zap.Error(err))
		return doc, nil
	}
	doc.Images = images
	return doc, nil
}

// AnswerKeyText extracts text from an answer-key document based on its extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
func (e *Extractor) AnswerKeyText(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".rtf", ".odt":
		return extractWithCat(content)
	case ".xlsx":
		return extractExcel(content)
	case ".ods":
		return extractODS(content)
	default:
		return extractPlain(content)
	}
}

// Package storage persists extractions: one folder per extraction on disk, which is
// the source of truth, and a SQLite catalog that indexes them for search and counts.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/revalida/internal/models"
)

// ErrNotFound is returned (wrapped) when an extraction, question or file does not exist.
var ErrNotFound = errors.New("not found")

// Store persists extraction folders.
type Store interface {
	// Create makes the folder of a new extraction, including output/images.
	Create(id string) error
	Exists(id string) bool
	// SaveSource writes an uploaded file into the extraction folder and returns the
	// sanitized filename used.
	SaveSource(id, filename string, content []byte) (string, error)
	ImagesDir(id string) string
	SaveQuestions(id string, questions []models.Question) error
	LoadQuestions(id string) ([]models.Question, error)
	SaveMetadata(m *models.Metadata) error
	LoadMetadata(id string) (*models.Metadata, error)
	Load(id string) (*models.Extraction, error)
	// List returns the metadata of every extraction, newest first.
	List() ([]*models.Metadata, error)
	// FindByDigest returns the newest extraction whose source PDF has digest.
	FindByDigest(digest string) (*models.Metadata, error)
	ListImages(id string) ([]models.ImageInfo, error)
	// ImagePath resolves an image filename to a path inside the extraction's images dir.
	ImagePath(id, filename string) (string, error)
	Delete(id string) error
	DiskUsageBytes() (int64, error)
}

// Catalog indexes extractions and their questions.
type Catalog interface {
	// PutExtraction inserts or replaces an extraction and all of its questions.
	PutExtraction(ctx context.Context, m *models.Metadata, questions []models.Question) error
	DeleteExtraction(ctx context.Context, id string) error
	GetExtraction(ctx context.Context, id string) (*models.Metadata, error)
	ListExtractionIDs(ctx context.Context) ([]string, error)
	FindByDigest(ctx context.Context, digest string) (*models.Metadata, error)
	// GetQuestion returns the question at position (0-based, file order) of an extraction.
	GetQuestion(ctx context.Context, extractionID string, position int) (*models.Question, error)

	CountExtractions(ctx context.Context) (int64, error)
	CountQuestions(ctx context.Context) (int64, error)

	Close() error
}

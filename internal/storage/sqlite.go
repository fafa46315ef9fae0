package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/revalida/internal/models"
)

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS extractions (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		pdf_filename TEXT NOT NULL,
		gabarito_filename TEXT NOT NULL DEFAULT '',
		total_pages INTEGER NOT NULL DEFAULT 0,
		total_questions INTEGER NOT NULL DEFAULT 0,
		questions_with_images INTEGER NOT NULL DEFAULT 0,
		total_images INTEGER NOT NULL DEFAULT 0,
		source_digest TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_extractions_timestamp ON extractions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_extractions_digest ON extractions(source_digest);

	CREATE TABLE IF NOT EXISTS questions (
		extraction_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		number INTEGER NOT NULL,
		stem TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_letter TEXT NOT NULL DEFAULT '',
		images TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (extraction_id, position),
		FOREIGN KEY (extraction_id) REFERENCES extractions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_questions_number ON questions(extraction_id, number);
	`
	_, err := db.Exec(schema)
	return err
}

const extractionColumns = `id, timestamp, pdf_filename, gabarito_filename, total_pages,
	total_questions, questions_with_images, total_images, source_digest`

type scanner interface {
	Scan(dest ...any) error
}

func scanExtraction(row scanner) (*models.Metadata, error) {
	var m models.Metadata
	if err := row.Scan(&m.ExtractionID, &m.Timestamp, &m.PDFFilename, &m.AnswerKeyFilename,
		&m.TotalPages, &m.TotalQuestions, &m.QuestionsWithImages, &m.TotalImages, &m.SourceDigest); err != nil {
		return nil, err
	}
	m.Timestamp = m.Timestamp.Local()
	return &m, nil
}

// PutExtraction implements Catalog. Existing rows for the extraction are replaced in one transaction.
func (c *SQLiteCatalog) PutExtraction(ctx context.Context, m *models.Metadata, questions []models.Question) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE extraction_id = ?`, m.ExtractionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO extractions (`+extractionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ExtractionID, m.Timestamp.UTC(), m.PDFFilename, m.AnswerKeyFilename, m.TotalPages,
		m.TotalQuestions, m.QuestionsWithImages, m.TotalImages, m.SourceDigest,
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO questions (extraction_id, position, number, stem, options, correct_letter, images)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, q := range questions {
		optionsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("failed to marshal options: %w", err)
		}
		images := q.Images
		if images == nil {
			images = []string{}
		}
		imagesJSON, err := json.Marshal(images)
		if err != nil {
			return fmt.Errorf("failed to marshal images: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, m.ExtractionID, i, q.Number, q.Stem,
			string(optionsJSON), q.CorrectLetter, string(imagesJSON)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteExtraction implements Catalog. Deleting an unknown extraction is not an error.
func (c *SQLiteCatalog) DeleteExtraction(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE extraction_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM extractions WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetExtraction implements Catalog.
func (c *SQLiteCatalog) GetExtraction(ctx context.Context, id string) (*models.Metadata, error) {
	m, err := scanExtraction(c.db.QueryRowContext(ctx,
		`SELECT `+extractionColumns+` FROM extractions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extraction %s: %w", id, ErrNotFound)
	}
	return m, err
}

// ListExtractionIDs implements Catalog.
func (c *SQLiteCatalog) ListExtractionIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id FROM extractions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindByDigest implements Catalog.
func (c *SQLiteCatalog) FindByDigest(ctx context.Context, digest string) (*models.Metadata, error) {
	if digest == "" {
		return nil, fmt.Errorf("empty digest: %w", ErrNotFound)
	}
	m, err := scanExtraction(c.db.QueryRowContext(ctx,
		`SELECT `+extractionColumns+` FROM extractions WHERE source_digest = ?
		 ORDER BY timestamp DESC LIMIT 1`, digest))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("digest %s: %w", digest, ErrNotFound)
	}
	return m, err
}

// GetQuestion implements Catalog.
func (c *SQLiteCatalog) GetQuestion(ctx context.Context, extractionID string, position int) (*models.Question, error) {
	var q models.Question
	var optionsJSON, imagesJSON string
	err := c.db.QueryRowContext(ctx,
		`SELECT number, stem, options, correct_letter, images
		 FROM questions WHERE extraction_id = ? AND position = ?`,
		extractionID, position,
	).Scan(&q.Number, &q.Stem, &optionsJSON, &q.CorrectLetter, &imagesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %s/%d: %w", extractionID, position, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	if err := json.Unmarshal([]byte(imagesJSON), &q.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}
	q.HasImage = len(q.Images) > 0
	return &q, nil
}

// CountExtractions implements Catalog.
func (c *SQLiteCatalog) CountExtractions(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&count)
	return count, err
}

// CountQuestions implements Catalog.
func (c *SQLiteCatalog) CountQuestions(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/revalida/internal/models"
)

func newTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	c, err := NewSQLiteCatalog(filepath.Join(t.TempDir(), "db", "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testQuestions() []models.Question {
	return []models.Question{
		{Number: 1, Stem: "Qual a conduta?", Options: models.Options{A: "Observar", B: "Internar"}, CorrectLetter: "B", HasImage: true, Images: []string{"page_1_img_1.png"}},
		{Number: 1, Stem: "Número repetido", Options: models.Options{A: "x"}},
		{Number: 2, Stem: "Qual o diagnóstico?", Options: models.Options{A: "Dengue"}},
	}
}

func TestSQLiteCatalog_PutGetDelete(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	m := &models.Metadata{ExtractionID: "20240309_140507_0a1b2c3d", Timestamp: ts, PDFFilename: "prova.pdf", SourceDigest: "abc"}
	m.Summarize(testQuestions())
	if err := c.PutExtraction(ctx, m, testQuestions()); err != nil {
		t.Fatal(err)
	}

	got, err := c.GetExtraction(ctx, m.ExtractionID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PDFFilename != "prova.pdf" || got.TotalQuestions != 3 || got.TotalImages != 1 {
		t.Errorf("got %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, ts)
	}

	q, err := c.GetQuestion(ctx, m.ExtractionID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if q.Stem != "Número repetido" || q.Options.A != "x" || q.HasImage {
		t.Errorf("question at position 1: %+v", q)
	}
	q, err = c.GetQuestion(ctx, m.ExtractionID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if q.CorrectLetter != "B" || !q.HasImage || q.Images[0] != "page_1_img_1.png" {
		t.Errorf("question at position 0: %+v", q)
	}

	n, err := c.CountQuestions(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountQuestions = %d, %v", n, err)
	}

	// Replacing keeps one row per position.
	if err := c.PutExtraction(ctx, m, testQuestions()[:1]); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.CountQuestions(ctx); n != 1 {
		t.Errorf("after replace CountQuestions = %d, want 1", n)
	}

	if err := c.DeleteExtraction(ctx, m.ExtractionID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetExtraction(ctx, m.ExtractionID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := c.GetQuestion(ctx, m.ExtractionID, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for question after delete, got %v", err)
	}
	if n, _ := c.CountExtractions(ctx); n != 0 {
		t.Errorf("CountExtractions = %d, want 0", n)
	}
}

func TestSQLiteCatalog_ListExtractionIDs(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	ids := []string{"20240101_080000", "20240102_080000_0000000a", "20240103_080000_0000000b"}
	for i, id := range ids {
		m := &models.Metadata{ExtractionID: id, Timestamp: base.Add(time.Duration(i) * 24 * time.Hour), PDFFilename: id + ".pdf"}
		if err := c.PutExtraction(ctx, m, nil); err != nil {
			t.Fatal(err)
		}
	}

	all, err := c.ListExtractionIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0] != ids[0] {
		t.Errorf("ids: %v", all)
	}
}

func TestSQLiteCatalog_FindByDigest(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	m := &models.Metadata{ExtractionID: "20240309_140507", Timestamp: time.Now(), PDFFilename: "p.pdf", SourceDigest: "d1"}
	if err := c.PutExtraction(ctx, m, nil); err != nil {
		t.Fatal(err)
	}
	got, err := c.FindByDigest(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ExtractionID != m.ExtractionID {
		t.Errorf("got %s", got.ExtractionID)
	}
	if _, err := c.FindByDigest(ctx, "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.FindByDigest(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty digest, got %v", err)
	}
}

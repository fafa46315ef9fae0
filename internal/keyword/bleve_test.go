package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/revalida/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() {
		_ = idx.Close()
	})
	return idx
}

func sampleQuestions() []models.Question {
	return []models.Question{
		{
			Number: 1,
			Stem:   "Paciente com dispneia súbita e dor torácica pleurítica.",
			Options: models.Options{
				A: "Tromboembolismo pulmonar",
				B: "Pneumotórax",
				C: "Pericardite",
			},
			CorrectLetter: "A",
		},
		{
			Number: 2,
			Stem:   "Criança com febre e exantema maculopapular.",
			Options: models.Options{
				A: "Sarampo",
				B: "Rubéola",
			},
			CorrectLetter: "A",
		},
	}
}

func TestBleveIndex_SearchFindsStemAndOptions(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.IndexExtraction(ctx, "20240101_080000_aaaaaaaa", sampleQuestions()); err != nil {
		t.Fatalf("IndexExtraction: %v", err)
	}

	results, err := idx.Search(ctx, "dispneia", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ExtractionID != "20240101_080000_aaaaaaaa" || results[0].Position != 0 {
		t.Errorf("hit = %+v, want position 0 of 20240101_080000_aaaaaaaa", results[0])
	}

	results, err = idx.Search(ctx, "sarampo", 10, nil)
	if err != nil {
		t.Fatalf("Search options: %v", err)
	}
	if len(results) != 1 || results[0].Position != 1 {
		t.Errorf("option search = %+v, want position 1", results)
	}
}

func TestBleveIndex_ExtractionFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.IndexExtraction(ctx, "20240101_080000_aaaaaaaa", sampleQuestions()); err != nil {
		t.Fatalf("IndexExtraction a: %v", err)
	}
	if err := idx.IndexExtraction(ctx, "20240102_080000_bbbbbbbb", sampleQuestions()); err != nil {
		t.Fatalf("IndexExtraction b: %v", err)
	}

	results, err := idx.Search(ctx, "febre", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("unfiltered len = %d, want 2", len(results))
	}

	results, err = idx.Search(ctx, "febre", 10, &SearchOptions{ExtractionID: "20240102_080000_bbbbbbbb"})
	if err != nil {
		t.Fatalf("Search filtered: %v", err)
	}
	if len(results) != 1 || results[0].ExtractionID != "20240102_080000_bbbbbbbb" {
		t.Errorf("filtered = %+v, want one hit from 20240102_080000_bbbbbbbb", results)
	}
}

func TestBleveIndex_ReindexAndDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	id := "20240101_080000_aaaaaaaa"

	if err := idx.IndexExtraction(ctx, id, sampleQuestions()); err != nil {
		t.Fatalf("IndexExtraction: %v", err)
	}
	if n, _ := idx.DocCount(); n != 2 {
		t.Fatalf("DocCount = %d, want 2", n)
	}

	// Reindexing with fewer questions drops the stale ones.
	if err := idx.IndexExtraction(ctx, id, sampleQuestions()[:1]); err != nil {
		t.Fatalf("IndexExtraction again: %v", err)
	}
	if n, _ := idx.DocCount(); n != 1 {
		t.Fatalf("DocCount after reindex = %d, want 1", n)
	}

	if err := idx.DeleteExtraction(ctx, id); err != nil {
		t.Fatalf("DeleteExtraction: %v", err)
	}
	if n, _ := idx.DocCount(); n != 0 {
		t.Errorf("DocCount after delete = %d, want 0", n)
	}
	// Deleting an unknown extraction is a no-op.
	if err := idx.DeleteExtraction(ctx, "20240105_080000_cccccccc"); err != nil {
		t.Errorf("DeleteExtraction unknown: %v", err)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.IndexExtraction(ctx, "20240101_080000_aaaaaaaa", sampleQuestions()); err != nil {
		t.Fatalf("IndexExtraction: %v", err)
	}

	results, err := idx.Search(ctx, "exantemq", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("exact search for misspelling returned %d hits", len(results))
	}

	results, err = idx.Search(ctx, "exantemq", 10, &SearchOptions{Fuzziness: 1})
	if err != nil {
		t.Fatalf("fuzzy Search: %v", err)
	}
	if len(results) != 1 || results[0].Position != 1 {
		t.Errorf("fuzzy results = %+v, want position 1", results)
	}
}

func TestBleveIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if err := idx.IndexExtraction(context.Background(), "20240101_080000_aaaaaaaa", sampleQuestions()); err != nil {
		t.Fatalf("IndexExtraction: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() {
		_ = reopened.Close()
	}()
	if n, _ := reopened.DocCount(); n != 2 {
		t.Errorf("DocCount after reopen = %d, want 2", n)
	}
}

func TestDocID(t *testing.T) {
	id := DocID("20240101_080000_aaaaaaaa", 12)
	if id != "20240101_080000_aaaaaaaa/12" {
		t.Fatalf("DocID = %q", id)
	}
	ext, pos, err := ParseDocID(id)
	if err != nil || ext != "20240101_080000_aaaaaaaa" || pos != 12 {
		t.Errorf("ParseDocID = %q, %d, %v", ext, pos, err)
	}
	for _, bad := range []string{"", "noslash", "/3", "x/y", "x/-1"} {
		if _, _, err := ParseDocID(bad); err == nil {
			t.Errorf("ParseDocID(%q) expected error", bad)
		}
	}
}

func TestOptionsText(t *testing.T) {
	got := optionsText(models.Options{A: "um", C: "três"})
	if got != "A) um\nC) três" {
		t.Errorf("optionsText = %q", got)
	}
}

func TestBleveIndex_ExtractionDocCount(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.IndexExtraction(ctx, "20240101_080000_aaaaaaaa", sampleQuestions()); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexExtraction(ctx, "20240102_080000_bbbbbbbb", sampleQuestions()[:1]); err != nil {
		t.Fatal(err)
	}
	tests := map[string]uint64{
		"20240101_080000_aaaaaaaa": 2,
		"20240102_080000_bbbbbbbb": 1,
		"20240103_080000_cccccccc": 0,
	}
	for id, want := range tests {
		n, err := idx.ExtractionDocCount(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Errorf("ExtractionDocCount(%s) = %d, want %d", id, n, want)
		}
	}
}

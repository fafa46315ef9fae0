package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/revalida/internal/models"
)

const testID = "20240309_140507_0a1b2c3d"

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(filepath.Join(t.TempDir(), "extractions"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDiskStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create(testID); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(testID); err == nil {
		t.Error("creating an existing extraction should fail")
	}
	if !s.Exists(testID) {
		t.Fatal("extraction should exist")
	}

	name, err := s.SaveSource(testID, "../prova 2024.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "prova 2024.pdf" {
		t.Errorf("sanitized name = %q", name)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), testID, name)); err != nil {
		t.Errorf("source file missing: %v", err)
	}

	questions := []models.Question{{Number: 1, Stem: "Questão <b>", Options: models.Options{A: "um"}, Images: []string{}}}
	if err := s.SaveQuestions(testID, questions); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(filepath.Join(s.Root(), testID, "output", "questions_"+testID+".json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "Questão <b>") {
		t.Errorf("questions file should keep non-ASCII and HTML characters unescaped: %s", raw)
	}

	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	m := &models.Metadata{ExtractionID: testID, Timestamp: ts, PDFFilename: name}
	m.Summarize(questions)
	if err := s.SaveMetadata(m); err != nil {
		t.Fatal(err)
	}

	ext, err := s.Load(testID)
	if err != nil {
		t.Fatal(err)
	}
	if ext.Metadata.PDFFilename != name || !ext.Metadata.Timestamp.Equal(ts) {
		t.Errorf("metadata: %+v", ext.Metadata)
	}
	if len(ext.Questions) != 1 || ext.Questions[0].Options.A != "um" {
		t.Errorf("questions: %+v", ext.Questions)
	}

	if err := s.Delete(testID); err != nil {
		t.Fatal(err)
	}
	if s.Exists(testID) {
		t.Error("extraction should be gone")
	}
	if err := s.Delete(testID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestDiskStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	tests := []struct {
		name string
		fn   func() error
	}{
		{"metadata of missing", func() error { _, err := s.LoadMetadata(testID); return err }},
		{"invalid id", func() error { _, err := s.LoadMetadata("../etc"); return err }},
		{"questions of missing", func() error { _, err := s.LoadQuestions(testID); return err }},
		{"images of missing", func() error { _, err := s.ListImages(testID); return err }},
		{"delete missing", func() error { return s.Delete(testID) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestDiskStore_Images(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create(testID); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.ImagesDir(testID), "page_1_img_1.png"), []byte("png!"), 0644); err != nil {
		t.Fatal(err)
	}

	images, err := s.ListImages(testID)
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 1 {
		t.Fatalf("images: %+v", images)
	}
	want := models.ImageInfo{Filename: "page_1_img_1.png", Size: 4, URL: "/api/v1/extractions/" + testID + "/images/page_1_img_1.png"}
	if images[0] != want {
		t.Errorf("image = %+v, want %+v", images[0], want)
	}

	if _, err := s.ImagePath(testID, "page_1_img_1.png"); err != nil {
		t.Errorf("ImagePath: %v", err)
	}
	for _, bad := range []string{"../metadata.json", "..", "a/b.png", `a\b.png`, "", "missing.png"} {
		if _, err := s.ImagePath(testID, bad); !errors.Is(err, ErrNotFound) {
			t.Errorf("ImagePath(%q): expected ErrNotFound, got %v", bad, err)
		}
	}
}

func TestDiskStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local)
	ids := []string{"20240101_080000", "20240102_080000_0000000a", "20240103_080000_0000000b"}
	for i, id := range ids {
		if err := s.Create(id); err != nil {
			t.Fatal(err)
		}
		m := &models.Metadata{ExtractionID: id, Timestamp: base.Add(time.Duration(i) * 24 * time.Hour)}
		if err := s.SaveMetadata(m); err != nil {
			t.Fatal(err)
		}
	}
	// Folders without metadata and unrelated folders are skipped.
	if err := s.Create("20240104_080000"); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(s.Root(), "uploads"), 0755); err != nil {
		t.Fatal(err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("list: got %d, want 3", len(list))
	}
	if list[0].ExtractionID != ids[2] || list[2].ExtractionID != ids[0] {
		t.Errorf("unexpected order: %s, %s, %s", list[0].ExtractionID, list[1].ExtractionID, list[2].ExtractionID)
	}
}

func TestDiskStore_FindByDigest(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"20240101_080000", "20240102_080000"} {
		if err := s.Create(id); err != nil {
			t.Fatal(err)
		}
		m := &models.Metadata{ExtractionID: id, Timestamp: time.Date(2024, 1, 1+i, 8, 0, 0, 0, time.Local)}
		if i == 1 {
			m.SourceDigest = "d1"
		}
		if err := s.SaveMetadata(m); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.FindByDigest("d1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ExtractionID != "20240102_080000" {
		t.Errorf("FindByDigest = %s", got.ExtractionID)
	}
	if _, err := s.FindByDigest("other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown digest: got %v", err)
	}
	if _, err := s.FindByDigest(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty digest: got %v", err)
	}
}

func TestPage(t *testing.T) {
	list := []*models.Metadata{{ExtractionID: "a"}, {ExtractionID: "b"}, {ExtractionID: "c"}}
	ids := func(ms []*models.Metadata) string {
		out := []string{}
		for _, m := range ms {
			out = append(out, m.ExtractionID)
		}
		return strings.Join(out, ",")
	}
	tests := []struct {
		offset, limit int
		want          string
	}{
		{0, 0, "a,b,c"},
		{1, 0, "b,c"},
		{0, 2, "a,b"},
		{2, 5, "c"},
		{3, 1, ""},
		{9, 0, ""},
	}
	for _, tt := range tests {
		if got := ids(Page(list, tt.offset, tt.limit)); got != tt.want {
			t.Errorf("Page(offset=%d, limit=%d) = %q, want %q", tt.offset, tt.limit, got, tt.want)
		}
	}
}

func TestDiskStore_LegacyFiles(t *testing.T) {
	s := newTestStore(t)
	id := "20231105_093012"
	if err := s.Create(id); err != nil {
		t.Fatal(err)
	}
	meta := `{"extraction_id": "20231105_093012", "timestamp": "2023-11-05T09:30:12.345678", "pdf_filename": "prova.pdf", "gabarito_filename": null, "total_questions": 1}`
	if err := os.WriteFile(filepath.Join(s.Root(), id, "metadata.json"), []byte(meta), 0644); err != nil {
		t.Fatal(err)
	}
	questions := `{"questions": [{"number": 1, "stem": "S", "option_a": "um", "option_b": "dois", "option_c": "", "option_d": "", "option_e": "", "correct_letter": "A", "images": ["extractions/20231105_093012/output/images/page_1_img_1.png"], "has_image": true}]}`
	if err := os.WriteFile(filepath.Join(s.Root(), id, "output", "questions_"+id+".json"), []byte(questions), 0644); err != nil {
		t.Fatal(err)
	}

	ext, err := s.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2023, 11, 5, 9, 30, 12, 345678000, time.Local)
	if !ext.Metadata.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", ext.Metadata.Timestamp, want)
	}
	if ext.Metadata.AnswerKeyFilename != "" {
		t.Errorf("gabarito_filename = %q", ext.Metadata.AnswerKeyFilename)
	}
	q := ext.Questions[0]
	if q.Options.A != "um" || q.Options.B != "dois" {
		t.Errorf("options = %+v", q.Options)
	}
	if len(q.Images) != 1 || q.Images[0] != "page_1_img_1.png" {
		t.Errorf("images = %v", q.Images)
	}
}

func TestDiskStore_TimestampFromID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create(testID); err != nil {
		t.Fatal(err)
	}
	meta := `{"pdf_filename": "prova.pdf"}`
	if err := os.WriteFile(filepath.Join(s.Root(), testID, "metadata.json"), []byte(meta), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := s.LoadMetadata(testID)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	if m.ExtractionID != testID || !m.Timestamp.Equal(want) {
		t.Errorf("metadata = %+v, want id %s at %v", m, testID, want)
	}
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "f1.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(f1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(f1, filepath.Join(dir, "nonexistent"), sub, "")
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("with missing: got %d bytes, want 8", got)
	}
}

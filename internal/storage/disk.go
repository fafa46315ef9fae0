package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/revalida/internal/fileid"
	"github.com/hyperjump/revalida/internal/models"
)

const (
	metadataFile = "metadata.json"
	outputDir    = "output"
	imagesDir    = "images"
)

// ImageURL returns the API path serving an extracted image.
func ImageURL(id, filename string) string {
	return "/api/v1/extractions/" + id + "/images/" + filename
}

// DiskStore implements Store on a directory of extraction folders.
type DiskStore struct {
	root string
}

// NewDiskStore returns a DiskStore rooted at root, creating it if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extractions directory: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// Root returns the extractions directory.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) dir(id string) (string, error) {
	if !fileid.ValidExtractionID(id) {
		return "", fmt.Errorf("extraction %q: %w", id, ErrNotFound)
	}
	return filepath.Join(s.root, id), nil
}

func (s *DiskStore) questionsPath(id string) string {
	return filepath.Join(s.root, id, outputDir, "questions_"+id+".json")
}

// Create implements Store.
func (s *DiskStore) Create(id string) error {
	dir, err := s.dir(id)
	if err != nil {
		return err
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return fmt.Errorf("failed to create extraction folder: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, outputDir, imagesDir), 0755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}
	return nil
}

// Exists implements Store.
func (s *DiskStore) Exists(id string) bool {
	dir, err := s.dir(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// SaveSource implements Store.
func (s *DiskStore) SaveSource(id, filename string, content []byte) (string, error) {
	dir, err := s.dir(id)
	if err != nil {
		return "", err
	}
	name := fileid.SanitizeFilename(filename)
	if name == metadataFile || name == outputDir {
		name = "source_" + name
	}
	if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	return name, nil
}

// ImagesDir implements Store.
func (s *DiskStore) ImagesDir(id string) string {
	return filepath.Join(s.root, id, outputDir, imagesDir)
}

// SaveQuestions implements Store.
func (s *DiskStore) SaveQuestions(id string, questions []models.Question) error {
	if _, err := s.dir(id); err != nil {
		return err
	}
	return WriteQuestionsFile(s.questionsPath(id), questions)
}

// LoadQuestions implements Store.
func (s *DiskStore) LoadQuestions(id string) ([]models.Question, error) {
	if _, err := s.dir(id); err != nil {
		return nil, err
	}
	return ReadQuestionsFile(s.questionsPath(id))
}

// ReadQuestionsFile reads a questions JSON file, including the flat option layout of
// older files.
func ReadQuestionsFile(name string) ([]models.Question, error) {
	data, err := readFile(name, "questions file")
	if err != nil {
		return nil, err
	}
	return decodeQuestions(data)
}

// WriteQuestionsFile writes questions as {"questions": [...]}.
func WriteQuestionsFile(name string, questions []models.Question) error {
	if questions == nil {
		questions = []models.Question{}
	}
	return writeJSON(name, models.QuestionsFile{Questions: questions})
}

// SaveMetadata implements Store.
func (s *DiskStore) SaveMetadata(m *models.Metadata) error {
	dir, err := s.dir(m.ExtractionID)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, metadataFile), m)
}

// LoadMetadata implements Store.
func (s *DiskStore) LoadMetadata(id string) (*models.Metadata, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	if !s.Exists(id) {
		return nil, fmt.Errorf("extraction %s: %w", id, ErrNotFound)
	}
	data, err := readFile(filepath.Join(dir, metadataFile), "metadata")
	if err != nil {
		return nil, err
	}
	m, err := decodeMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata of %s: %w", id, err)
	}
	if m.ExtractionID == "" {
		m.ExtractionID = id
	}
	if m.Timestamp.IsZero() {
		if t, ok := fileid.ExtractionTime(id); ok {
			m.Timestamp = t
		}
	}
	return m, nil
}

// Load implements Store.
func (s *DiskStore) Load(id string) (*models.Extraction, error) {
	m, err := s.LoadMetadata(id)
	if err != nil {
		return nil, err
	}
	questions, err := s.LoadQuestions(id)
	if err != nil {
		return nil, err
	}
	return &models.Extraction{Metadata: m, Questions: questions}, nil
}

// List implements Store. Folders without readable metadata are skipped.
func (s *DiskStore) List() ([]*models.Metadata, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read extractions directory: %w", err)
	}
	var list []*models.Metadata
	for _, e := range entries {
		if !e.IsDir() || !fileid.ValidExtractionID(e.Name()) {
			continue
		}
		m, err := s.LoadMetadata(e.Name())
		if err != nil {
			continue
		}
		list = append(list, m)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].Timestamp.After(list[j].Timestamp)
		}
		return list[i].ExtractionID > list[j].ExtractionID
	})
	return list, nil
}

// Page returns the slice of list starting at offset, at most limit long. A limit <= 0
// means no limit.
func Page(list []*models.Metadata, offset, limit int) []*models.Metadata {
	if offset >= len(list) {
		return []*models.Metadata{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// FindByDigest implements Store by scanning the metadata of every folder.
func (s *DiskStore) FindByDigest(digest string) (*models.Metadata, error) {
	if digest == "" {
		return nil, fmt.Errorf("digest: %w", ErrNotFound)
	}
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		if m.SourceDigest == digest {
			return m, nil
		}
	}
	return nil, fmt.Errorf("digest %s: %w", digest, ErrNotFound)
}

// ListImages implements Store.
func (s *DiskStore) ListImages(id string) ([]models.ImageInfo, error) {
	if _, err := s.dir(id); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.ImagesDir(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("images of %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read images: %w", err)
	}
	images := make([]models.ImageInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		images = append(images, models.ImageInfo{
			Filename: e.Name(),
			Size:     info.Size(),
			URL:      ImageURL(id, e.Name()),
		})
	}
	return images, nil
}

// ImagePath implements Store.
func (s *DiskStore) ImagePath(id, filename string) (string, error) {
	if _, err := s.dir(id); err != nil {
		return "", err
	}
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return "", fmt.Errorf("image %q: %w", filename, ErrNotFound)
	}
	p := filepath.Join(s.ImagesDir(id), filename)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("image %s: %w", filename, ErrNotFound)
	}
	return p, nil
}

// Delete implements Store.
func (s *DiskStore) Delete(id string) error {
	dir, err := s.dir(id)
	if err != nil {
		return err
	}
	if !s.Exists(id) {
		return fmt.Errorf("extraction %s: %w", id, ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete extraction %s: %w", id, err)
	}
	return nil
}

// DiskUsageBytes implements Store.
func (s *DiskStore) DiskUsageBytes() (int64, error) {
	return DiskUsageBytes(s.root)
}

func readFile(name, what string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	return data, nil
}

func writeJSON(name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(name), err)
	}
	if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(name), err)
	}
	return nil
}

// timestampLayouts accepts RFC 3339 as well as the zone-less ISO timestamps of
// older extractions.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func decodeMetadata(data []byte) (*models.Metadata, error) {
	type alias models.Metadata
	var raw struct {
		alias
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	m := models.Metadata(raw.alias)
	if raw.Timestamp != "" {
		ts, err := parseTimestamp(raw.Timestamp)
		if err != nil {
			return nil, err
		}
		m.Timestamp = ts
	}
	return &m, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// storedQuestion also reads the flat option_a..option_e layout of older files.
type storedQuestion struct {
	models.Question
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
	OptionC string `json:"option_c"`
	OptionD string `json:"option_d"`
	OptionE string `json:"option_e"`
}

func decodeQuestions(data []byte) ([]models.Question, error) {
	var file struct {
		Questions []storedQuestion `json:"questions"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse questions file: %w", err)
	}
	questions := make([]models.Question, 0, len(file.Questions))
	for _, sq := range file.Questions {
		q := sq.Question
		if q.Options.Empty() {
			q.Options = models.Options{A: sq.OptionA, B: sq.OptionB, C: sq.OptionC, D: sq.OptionD, E: sq.OptionE}
		}
		images := make([]string, 0, len(q.Images))
		for _, img := range q.Images {
			images = append(images, path.Base(strings.ReplaceAll(img, `\`, "/")))
		}
		q.Images = images
		q.HasImage = len(images) > 0
		questions = append(questions, q)
	}
	return questions, nil
}

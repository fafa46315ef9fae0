package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/hyperjump/revalida/internal/models"
)

const questionsKey = "questions"

// QuestionsDocument is a JSON object with a "questions" array: a questions file or a
// saved extraction response. Its other top-level keys are written back unchanged.
type QuestionsDocument struct {
	Questions []models.Question
	fields    map[string]json.RawMessage
}

// ReadQuestionsDocument reads a questions document, including the flat option layout
// of older files.
func ReadQuestionsDocument(name string) (*QuestionsDocument, error) {
	data, err := readFile(name, "questions file")
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse questions file: %w", err)
	}
	if _, ok := fields[questionsKey]; !ok {
		return nil, fmt.Errorf("%s has no %q array", filepath.Base(name), questionsKey)
	}
	questions, err := decodeQuestions(data)
	if err != nil {
		return nil, err
	}
	return &QuestionsDocument{Questions: questions, fields: fields}, nil
}

// Write writes the document to name with the current questions.
func (d *QuestionsDocument) Write(name string) error {
	questions := d.Questions
	if questions == nil {
		questions = []models.Question{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(questions); err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}
	fields := make(map[string]json.RawMessage, len(d.fields)+1)
	maps.Copy(fields, d.fields)
	fields[questionsKey] = bytes.TrimSpace(buf.Bytes())
	return writeJSON(name, fields)
}

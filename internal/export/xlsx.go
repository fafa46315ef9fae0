// Package export writes extractions as spreadsheets.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/revalida/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	QuestionsSheet = "Questions"
	MetadataSheet  = "Metadata"
)

var questionHeaders = []any{"Number", "Stem", "A", "B", "C", "D", "E", "Answer", "Images"}

// Filename returns the download name of an extraction's spreadsheet.
func Filename(m *models.Metadata) string {
	base := strings.TrimSuffix(m.PDFFilename, filepath.Ext(m.PDFFilename))
	if base == "" {
		base = "extraction"
	}
	return base + "_" + m.ExtractionID + ".xlsx"
}

// WriteXLSX writes a workbook with one row per question and a sheet of extraction metadata.
func WriteXLSX(w io.Writer, m *models.Metadata, questions []models.Question) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", QuestionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(QuestionsSheet, "A1", &questionHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i := range questions {
		q := &questions[i]
		row := []any{
			q.Number, q.Stem,
			q.Options.A, q.Options.B, q.Options.C, q.Options.D, q.Options.E,
			q.CorrectLetter, strings.Join(q.Images, ", "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(QuestionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write question %d: %w", q.Number, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(QuestionsSheet, "A1", "I1", bold); err != nil {
		return fmt.Errorf("style headers: %w", err)
	}
	if err := f.SetColWidth(QuestionsSheet, "B", "B", 80); err != nil {
		return err
	}
	if err := f.SetColWidth(QuestionsSheet, "C", "G", 30); err != nil {
		return err
	}

	if _, err := f.NewSheet(MetadataSheet); err != nil {
		return fmt.Errorf("create metadata sheet: %w", err)
	}
	for i, kv := range metadataRows(m) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(MetadataSheet, cell, &kv); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
	}
	if err := f.SetColWidth(MetadataSheet, "A", "A", 24); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func metadataRows(m *models.Metadata) [][]any {
	return [][]any{
		{"Extraction ID", m.ExtractionID},
		{"Timestamp", m.Timestamp.Format(time.RFC3339)},
		{"PDF file", m.PDFFilename},
		{"Answer key file", m.AnswerKeyFilename},
		{"Total pages", m.TotalPages},
		{"Total questions", m.TotalQuestions},
		{"Questions with images", m.QuestionsWithImages},
		{"Total images", m.TotalImages},
		{"Source digest", m.SourceDigest},
	}
}

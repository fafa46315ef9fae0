// Package cli provides output formatting and a server client for the revalida CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hyperjump/revalida/internal/models"
	"github.com/hyperjump/revalida/internal/pipeline"
	"github.com/hyperjump/revalida/pkg/utils"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const (
	separator      = "─────────────────────────────────────────────────────────"
	stemPreviewLen = 300
)

// ParseOutputFormat returns the format named by s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	if response.Total == 0 && response.SuggestedQuery != "" {
		fmt.Fprintf(w, "Did you mean %q?\n\n", response.SuggestedQuery)
	}
	for _, result := range response.Results {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		number := 0
		if result.Question != nil {
			number = result.Question.Number
		}
		fmt.Fprintf(w, "Extraction: %s (%s) | Question %d\n", result.ExtractionID, result.PDFFilename, number)
		fmt.Fprintf(w, "\n%s\n\n", result.Snippet)
	}
	return nil
}

// WriteExtractionList writes a page of extractions as a table.
func WriteExtractionList(w io.Writer, list *models.ExtractionList, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, list)
	}
	if len(list.Extractions) == 0 {
		fmt.Fprintf(w, "No extractions (total %d)\n", list.Total)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPDF\tQUESTIONS\tIMAGES\tCREATED")
	for _, m := range list.Extractions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			m.ExtractionID, m.PDFFilename, m.TotalQuestions, m.TotalImages, formatTime(m.Timestamp))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nShowing %d of %d extractions\n", len(list.Extractions), list.Total)
	return nil
}

// WriteExtraction writes an extraction's metadata followed by its questions. Correct
// options are marked with "*".
func WriteExtraction(w io.Writer, ext *models.Extraction, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, ext)
	}
	m := ext.Metadata
	fmt.Fprintf(w, "extraction:  %s\n", m.ExtractionID)
	fmt.Fprintf(w, "created:     %s\n", formatTime(m.Timestamp))
	fmt.Fprintf(w, "pdf:         %s\n", m.PDFFilename)
	if m.AnswerKeyFilename != "" {
		fmt.Fprintf(w, "answer key:  %s\n", m.AnswerKeyFilename)
	}
	fmt.Fprintf(w, "pages:       %d\n", m.TotalPages)
	fmt.Fprintf(w, "questions:   %d (%d with images, %d images)\n", m.TotalQuestions, m.QuestionsWithImages, m.TotalImages)

	for _, q := range ext.Questions {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d. %s\n", q.Number, utils.Truncate(q.Stem, stemPreviewLen))
		for _, letter := range models.Letters {
			text := q.Options.Get(letter)
			if text == "" {
				continue
			}
			mark := " "
			if letter == q.CorrectLetter {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s%s) %s\n", mark, letter, text)
		}
		if len(q.Images) > 0 {
			fmt.Fprintf(w, "   images: %s\n", strings.Join(q.Images, ", "))
		}
	}
	return nil
}

// WriteStatus writes service status.
func WriteStatus(w io.Writer, status *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, status)
	}
	fmt.Fprintf(w, "extractions:        %d   # extraction folders in the catalog\n", status.Extractions)
	fmt.Fprintf(w, "questions:          %d   # parsed questions in the catalog\n", status.Questions)
	if status.IndexedQuestions != nil {
		fmt.Fprintf(w, "indexed_questions:  %d   # questions in the search index\n", *status.IndexedQuestions)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # extractions + catalog + index on disk\n", *status.DiskUsageBytes)
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "extractions_dir:    %s\n", c.ExtractionsDir)
		fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		fmt.Fprintf(w, "bleve_index_path:   %s\n", c.BleveIndexPath)
		fmt.Fprintf(w, "max_upload_bytes:   %d\n", c.MaxUploadBytes)
		fmt.Fprintf(w, "max_question:       %d\n", c.MaxQuestionNumber)
		fmt.Fprintf(w, "extract_images:     %t\n", c.ExtractImages)
		for _, d := range c.WatchDirectories {
			fmt.Fprintf(w, "watch_directory:    %s\n", d)
		}
	}
	return nil
}

// WriteSyncResult writes what a catalog sync changed.
func WriteSyncResult(w io.Writer, res *pipeline.SyncResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	fmt.Fprintf(w, "Synced: %d added, %d removed, %d reindexed, %d skipped\n", res.Added, res.Removed, res.Reindexed, res.Skipped)
	return nil
}

// PruneResult is the outcome of a prune.
type PruneResult struct {
	DryRun bool     `json:"dry_run"`
	Pruned []string `json:"pruned"`
}

// WritePruneResult writes the extractions removed (or, on a dry run, that would be).
func WritePruneResult(w io.Writer, res *PruneResult, format OutputFormat) error {
	if format == OutputJSON {
		if res.Pruned == nil {
			res.Pruned = []string{}
		}
		return WriteJSON(w, res)
	}
	verb := "Deleted"
	if res.DryRun {
		verb = "Would delete"
	}
	for _, id := range res.Pruned {
		fmt.Fprintf(w, "%s %s\n", verb, id)
	}
	fmt.Fprintf(w, "%s %d extraction(s)\n", verb, len(res.Pruned))
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

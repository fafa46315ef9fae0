package models

import "time"

// Metadata describes one extraction. It is persisted as metadata.json.
type Metadata struct {
	ExtractionID        string    `json:"extraction_id"`
	Timestamp           time.Time `json:"timestamp"`
	PDFFilename         string    `json:"pdf_filename"`
	AnswerKeyFilename   string    `json:"gabarito_filename"`
	TotalPages          int       `json:"total_pages"`
	TotalQuestions      int       `json:"total_questions"`
	QuestionsWithImages int       `json:"questions_with_images"`
	TotalImages         int       `json:"total_images"`
	SourceDigest        string    `json:"source_digest,omitempty"`
}

// Extraction is a full extraction result: metadata plus its questions.
type Extraction struct {
	Metadata  *Metadata  `json:"metadata"`
	Questions []Question `json:"questions"`
}

// ExtractionList is a page of extraction metadata, newest first.
type ExtractionList struct {
	Total       int64       `json:"total"`
	Extractions []*Metadata `json:"extractions"`
}

// ImageInfo describes an extracted image file.
type ImageInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// Summarize fills the question and image counters of m from questions.
// TotalImages counts image references, so an image shared by two questions
// on the same page counts twice.
func (m *Metadata) Summarize(questions []Question) {
	m.TotalQuestions = len(questions)
	m.QuestionsWithImages = 0
	m.TotalImages = 0
	for _, q := range questions {
		if q.HasImage {
			m.QuestionsWithImages++
		}
		m.TotalImages += len(q.Images)
	}
}

package models

// SearchResult is a single question hit.
type SearchResult struct {
	ExtractionID string    `json:"extraction_id"`
	PDFFilename  string    `json:"pdf_filename"`
	Question     *Question `json:"question"`
	Score        float64   `json:"score"`
	Snippet      string    `json:"snippet"`
	Rank         int       `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`

	// SuggestedQuery is a spelling correction offered when nothing matched.
	SuggestedQuery string `json:"suggested_query,omitempty"`
}

// Status summarizes stored extractions, the question index and the active configuration.
type Status struct {
	Extractions      int64         `json:"extractions"`
	Questions        int64         `json:"questions"`
	IndexedQuestions *uint64       `json:"indexed_questions,omitempty"`
	DiskUsageBytes   *int64        `json:"disk_usage_bytes,omitempty"`
	Config           *StatusConfig `json:"config,omitempty"`
}

// StatusConfig is the configuration summary reported with a Status.
type StatusConfig struct {
	ExtractionsDir    string   `json:"extractions_dir"`
	DatabasePath      string   `json:"database_path"`
	BleveIndexPath    string   `json:"bleve_index_path"`
	MaxUploadBytes    int64    `json:"max_upload_bytes"`
	MaxQuestionNumber int      `json:"max_question_number"`
	ExtractImages     bool     `json:"extract_images"`
	WatchDirectories  []string `json:"watch_directories"`
}

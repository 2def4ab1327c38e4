package pdf

import "time"

// Status is the processing outcome of a single document.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusFailure        Status = "failure"
)

// Confidence is the coarse indicator of how many clinical fields were found.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Extraction method identifiers stored in metadata["extraction_method"].
const (
	MethodStandard   = "standard"
	MethodLlamaParse = "LlamaParse"
	MethodOCRFailed  = "LlamaParse_failed"
)

// Table is a 2-D grid of cell strings.
type Table [][]string

// PatientName holds the parsed patient name parts. Missing parts are empty.
type PatientName struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

// ClinicalData is the structured subset parsed from free text.
type ClinicalData struct {
	PatientName          PatientName `json:"patient_name"`
	DateOfBirth          string      `json:"date_of_birth"`
	ExtractionConfidence Confidence  `json:"extraction_confidence"`
}

// Found reports whether a full name or a date of birth was extracted.
func (c ClinicalData) Found() bool {
	return c.PatientName.FullName != "" || c.DateOfBirth != ""
}

// PageResult is the extraction output of one physical page.
type PageResult struct {
	PageNumber   int           `json:"page_number"`
	Text         string        `json:"text"`
	TextLength   int           `json:"text_length"`
	Tables       []Table       `json:"tables"`
	BBox         []float64     `json:"bbox,omitempty"`
	Width        *float64      `json:"width,omitempty"`
	Height       *float64      `json:"height,omitempty"`
	Error        string        `json:"error,omitempty"`
	ClinicalData *ClinicalData `json:"clinical_data,omitempty"`
}

// ProcessingResult is the full extraction output of one document.
type ProcessingResult struct {
	Filename        string         `json:"filename"`
	FileSize        int64          `json:"file_size"`
	ProcessedAt     time.Time      `json:"processed_at"`
	Pages           []PageResult   `json:"pages"`
	TotalPages      int            `json:"total_pages"`
	TotalTextLength int            `json:"total_text_length"`
	Metadata        map[string]any `json:"metadata"`
	FileHash        string         `json:"file_hash"`
	Status          Status         `json:"status"`
	ClinicalData    *ClinicalData  `json:"clinical_data"`
}

// ExtractionMethod returns metadata["extraction_method"] or "unknown".
func (r *ProcessingResult) ExtractionMethod() string {
	if m, ok := r.Metadata["extraction_method"].(string); ok && m != "" {
		return m
	}
	return "unknown"
}

// ClinicalResult is the lightweight clinical-only response.
type ClinicalResult struct {
	Filename         string        `json:"filename"`
	FileSize         int64         `json:"file_size"`
	ProcessedAt      time.Time     `json:"processed_at"`
	TotalPages       int           `json:"total_pages"`
	ExtractionMethod string        `json:"extraction_method"`
	ClinicalData     *ClinicalData `json:"clinical_data"`
	FileHash         string        `json:"file_hash"`
	Status           Status        `json:"status"`
	Message          string        `json:"message,omitempty"`
}

// FailedFile describes a file that could not be processed inside a batch.
type FailedFile struct {
	Filename  string `json:"filename"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// BatchSummary holds the running totals of a full-extraction batch.
type BatchSummary struct {
	SuccessCount    int `json:"success_count"`
	ErrorCount      int `json:"error_count"`
	TotalPages      int `json:"total_pages"`
	TotalTextLength int `json:"total_text_length"`
}

// BatchResult is the full-extraction batch outcome. Successful is in completion order.
type BatchResult struct {
	BatchID     string              `json:"batch_id"`
	ProcessedAt time.Time           `json:"processed_at"`
	TotalFiles  int                 `json:"total_files"`
	Successful  []*ProcessingResult `json:"successful"`
	Failed      []FailedFile        `json:"failed"`
	Summary     BatchSummary        `json:"summary"`
}

// ClinicalBatchSummary holds the running totals of a clinical-only batch.
type ClinicalBatchSummary struct {
	SuccessCount          int `json:"success_count"`
	ErrorCount            int `json:"error_count"`
	TotalPages            int `json:"total_pages"`
	ClinicalDataExtracted int `json:"clinical_data_extracted"`
}

// ClinicalBatchResult is the clinical-only batch outcome.
type ClinicalBatchResult struct {
	BatchID     string               `json:"batch_id"`
	ProcessedAt time.Time            `json:"processed_at"`
	TotalFiles  int                  `json:"total_files"`
	Successful  []*ClinicalResult    `json:"successful"`
	Failed      []FailedFile         `json:"failed"`
	Summary     ClinicalBatchSummary `json:"summary"`
}

// TextMatch is one occurrence of a search query inside a page.
type TextMatch struct {
	Position  int    `json:"position"`
	Context   string `json:"context"`
	MatchText string `json:"match_text"`
}

// PageMatches groups the matches found on one page.
type PageMatches struct {
	PageNumber int         `json:"page_number"`
	Matches    []TextMatch `json:"matches"`
	MatchCount int         `json:"match_count"`
}

// SearchResult is the output of SearchText.
type SearchResult struct {
	Query            string        `json:"query"`
	Matches          []PageMatches `json:"matches"`
	TotalMatches     int           `json:"total_matches"`
	PagesWithMatches int           `json:"pages_with_matches"`
}

// Summary holds per-document aggregates computed from page fields.
type Summary struct {
	Filename          string         `json:"filename"`
	TotalPages        int            `json:"total_pages"`
	TotalTextLength   int            `json:"total_text_length"`
	AveragePageLength float64        `json:"average_page_length"`
	LongestPage       int            `json:"longest_page"`
	ShortestPage      int            `json:"shortest_page"`
	PagesWithTables   int            `json:"pages_with_tables"`
	TotalTables       int            `json:"total_tables"`
	FileSize          int64          `json:"file_size"`
	ProcessedAt       time.Time      `json:"processed_at"`
	Metadata          map[string]any `json:"metadata"`
}

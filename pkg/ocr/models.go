package ocr

// Result types accepted by the parsing service.
const (
	ResultText     = "text"
	ResultMarkdown = "markdown"
	ResultJSON     = "json"
)

// Job states reported by the parsing service.
const (
	JobPending  = "PENDING"
	JobSuccess  = "SUCCESS"
	JobError    = "ERROR"
	JobCanceled = "CANCELED"
)

// Document is one parsed text block; the service returns one per page.
type Document struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// UploadResponse is returned when a file is submitted for parsing.
type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// JobResponse describes the state of a parsing job.
type JobResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// JSONResult is the per-page result of a finished job.
type JSONResult struct {
	Pages []ResultPage `json:"pages"`
}

// ResultPage holds the text and markdown renderings of one page.
type ResultPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
	MD   string `json:"md"`
}

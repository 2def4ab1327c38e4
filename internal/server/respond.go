package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Alessa-Zeller/text-extraction-backend/pkg/pdf"
)

// Envelope wraps every successful response.
type Envelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorBody is returned for every failed request.
type ErrorBody struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) ok(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorBody{
		Error:     "Bad Request",
		Message:   message,
		Type:      "request_error",
		Timestamp: time.Now().UTC(),
	})
}

// fail maps the extraction error taxonomy onto HTTP status codes:
// validation 400, processing and batch 422, anything else 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	body := ErrorBody{
		Message:   err.Error(),
		Type:      pdf.ErrorType(err),
		Timestamp: time.Now().UTC(),
	}

	status := http.StatusInternalServerError
	var (
		pe *pdf.PDFProcessingError
		be *pdf.BatchProcessingError
	)
	switch body.Type {
	case "FileValidationError":
		status, body.Error = http.StatusBadRequest, "File validation error"
	case "PDFProcessingError":
		status, body.Error = http.StatusUnprocessableEntity, "PDF processing error"
		if errors.As(err, &pe) {
			body.Details = pe.Details
		}
	case "BatchProcessingError":
		status, body.Error = http.StatusUnprocessableEntity, "Batch processing error"
		if errors.As(err, &be) && len(be.FailedItems) > 0 {
			b, _ := json.Marshal(be.FailedItems)
			body.Details = string(b)
		}
	default:
		body.Error = "Unexpected error"
	}

	log := s.logger.Warn
	if status >= http.StatusInternalServerError {
		log = s.logger.Error
	}
	log("Request failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("type", body.Type),
		zap.Error(err))

	writeJSON(w, status, body)
}

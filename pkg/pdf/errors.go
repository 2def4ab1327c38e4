package pdf

import (
	"errors"
	"fmt"
)

// FileValidationError means the caller's file is unacceptable: missing, too large or of a disallowed type.
type FileValidationError struct {
	Message  string
	Filename string
}

func (e *FileValidationError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Filename)
	}
	return e.Message
}

// PDFProcessingError is returned when extraction fails after validation passed.
type PDFProcessingError struct {
	Message string
	Details string
	Err     error
}

func (e *PDFProcessingError) Error() string {
	return e.Message
}

func (e *PDFProcessingError) Unwrap() error {
	return e.Err
}

// BatchProcessingError is a batch-level precondition or catastrophic failure.
type BatchProcessingError struct {
	Message     string
	FailedItems []string
}

func (e *BatchProcessingError) Error() string {
	return e.Message
}

// ErrNoPages is returned by Summarize for a result without pages.
var ErrNoPages = errors.New("no valid results to summarize")

// newProcessingError wraps err with the file name as detail.
func newProcessingError(prefix string, filename string, err error) *PDFProcessingError {
	return &PDFProcessingError{
		Message: fmt.Sprintf("%s: %v", prefix, err),
		Details: "File: " + filename,
		Err:     err,
	}
}

// ErrorType returns the taxonomy name reported in batch failure entries.
func ErrorType(err error) string {
	var fv *FileValidationError
	var pp *PDFProcessingError
	var bp *BatchProcessingError
	switch {
	case errors.As(err, &fv):
		return "FileValidationError"
	case errors.As(err, &pp):
		return "PDFProcessingError"
	case errors.As(err, &bp):
		return "BatchProcessingError"
	default:
		return "Error"
	}
}

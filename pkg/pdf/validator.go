package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validator gates files before any extraction work.
type Validator struct {
	maxFileSize       int64
	allowedExtensions []string
}

// NewValidator creates a validator. Extensions are compared lower-cased, with the leading dot.
func NewValidator(maxFileSize int64, allowedExtensions []string) *Validator {
	exts := make([]string, 0, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return &Validator{maxFileSize: maxFileSize, allowedExtensions: exts}
}

// Validate checks existence, the size ceiling and the extension allow-list.
// displayName is reported in the error; it defaults to the base name of path.
func (v *Validator) Validate(path string, displayName string) error {
	if displayName == "" {
		displayName = filepath.Base(path)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &FileValidationError{Message: "File not found", Filename: displayName}
	}

	if v.maxFileSize > 0 && info.Size() > v.maxFileSize {
		return &FileValidationError{
			Message:  fmt.Sprintf("File size exceeds maximum allowed size of %d bytes", v.maxFileSize),
			Filename: displayName,
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !v.allowed(ext) {
		return &FileValidationError{
			Message:  fmt.Sprintf("File type not allowed. Allowed types: %v", v.allowedExtensions),
			Filename: displayName,
		}
	}

	return nil
}

func (v *Validator) allowed(ext string) bool {
	for _, a := range v.allowedExtensions {
		if a == ext {
			return true
		}
	}
	return false
}

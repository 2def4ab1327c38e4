package pdf

import (
	"context"
	"os"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Alessa-Zeller/text-extraction-backend/pkg/ocr"
)

// OCRParser is the cloud parsing capability used when a PDF has no text layer.
type OCRParser interface {
	Configured() bool
	Parse(ctx context.Context, path string) ([]ocr.Document, error)
}

// extractWithOCR maps each parsed document to a synthetic page.
// The clinical parser looks at page 2 when there is one, since page 1 is
// usually a cover sheet in scanned records.
func (p *Processor) extractWithOCR(ctx context.Context, path, displayName string) (*ProcessingResult, error) {
	if p.ocr == nil || !p.ocr.Configured() {
		return nil, &PDFProcessingError{
			Message: "LlamaParse API key not configured",
			Details: "File: " + displayName,
			Err:     ocr.ErrNotConfigured,
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, newProcessingError("Failed to process PDF with LlamaParse", displayName, err)
	}

	start := time.Now()
	docs, err := p.ocr.Parse(ctx, path)
	if err != nil {
		p.logger.Error("LlamaParse extraction failed", zap.String("file", displayName), zap.Error(err))
		return nil, newProcessingError("Failed to process PDF with LlamaParse", displayName, err)
	}

	result := &ProcessingResult{
		Filename:    displayName,
		FileSize:    info.Size(),
		ProcessedAt: time.Now(),
		Pages:       make([]PageResult, 0, len(docs)),
		Metadata:    map[string]any{"extraction_method": MethodLlamaParse},
		Status:      StatusSuccess,
	}
	for i, d := range docs {
		n := utf8.RuneCountInString(d.Text)
		result.Pages = append(result.Pages, PageResult{
			PageNumber: i + 1,
			Text:       d.Text,
			TextLength: n,
			Tables:     []Table{},
		})
		result.TotalTextLength += n
	}
	result.TotalPages = len(result.Pages)

	if len(result.Pages) > 0 {
		idx := 0
		if len(result.Pages) >= 2 {
			idx = 1
		}
		if cd := ParseClinical(result.Pages[idx].Text); cd.Found() {
			pageData, docData := cd, cd
			result.Pages[idx].ClinicalData = &pageData
			result.ClinicalData = &docData
		}
	}

	if result.FileHash, err = hashFile(path); err != nil {
		return nil, newProcessingError("Failed to process PDF with LlamaParse", displayName, err)
	}

	p.logger.Info("LlamaParse extraction finished",
		zap.String("file", displayName),
		zap.Int("pages", result.TotalPages),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

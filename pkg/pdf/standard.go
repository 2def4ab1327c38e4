package pdf

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	lpdf "github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// extractStandard reads the native text layer page by page.
// A failing page is annotated and skipped; only opening the document is fatal.
func (p *Processor) extractStandard(path, displayName string) (*ProcessingResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, newProcessingError("Failed to process PDF", displayName, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newProcessingError("Failed to process PDF", displayName, err)
	}
	defer f.Close()

	reader, err := openReader(f, info.Size())
	if err != nil {
		return nil, newProcessingError("Failed to process PDF", displayName, err)
	}

	result := &ProcessingResult{
		Filename:    displayName,
		FileSize:    info.Size(),
		ProcessedAt: time.Now(),
		Pages:       []PageResult{},
		Metadata:    p.metadata(path, displayName),
		Status:      StatusSuccess,
	}
	result.Metadata["extraction_method"] = MethodStandard

	numPages, err := pageCount(reader)
	if err != nil {
		return nil, newProcessingError("Failed to process PDF", displayName, err)
	}

	for n := 1; n <= numPages; n++ {
		page, err := pageExtractor(reader, n)
		if err != nil {
			p.logger.Warn("Page extraction failed",
				zap.String("file", displayName),
				zap.Int("page", n),
				zap.Error(err))
			result.Pages = append(result.Pages, PageResult{
				PageNumber: n,
				Tables:     []Table{},
				Error:      err.Error(),
			})
			continue
		}

		if result.ClinicalData == nil && strings.TrimSpace(page.Text) != "" {
			if cd := ParseClinical(page.Text); cd.Found() {
				pageData, docData := cd, cd
				page.ClinicalData = &pageData
				result.ClinicalData = &docData
			}
		}

		result.Pages = append(result.Pages, page)
		result.TotalTextLength += page.TextLength
	}
	result.TotalPages = len(result.Pages)

	if result.FileHash, err = hashFile(path); err != nil {
		return nil, newProcessingError("Failed to process PDF", displayName, err)
	}

	p.logger.Debug("Standard extraction finished",
		zap.String("file", displayName),
		zap.Int("pages", result.TotalPages),
		zap.Int("text_length", result.TotalTextLength))
	return result, nil
}

func (p *Processor) metadata(path, displayName string) map[string]any {
	md, err := readMetadata(path)
	if err != nil {
		p.logger.Warn("Could not read document metadata",
			zap.String("file", displayName),
			zap.Error(err))
		return map[string]any{}
	}
	return md
}

func openReader(f *os.File, size int64) (r *lpdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	return lpdf.NewReader(f, size)
}

func pageCount(r *lpdf.Reader) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("read page tree: %v", rec)
		}
	}()
	return r.NumPage(), nil
}

// pageExtractor is swapped in tests to simulate unreadable pages.
var pageExtractor = extractPage

// extractPage pulls text, tables and geometry for page n (1-based).
func extractPage(r *lpdf.Reader, n int) (page PageResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			page, err = PageResult{}, fmt.Errorf("page %d: %v", n, rec)
		}
	}()

	page = PageResult{PageNumber: n, Tables: []Table{}}
	pg := r.Page(n)
	if pg.V.IsNull() {
		return page, nil
	}

	rows, rowErr := pg.GetTextByRow()
	if rowErr == nil {
		layout := rowsFromPDF(rows)
		page.Text = renderText(layout)
		page.Tables = detectTables(layout)
	}
	if rowErr != nil || page.Text == "" {
		text, err := pg.GetPlainText(nil)
		if err != nil {
			if rowErr != nil {
				return PageResult{}, fmt.Errorf("page %d: %w", n, err)
			}
		} else if strings.TrimSpace(text) != "" {
			page.Text = text
		}
	}
	page.TextLength = utf8.RuneCountInString(page.Text)

	if box := mediaBox(pg.V); box != nil {
		w, h := box[2]-box[0], box[3]-box[1]
		page.BBox = box
		page.Width = &w
		page.Height = &h
	}
	return page, nil
}

// mediaBox returns [x0 y0 x1 y1], inherited from the page tree when needed.
func mediaBox(v lpdf.Value) []float64 {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == lpdf.Array && box.Len() == 4 {
			out := make([]float64, 4)
			for i := range out {
				out[i] = box.Index(i).Float64()
			}
			return out
		}
		v = v.Key("Parent")
	}
	return nil
}

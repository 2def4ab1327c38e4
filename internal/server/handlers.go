package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Alessa-Zeller/text-extraction-backend/internal/activity"
	"github.com/Alessa-Zeller/text-extraction-backend/pkg/pdf"
)

const anonymousUser = "anonymous"

type searchRequest struct {
	Results *pdf.ProcessingResult `json:"results"`
	Query   string                `json:"query"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.ok(w, http.StatusOK, "PDF service is healthy", map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	st, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	defer st.remove()

	result, err := s.proc.ExtractClinicalOnly(r.Context(), st.path)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.record(r, activity.PDFUpload, "Uploaded PDF: "+st.name, map[string]any{
		"filename":          st.name,
		"file_size":         result.FileSize,
		"total_pages":       result.TotalPages,
		"extraction_method": result.ExtractionMethod,
	})
	s.ok(w, http.StatusCreated, "PDF processed successfully", result)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	st, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	defer st.remove()

	result, err := s.proc.ProcessSingle(r.Context(), st.path)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.record(r, activity.PDFExtract, "Extracted PDF: "+st.name, map[string]any{
		"filename":          st.name,
		"file_size":         result.FileSize,
		"total_pages":       result.TotalPages,
		"extraction_method": result.ExtractionMethod(),
	})
	s.ok(w, http.StatusOK, "PDF extracted successfully", result)
}

func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	files, ok := s.batchUpload(w, r)
	if !ok {
		return
	}
	defer removeAll(files)

	result, err := s.proc.ProcessClinicalBatch(r.Context(), paths(files))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sum := result.Summary
	s.record(r, activity.PDFBatchUpload, fmt.Sprintf("Batch uploaded %d PDF files", len(files)), map[string]any{
		"file_count":              len(files),
		"filenames":               names(files),
		"success_count":           sum.SuccessCount,
		"error_count":             sum.ErrorCount,
		"clinical_data_extracted": sum.ClinicalDataExtracted,
	})
	s.ok(w, http.StatusCreated, fmt.Sprintf(
		"Batch processing completed. %d files processed successfully, %d failed. Clinical data extracted from %d files.",
		sum.SuccessCount, sum.ErrorCount, sum.ClinicalDataExtracted), result)
}

func (s *Server) handleBatchExtract(w http.ResponseWriter, r *http.Request) {
	files, ok := s.batchUpload(w, r)
	if !ok {
		return
	}
	defer removeAll(files)

	result, err := s.proc.ProcessBatch(r.Context(), paths(files))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sum := result.Summary
	s.record(r, activity.PDFBatch, fmt.Sprintf("Batch extracted %d PDF files", len(files)), map[string]any{
		"file_count":    len(files),
		"filenames":     names(files),
		"success_count": sum.SuccessCount,
		"error_count":   sum.ErrorCount,
		"total_pages":   sum.TotalPages,
	})
	s.ok(w, http.StatusOK, fmt.Sprintf(
		"Batch processing completed. %d files processed successfully, %d failed.",
		sum.SuccessCount, sum.ErrorCount), result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.badRequest(w, "Query must not be empty")
		return
	}
	if req.Results == nil {
		s.badRequest(w, "Results are required")
		return
	}

	res := pdf.SearchText(req.Results, req.Query)
	s.ok(w, http.StatusOK, fmt.Sprintf("Search completed. Found %d matches.", res.TotalMatches), res)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var result pdf.ProcessingResult
	if !s.decodeJSON(w, r, &result) {
		return
	}

	sum, err := pdf.Summarize(&result)
	if errors.Is(err, pdf.ErrNoPages) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorBody{
			Error:     "Summary error",
			Message:   err.Error(),
			Type:      "summary_error",
			Timestamp: time.Now().UTC(),
		})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Summary generated successfully", sum)
}

// singleUpload stages the multipart "file" field.
func (s *Server) singleUpload(w http.ResponseWriter, r *http.Request) (*staged, bool) {
	form, ok := s.parseForm(w, r, s.opts.MaxUploadSize)
	if !ok {
		return nil, false
	}
	fhs := form.File["file"]
	if len(fhs) == 0 {
		s.badRequest(w, `Missing multipart field "file"`)
		return nil, false
	}
	if !isPDF(fhs[0].Filename) {
		s.badRequest(w, "Only PDF files are allowed")
		return nil, false
	}

	st, err := s.stage(fhs[0])
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return st, true
}

// batchUpload stages every multipart "files" entry, rejecting the request
// before anything is written when the count or a file type is invalid.
func (s *Server) batchUpload(w http.ResponseWriter, r *http.Request) ([]*staged, bool) {
	limit := s.opts.MaxUploadSize
	if s.opts.MaxBatchSize > 0 && limit > 0 {
		limit *= int64(s.opts.MaxBatchSize)
	}
	form, ok := s.parseForm(w, r, limit)
	if !ok {
		return nil, false
	}
	fhs := form.File["files"]
	if len(fhs) == 0 {
		s.badRequest(w, `Missing multipart field "files"`)
		return nil, false
	}
	if s.opts.MaxBatchSize > 0 && len(fhs) > s.opts.MaxBatchSize {
		s.badRequest(w, fmt.Sprintf("Batch size exceeds maximum allowed size of %d", s.opts.MaxBatchSize))
		return nil, false
	}
	for _, fh := range fhs {
		if !isPDF(fh.Filename) {
			s.badRequest(w, fmt.Sprintf("File %s is not a PDF. Only PDF files are allowed.", fh.Filename))
			return nil, false
		}
	}

	files := make([]*staged, 0, len(fhs))
	for _, fh := range fhs {
		st, err := s.stage(fh)
		if err != nil {
			removeAll(files)
			s.fail(w, r, err)
			return nil, false
		}
		files = append(files, st)
	}
	return files, true
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request, limit int64) (*multipart.Form, bool) {
	if limit > 0 {
		limit += multipartSlack
		if r.ContentLength > limit {
			s.tooLarge(w, limit)
			return nil, false
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.tooLarge(w, mbe.Limit)
			return nil, false
		}
		s.badRequest(w, "Invalid multipart form: "+err.Error())
		return nil, false
	}
	return r.MultipartForm, true
}

func (s *Server) tooLarge(w http.ResponseWriter, limit int64) {
	writeJSON(w, http.StatusRequestEntityTooLarge, ErrorBody{
		Error:     "Payload Too Large",
		Message:   fmt.Sprintf("Request body exceeds %d bytes", limit),
		Type:      "request_error",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.badRequest(w, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) record(r *http.Request, typ activity.Type, desc string, details map[string]any) {
	activity.BestEffort(r.Context(), s.logger, s.activity, activity.Entry{
		UserID:      userID(r),
		Type:        typ,
		Description: desc,
		Details:     details,
		IPAddress:   clientID(r),
		UserAgent:   r.UserAgent(),
	})
}

func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return anonymousUser
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func paths(files []*staged) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out
}

func names(files []*staged) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.name
	}
	return out
}

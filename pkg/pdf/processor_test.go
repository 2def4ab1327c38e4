package pdf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lpdf "github.com/ledongthuc/pdf"
	"go.uber.org/zap/zaptest"

	"github.com/Alessa-Zeller/text-extraction-backend/pkg/ocr"
)

func TestHashFile(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789abcdef"), 1000)
	path := writeFile(t, t.TempDir(), "big.pdf", content)

	got, err := hashFile(path)
	require.NoError(t, err)
	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestProcessSingleStandard(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "record.pdf",
		lines("Clinic intake form"),
		lines("Patient Name: Jane Doe", "DOB: 01/15/1990"),
		nil,
	)
	parser := &fakeParser{configured: true}
	p := NewProcessor(testOptions(), parser, zaptest.NewLogger(t))

	r, err := p.ProcessSingle(context.Background(), path)
	require.NoError(t, err)

	assertInvariants(t, r)
	assert.Equal(t, 3, r.TotalPages)
	assert.Equal(t, "record.pdf", r.Filename)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, MethodStandard, r.ExtractionMethod())
	assert.Len(t, r.FileHash, 64)
	assert.Zero(t, parser.calls.Load())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), r.FileSize)

	assert.Contains(t, r.Pages[1].Text, "Jane")
	assert.Empty(t, r.Pages[2].Text)
	require.NotNil(t, r.Pages[0].Width)
	assert.Equal(t, 612.0, *r.Pages[0].Width)
	assert.Equal(t, 792.0, *r.Pages[0].Height)

	require.NotNil(t, r.ClinicalData)
	assert.Equal(t, "Jane", r.ClinicalData.PatientName.FirstName)
	assert.Equal(t, "01/15/1990", r.ClinicalData.DateOfBirth)
	assert.Nil(t, r.Pages[0].ClinicalData)
	require.NotNil(t, r.Pages[1].ClinicalData)
	assert.Nil(t, r.Pages[2].ClinicalData)
}

func TestReadMetadata(t *testing.T) {
	dir := t.TempDir()

	md, err := readMetadata(writePDF(t, dir, "plain.pdf", lines("hello")))
	require.NoError(t, err)
	assert.NotContains(t, md, "Encrypted")
	assert.NotContains(t, md, "Title")

	_, err = readMetadata(writeFile(t, dir, "junk.pdf", []byte("not a pdf at all")))
	assert.Error(t, err)
}

func TestProcessSingleContinuesPastBadPage(t *testing.T) {
	orig := pageExtractor
	t.Cleanup(func() { pageExtractor = orig })
	pageExtractor = func(r *lpdf.Reader, n int) (PageResult, error) {
		if n == 2 {
			return PageResult{}, errors.New("malformed content stream")
		}
		return orig(r, n)
	}

	path := writePDF(t, t.TempDir(), "mixed.pdf",
		lines("Page one"),
		lines("Patient Name: Hidden Person"),
		lines("Patient Name: Jane Doe"),
	)
	p := NewProcessor(testOptions(), nil, zaptest.NewLogger(t))

	r, err := p.ProcessSingle(context.Background(), path)
	require.NoError(t, err)
	assertInvariants(t, r)
	require.Len(t, r.Pages, 3)
	assert.Equal(t, StatusSuccess, r.Status)

	bad := r.Pages[1]
	assert.Equal(t, "malformed content stream", bad.Error)
	assert.Empty(t, bad.Text)
	assert.Zero(t, bad.TextLength)
	assert.NotNil(t, bad.Tables)
	assert.Empty(t, bad.Tables)

	assert.Contains(t, r.Pages[2].Text, "Jane Doe")
	assert.Equal(t, r.Pages[0].TextLength+r.Pages[2].TextLength, r.TotalTextLength)
	require.NotNil(t, r.ClinicalData)
	assert.Equal(t, "Jane Doe", r.ClinicalData.PatientName.FullName)
}

func TestProcessSingleTables(t *testing.T) {
	path := writePDF(t, t.TempDir(), "labs.pdf", []run{
		{X: 72, Y: 720, S: "Test"}, {X: 250, Y: 720, S: "Value"},
		{X: 72, Y: 700, S: "Glucose"}, {X: 250, Y: 700, S: "5.4"},
	})
	p := NewProcessor(testOptions(), nil, zaptest.NewLogger(t))

	r, err := p.ProcessSingle(context.Background(), path)
	require.NoError(t, err)
	assertInvariants(t, r)
	require.Len(t, r.Pages, 1)

	require.Len(t, r.Pages[0].Tables, 1)
	assert.Equal(t, Table{{"Test", "Value"}, {"Glucose", "5.4"}}, r.Pages[0].Tables[0])
	s, err := Summarize(r)
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalTables)
	assert.Equal(t, 1, s.PagesWithTables)
}

func TestProcessSingleFallsBackToOCR(t *testing.T) {
	path := writePDF(t, t.TempDir(), "scan.pdf", nil, nil)
	parser := &fakeParser{configured: true, docs: []ocr.Document{
		{Page: 1, Text: "Patient Name: Cover Sheet"},
		{Page: 2, Text: "Patient Name: John Roe\nDOB: 2/3/1970"},
	}}
	p := NewProcessor(testOptions(), parser, zaptest.NewLogger(t))

	r, err := p.ProcessSingle(context.Background(), path)
	require.NoError(t, err)

	assertInvariants(t, r)
	assert.Equal(t, int32(1), parser.calls.Load())
	assert.Equal(t, MethodLlamaParse, r.ExtractionMethod())
	assert.Equal(t, 2, r.TotalPages)
	for _, page := range r.Pages {
		assert.Empty(t, page.Tables)
		assert.Nil(t, page.Width)
		assert.Nil(t, page.BBox)
	}
	require.NotNil(t, r.ClinicalData)
	assert.Equal(t, "John Roe", r.ClinicalData.PatientName.FullName)
	assert.Equal(t, ConfidenceHigh, r.ClinicalData.ExtractionConfidence)
	assert.Nil(t, r.Pages[0].ClinicalData)
	assert.NotNil(t, r.Pages[1].ClinicalData)
	assert.Len(t, r.FileHash, 64)
}

func TestProcessSingleOCRSinglePage(t *testing.T) {
	path := writePDF(t, t.TempDir(), "scan.pdf", nil)
	parser := &fakeParser{configured: true, docs: []ocr.Document{{Page: 1, Text: "DOB: 12/12/2012"}}}
	p := NewProcessor(testOptions(), parser, nil)

	r, err := p.ProcessSingle(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, r.ClinicalData)
	assert.Equal(t, "12/12/2012", r.ClinicalData.DateOfBirth)
	assert.NotNil(t, r.Pages[0].ClinicalData)
}

func TestProcessSingleOCRFailurePropagates(t *testing.T) {
	path := writePDF(t, t.TempDir(), "scan.pdf", nil)

	t.Run("not configured", func(t *testing.T) {
		p := NewProcessor(testOptions(), &fakeParser{}, zaptest.NewLogger(t))
		_, err := p.ProcessSingle(context.Background(), path)
		var pe *PDFProcessingError
		require.ErrorAs(t, err, &pe)
		assert.ErrorIs(t, err, ocr.ErrNotConfigured)
		assert.Equal(t, "File: scan.pdf", pe.Details)
	})

	t.Run("nil parser", func(t *testing.T) {
		p := NewProcessor(testOptions(), nil, zaptest.NewLogger(t))
		_, err := p.ProcessSingle(context.Background(), path)
		assert.Equal(t, "PDFProcessingError", ErrorType(err))
	})

	t.Run("remote error", func(t *testing.T) {
		boom := errors.New("service down")
		p := NewProcessor(testOptions(), &fakeParser{configured: true, err: boom}, zaptest.NewLogger(t))
		_, err := p.ProcessSingle(context.Background(), path)
		var pe *PDFProcessingError
		require.ErrorAs(t, err, &pe)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, pe.Message, "service down")
	})
}

func TestProcessSingleOCRDisabled(t *testing.T) {
	path := writePDF(t, t.TempDir(), "scan.pdf", nil)
	opts := testOptions()
	opts.UseOCR = false
	parser := &fakeParser{configured: true}
	p := NewProcessor(opts, parser, zaptest.NewLogger(t))

	r, err := p.ProcessSingle(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodStandard, r.ExtractionMethod())
	assert.Zero(t, r.TotalTextLength)
	assert.Nil(t, r.ClinicalData)
	assert.Zero(t, parser.calls.Load())
}

func TestProcessSingleValidationError(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(testOptions(), nil, zaptest.NewLogger(t))

	_, err := p.ProcessSingle(context.Background(), writeFile(t, dir, "notes.txt", []byte("hi")))
	var fv *FileValidationError
	require.ErrorAs(t, err, &fv)
	assert.Equal(t, "notes.txt", fv.Filename)
}

func TestProcessSingleCorruptPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", []byte("this is not a pdf at all"))
	p := NewProcessor(testOptions(), nil, zaptest.NewLogger(t))

	_, err := p.ProcessSingle(context.Background(), path)
	var pe *PDFProcessingError
	require.ErrorAs(t, err, &pe)
	assert.True(t, strings.HasPrefix(pe.Message, "Failed to process PDF"))
}

func TestExtractClinicalOnlyWithoutOCRCredential(t *testing.T) {
	path := writePDF(t, t.TempDir(), "scan.pdf", nil)
	p := NewProcessor(testOptions(), &fakeParser{}, zaptest.NewLogger(t))

	r, err := p.ExtractClinicalOnly(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusPartialSuccess, r.Status)
	assert.NotEmpty(t, r.Message)
	assert.Equal(t, MethodOCRFailed, r.ExtractionMethod)
	assert.Nil(t, r.ClinicalData)
	assert.Equal(t, "scan.pdf", r.Filename)
	assert.Len(t, r.FileHash, 64)
}

func TestExtractClinicalOnlyRemoteFailure(t *testing.T) {
	path := writePDF(t, t.TempDir(), "scan.pdf", nil)
	p := NewProcessor(testOptions(), &fakeParser{configured: true, err: errors.New("timeout")}, zaptest.NewLogger(t))

	r, err := p.ExtractClinicalOnly(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusPartialSuccess, r.Status)
	assert.Contains(t, r.Message, "timeout")
}

func TestExtractClinicalOnlyStandard(t *testing.T) {
	path := writePDF(t, t.TempDir(), "record.pdf", lines("Patient: Alan Turing"))
	p := NewProcessor(testOptions(), nil, zaptest.NewLogger(t))

	r, err := p.ExtractClinicalOnly(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Empty(t, r.Message)
	assert.Equal(t, MethodStandard, r.ExtractionMethod)
	assert.Equal(t, 1, r.TotalPages)
	require.NotNil(t, r.ClinicalData)
	assert.Equal(t, "Alan", r.ClinicalData.PatientName.FirstName)
}

func TestExtractClinicalOnlyValidationPropagates(t *testing.T) {
	p := NewProcessor(testOptions(), nil, zaptest.NewLogger(t))
	_, err := p.ExtractClinicalOnly(context.Background(), "/does/not/exist.pdf")
	assert.Equal(t, "FileValidationError", ErrorType(err))
}

func TestProcessSingleCancelledBeforeSlot(t *testing.T) {
	opts := testOptions()
	opts.MaxConcurrentTasks = 1
	p := NewProcessor(opts, nil, zaptest.NewLogger(t))
	require.True(t, p.pool.TryAcquire(1))
	defer p.pool.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ProcessSingle(ctx, "any.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

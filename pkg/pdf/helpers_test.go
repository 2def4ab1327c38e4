package pdf

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Alessa-Zeller/text-extraction-backend/internal/pdftest"
	"github.com/Alessa-Zeller/text-extraction-backend/pkg/ocr"
)

type run = pdftest.Run

var lines = pdftest.Lines

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func writePDF(t *testing.T, dir, name string, pages ...[]run) string {
	t.Helper()
	return writeFile(t, dir, name, pdftest.Build(pages...))
}

// fakeParser stands in for the cloud OCR service.
type fakeParser struct {
	configured bool
	docs       []ocr.Document
	err        error
	delay      time.Duration

	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeParser) Configured() bool { return f.configured }

func (f *fakeParser) Parse(ctx context.Context, path string) ([]ocr.Document, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.docs, f.err
}

// recorder collects observer callbacks.
type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) FileDone(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.MaxConcurrentTasks = 2
	return opts
}

func assertInvariants(t *testing.T, r *ProcessingResult) {
	t.Helper()
	sum := 0
	for i, p := range r.Pages {
		sum += p.TextLength
		require.Equal(t, i+1, p.PageNumber)
	}
	require.Equal(t, sum, r.TotalTextLength)
	require.Equal(t, len(r.Pages), r.TotalPages)
}

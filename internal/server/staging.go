package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// staged is an uploaded file copied to disk under its original base name,
// inside a directory of its own.
type staged struct {
	dir  string
	path string
	name string
}

func (s *Server) stage(fh *multipart.FileHeader) (*staged, error) {
	name := filepath.Base(strings.ReplaceAll(fh.Filename, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.pdf"
	}

	dir := filepath.Join(s.opts.UploadDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	st := &staged{dir: dir, path: filepath.Join(dir, name), name: name}

	src, err := fh.Open()
	if err != nil {
		st.remove()
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(st.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		st.remove()
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		st.remove()
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if err := dst.Close(); err != nil {
		st.remove()
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	return st, nil
}

func (st *staged) remove() {
	_ = os.RemoveAll(st.dir)
}

func removeAll(files []*staged) {
	for _, f := range files {
		f.remove()
	}
}

package pdf

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorSizeCeiling(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator(1024, []string{".pdf"})

	atLimit := writeFile(t, dir, "at.pdf", bytes.Repeat([]byte{'x'}, 1024))
	assert.NoError(t, v.Validate(atLimit, "at.pdf"))

	over := writeFile(t, dir, "over.pdf", bytes.Repeat([]byte{'x'}, 1025))
	err := v.Validate(over, "over.pdf")
	var fv *FileValidationError
	require.ErrorAs(t, err, &fv)
	assert.Equal(t, "over.pdf", fv.Filename)
	assert.Contains(t, fv.Message, "1024")
}

func TestValidatorMissingFile(t *testing.T) {
	v := NewValidator(1024, []string{".pdf"})

	var fv *FileValidationError
	require.ErrorAs(t, v.Validate(filepath.Join(t.TempDir(), "nope.pdf"), ""), &fv)
	assert.Equal(t, "File not found", fv.Message)
	assert.Equal(t, "nope.pdf", fv.Filename)

	require.ErrorAs(t, v.Validate(t.TempDir(), "dir"), &fv)
}

func TestValidatorExtension(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator(1024, []string{"PDF"})

	assert.NoError(t, v.Validate(writeFile(t, dir, "upper.PDF", []byte("x")), ""))

	var fv *FileValidationError
	require.ErrorAs(t, v.Validate(writeFile(t, dir, "notes.txt", []byte("x")), ""), &fv)
	assert.Contains(t, fv.Message, "File type not allowed")
	assert.Equal(t, "FileValidationError", ErrorType(fv))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfigFromFile(writeConfig(t, GetDefaultConfig()))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ServerAddr)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, []string{".pdf"}, cfg.AllowedFileTypes)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 5, cfg.MaxConcurrentTasks)
	assert.True(t, cfg.UseLlamaParse)
	assert.Empty(t, cfg.LlamaParseAPIKeys)
	assert.Equal(t, []string{"https://api.cloud.llamaindex.ai/"}, cfg.LlamaParseBaseURLs)
	assert.Equal(t, 5*time.Minute, cfg.OCRTimeout)
	assert.Equal(t, 2*time.Second, cfg.OCRPollInterval)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.DirExists(t, "uploads")

	opts := cfg.ProcessorOptions()
	assert.Equal(t, cfg.BatchSize, opts.MaxBatchSize)
	assert.Equal(t, cfg.MaxConcurrentTasks, opts.MaxConcurrentTasks)
	assert.True(t, opts.UseOCR)
}

func TestLoadConfigOverrides(t *testing.T) {
	upload := filepath.Join(t.TempDir(), "staging")
	path := writeConfig(t, `
upload_dir = "`+filepath.ToSlash(upload)+`"
max_file_size = 2048
allowed_file_types = ["PDF"]
llamaparse_api_keys = ["llx-a", " ", "llx-b"]
llamaparse_base_urls = ["http://localhost:9000"]
llamaparse_result_type = "markdown"
ocr_timeout = "30s"
log_level = "DEBUG"
`)
	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, int64(2048), cfg.MaxFileSize)
	assert.Equal(t, []string{".pdf"}, cfg.AllowedFileTypes)
	assert.Equal(t, []string{"llx-a", "llx-b"}, cfg.LlamaParseAPIKeys)
	assert.Equal(t, []string{"http://localhost:9000/"}, cfg.LlamaParseBaseURLs)
	assert.Equal(t, "markdown", cfg.LlamaParseResultType)
	assert.Equal(t, 30*time.Second, cfg.OCRTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.DirExists(t, upload)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BATCH_SIZE", "4")
	t.Setenv("USE_LLAMAPARSE", "false")
	t.Setenv("LLAMAPARSE_API_KEY", "llx-from-env")

	path := writeConfig(t, `upload_dir = "`+filepath.ToSlash(t.TempDir())+`"`)
	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.BatchSize)
	assert.False(t, cfg.UseLlamaParse)
	assert.Equal(t, []string{"llx-from-env"}, cfg.LlamaParseAPIKeys)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	tests := map[string]string{
		"result type": `llamaparse_result_type = "pdf"`,
		"batch size":  `batch_size = 0`,
		"log format":  `log_format = "xml"`,
		"base url":    `llamaparse_base_urls = ["not a url"]`,
	}
	for name, line := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfigFromFile(writeConfig(t, "upload_dir = \""+dir+"\"\n"+line))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Alessa-Zeller/text-extraction-backend/pkg/pdf"
)

const appDir = "pdf-extract"

// Config is the application configuration.
type Config struct {
	// HTTP
	ServerAddr        string        `mapstructure:"server_addr" validate:"required"`
	UploadDir         string        `mapstructure:"upload_dir" validate:"required"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window" validate:"gt=0"`

	// Extraction limits
	MaxFileSize        int64    `mapstructure:"max_file_size" validate:"gt=0"`
	AllowedFileTypes   []string `mapstructure:"allowed_file_types" validate:"min=1,dive,required"`
	BatchSize          int      `mapstructure:"batch_size" validate:"gt=0"`
	MaxConcurrentTasks int      `mapstructure:"max_concurrent_tasks" validate:"gt=0"`

	// LlamaParse
	UseLlamaParse          bool          `mapstructure:"use_llamaparse"`
	LlamaParseAPIKeys      []string      `mapstructure:"llamaparse_api_keys"`
	LlamaParseBaseURLs     []string      `mapstructure:"llamaparse_base_urls" validate:"dive,url"`
	LlamaParseResultType   string        `mapstructure:"llamaparse_result_type" validate:"oneof=text markdown json"`
	OCRTimeout             time.Duration `mapstructure:"ocr_timeout" validate:"gt=0"`
	OCRMaxRetries          int           `mapstructure:"ocr_max_retries" validate:"gte=0"`
	OCRPollInterval        time.Duration `mapstructure:"ocr_poll_interval" validate:"gt=0"`
	RetryDifferentEndpoint bool          `mapstructure:"retry_different_endpoint"`

	// Logging
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile   string `mapstructure:"log_file"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=console json"`
}

// ProcessorOptions maps the extraction settings onto pdf.Options.
func (c *Config) ProcessorOptions() pdf.Options {
	return pdf.Options{
		MaxFileSize:        c.MaxFileSize,
		AllowedExtensions:  c.AllowedFileTypes,
		MaxBatchSize:       c.BatchSize,
		MaxConcurrentTasks: c.MaxConcurrentTasks,
		UseOCR:             c.UseLlamaParse,
	}
}

// LoadConfig searches the standard locations for config.toml, writing a
// default file to the user config directory when none exists.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := loadConfigFile(v); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := createDefaultConfig(); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
	}

	return decode(v)
}

// LoadConfigFromFile loads configuration from an explicit path.
func LoadConfigFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", ":8000")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("rate_limit_requests", 100)
	v.SetDefault("rate_limit_window", "60s")
	v.SetDefault("max_file_size", 10*1024*1024)
	v.SetDefault("allowed_file_types", []string{".pdf"})
	v.SetDefault("batch_size", 10)
	v.SetDefault("max_concurrent_tasks", 5)
	v.SetDefault("use_llamaparse", true)
	v.SetDefault("llamaparse_api_keys", []string{})
	v.SetDefault("llamaparse_base_urls", []string{})
	v.SetDefault("llamaparse_result_type", "text")
	v.SetDefault("ocr_timeout", "5m")
	v.SetDefault("ocr_max_retries", 3)
	v.SetDefault("ocr_poll_interval", "2s")
	v.SetDefault("retry_different_endpoint", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_format", "console")
}

func loadConfigFile(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("toml")

	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".config", appDir))
	}
	v.AddConfigPath(filepath.Join("/etc", appDir))

	return v.ReadInConfig()
}

func createDefaultConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(homeDir, ".config", appDir)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(GetDefaultConfig()), 0o644)
}

// bindEnv maps upper-cased key names (MAX_FILE_SIZE, BATCH_SIZE, ...) and the
// single-key LLAMAPARSE_API_KEY variable.
func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llamaparse_api_key", "LLAMAPARSE_API_KEY")
}

func decode(v *viper.Viper) (*Config, error) {
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if key := v.GetString("llamaparse_api_key"); key != "" && !hasKey(cfg.LlamaParseAPIKeys) {
		cfg.LlamaParseAPIKeys = []string{key}
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	cfg.LlamaParseAPIKeys = compact(cfg.LlamaParseAPIKeys)
	cfg.LlamaParseBaseURLs = compact(cfg.LlamaParseBaseURLs)
	for i, u := range cfg.LlamaParseBaseURLs {
		if !strings.HasSuffix(u, "/") {
			cfg.LlamaParseBaseURLs[i] = u + "/"
		}
	}
	for i, ext := range cfg.AllowedFileTypes {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.AllowedFileTypes[i] = ext
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	return nil
}

func hasKey(keys []string) bool {
	return len(compact(keys)) > 0
}

func compact(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GetDefaultConfig returns the content of a default config.toml.
func GetDefaultConfig() string {
	return `# pdf-extract configuration

# HTTP server
server_addr = ":8000"
upload_dir = "uploads"          # uploads are staged here and removed after processing
rate_limit_requests = 100       # requests per client per window, 0 disables
rate_limit_window = "60s"

# Extraction limits
max_file_size = 10485760        # bytes (10 MiB)
allowed_file_types = [".pdf"]
batch_size = 10                 # maximum files per batch
max_concurrent_tasks = 5        # worker pool size shared by all requests

# LlamaParse OCR fallback, used when a PDF has no text layer.
# Keys and base URLs are rotated; LLAMAPARSE_API_KEY is also read from the environment.
use_llamaparse = true
llamaparse_api_keys = [""]
llamaparse_base_urls = ["https://api.cloud.llamaindex.ai/"]
llamaparse_result_type = "text" # text, markdown or json
ocr_timeout = "5m"
ocr_max_retries = 3
ocr_poll_interval = "2s"
retry_different_endpoint = true

# Logging
log_level = "info"              # debug, info, warn, error
log_file = ""                   # empty logs to the console
log_format = "console"          # console or json
`
}

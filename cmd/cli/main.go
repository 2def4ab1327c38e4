package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Alessa-Zeller/text-extraction-backend/internal/config"
	"github.com/Alessa-Zeller/text-extraction-backend/internal/logger"
	"github.com/Alessa-Zeller/text-extraction-backend/pkg/ocr"
	"github.com/Alessa-Zeller/text-extraction-backend/pkg/pdf"
)

var (
	cfg *config.Config
	log *zap.Logger

	// global flags
	configFile string
	logLevel   string
	apiKeys    []string

	// command flags
	outputFile   string
	clinicalOnly bool
	noProgress   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pdf-extract",
		Short:         "Extract text and clinical data from PDF files",
		Long:          `Extract page text, tables and patient details from PDF files, falling back to LlamaParse OCR for scanned documents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "gen" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}

	extractCmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract the full result of one PDF as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  extractFile,
	}

	clinicalCmd := &cobra.Command{
		Use:   "clinical [file]",
		Short: "Extract only the clinical fields of one PDF",
		Args:  cobra.ExactArgs(1),
		RunE:  extractClinical,
	}

	batchCmd := &cobra.Command{
		Use:   "batch [files...]",
		Short: "Process several PDFs concurrently",
		Long:  `Process up to batch_size PDFs with a bounded worker pool. One failing file never aborts the batch.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  processBatch,
	}

	searchCmd := &cobra.Command{
		Use:   "search [result.json] [query]",
		Short: "Search the page text of a saved extraction result",
		Args:  cobra.ExactArgs(2),
		RunE:  searchResult,
	}

	summaryCmd := &cobra.Command{
		Use:   "summary [result.json]",
		Short: "Summarize a saved extraction result",
		Args:  cobra.ExactArgs(1),
		RunE:  summarizeResult,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	genConfigCmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a default configuration",
		Long:  "Print the default configuration to stdout or write it to a file",
		Args:  cobra.NoArgs,
		RunE:  generateConfig,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringSliceVar(&apiKeys, "llamaparse-api-keys", nil, "comma separated LlamaParse API keys")

	for _, c := range []*cobra.Command{extractCmd, clinicalCmd, batchCmd, searchCmd, summaryCmd} {
		c.Flags().StringVarP(&outputFile, "output", "o", "", "write JSON to a file instead of stdout")
	}
	batchCmd.Flags().BoolVar(&clinicalOnly, "clinical", false, "extract only clinical fields")
	batchCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	genConfigCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the config to a file instead of stdout")

	rootCmd.AddCommand(serveCmd, extractCmd, clinicalCmd, batchCmd, searchCmd, summaryCmd, configCmd)
	configCmd.AddCommand(genConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and initializes the logger.
func setup() error {
	bootLogger, _ := zap.NewProduction()
	defer bootLogger.Sync()

	var err error
	if configFile != "" {
		bootLogger.Debug("Using custom config file", zap.String("path", configFile))
		cfg, err = loadCustomConfig(configFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		bootLogger.Error("Failed to load config", zap.Error(err))
		return fmt.Errorf("load config: %w", err)
	}

	updateConfigFromFlags()

	log, err = logger.InitLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		bootLogger.Error("Failed to initialize logger", zap.Error(err))
		return fmt.Errorf("init logger: %w", err)
	}

	log.Debug("Configuration loaded",
		zap.Strings("llamaparseBaseURLs", cfg.LlamaParseBaseURLs),
		zap.Int("llamaparseKeys", len(cfg.LlamaParseAPIKeys)),
		zap.Bool("useLlamaParse", cfg.UseLlamaParse),
		zap.Int("batchSize", cfg.BatchSize),
		zap.Int("maxConcurrentTasks", cfg.MaxConcurrentTasks),
		zap.String("logLevel", cfg.LogLevel))

	if cfg.UseLlamaParse && len(cfg.LlamaParseAPIKeys) == 0 {
		log.Warn("LlamaParse is enabled but no API key is configured; scanned PDFs will not be OCR'd")
	}
	return nil
}

func updateConfigFromFlags() {
	if len(apiKeys) > 0 {
		cfg.LlamaParseAPIKeys = apiKeys
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
}

func loadCustomConfig(configPath string) (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}
	return config.LoadConfigFromFile(configPath)
}

// newOCRClient builds the LlamaParse client from the loaded configuration.
func newOCRClient() *ocr.Client {
	client := ocr.NewClient(cfg.LlamaParseAPIKeys, cfg.LlamaParseBaseURLs)
	client.SetTimeout(cfg.OCRTimeout)
	client.SetMaxRetries(cfg.OCRMaxRetries)
	client.SetPollInterval(cfg.OCRPollInterval)
	client.SetResultType(cfg.LlamaParseResultType)
	client.SetRetryDifferentEndpoint(cfg.RetryDifferentEndpoint)
	client.SetLogger(log)
	return client
}

func newProcessor(options ...pdf.Option) *pdf.Processor {
	return pdf.NewProcessor(cfg.ProcessorOptions(), newOCRClient(), log, options...)
}

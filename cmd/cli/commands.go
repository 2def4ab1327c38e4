package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Alessa-Zeller/text-extraction-backend/internal/activity"
	"github.com/Alessa-Zeller/text-extraction-backend/internal/config"
	"github.com/Alessa-Zeller/text-extraction-backend/internal/server"
	"github.com/Alessa-Zeller/text-extraction-backend/pkg/pdf"
	"github.com/Alessa-Zeller/text-extraction-backend/pkg/utils"
)

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Options{
		Addr:              cfg.ServerAddr,
		UploadDir:         cfg.UploadDir,
		MaxUploadSize:     cfg.MaxFileSize,
		MaxBatchSize:      cfg.BatchSize,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, newProcessor(), activity.NewMemoryStore(0), log)

	return srv.Run(ctx)
}

func extractFile(cmd *cobra.Command, args []string) error {
	log.Info("Extracting PDF", zap.String("file", args[0]))

	result, err := newProcessor().ProcessSingle(cmd.Context(), args[0])
	if err != nil {
		log.Error("Extraction failed", zap.String("file", args[0]), zap.Error(err))
		return err
	}

	log.Info("Extraction finished",
		zap.String("file", result.Filename),
		zap.Int("pages", result.TotalPages),
		zap.String("method", result.ExtractionMethod()))
	return emit(result)
}

func extractClinical(cmd *cobra.Command, args []string) error {
	log.Info("Extracting clinical data", zap.String("file", args[0]))

	result, err := newProcessor().ExtractClinicalOnly(cmd.Context(), args[0])
	if err != nil {
		log.Error("Clinical extraction failed", zap.String("file", args[0]), zap.Error(err))
		return err
	}
	if result.Message != "" {
		log.Warn(result.Message, zap.String("file", result.Filename))
	}
	return emit(result)
}

func processBatch(cmd *cobra.Command, args []string) error {
	var (
		tracker *utils.ProgressTracker
		options []pdf.Option
	)
	if !noProgress && utils.IsTerminal() && len(args) <= cfg.BatchSize {
		tracker = utils.NewProgressTracker("Processing PDFs", len(args))
		options = append(options, pdf.WithObserver(tracker))
	}
	proc := newProcessor(options...)

	start := time.Now()
	var (
		batchID   string
		succeeded int
		failed    int
		out       any
	)
	if clinicalOnly {
		res, err := proc.ProcessClinicalBatch(cmd.Context(), args)
		if err != nil {
			log.Error("Batch rejected", zap.Error(err))
			return err
		}
		batchID, succeeded, failed, out = res.BatchID, res.Summary.SuccessCount, res.Summary.ErrorCount, res
	} else {
		res, err := proc.ProcessBatch(cmd.Context(), args)
		if err != nil {
			log.Error("Batch rejected", zap.Error(err))
			return err
		}
		batchID, succeeded, failed, out = res.BatchID, res.Summary.SuccessCount, res.Summary.ErrorCount, res
	}

	elapsed := time.Since(start)
	if tracker != nil {
		elapsed = tracker.Complete()
	}
	utils.PrintBatchSummary(os.Stderr, batchID, succeeded, failed, elapsed)
	return emit(out)
}

func searchResult(cmd *cobra.Command, args []string) error {
	result, err := readResult(args[0])
	if err != nil {
		return err
	}

	res := pdf.SearchText(result, args[1])
	log.Info("Search completed",
		zap.String("query", res.Query),
		zap.Int("matches", res.TotalMatches),
		zap.Int("pages", res.PagesWithMatches))
	return emit(res)
}

func summarizeResult(cmd *cobra.Command, args []string) error {
	result, err := readResult(args[0])
	if err != nil {
		return err
	}

	sum, err := pdf.Summarize(result)
	if err != nil {
		return fmt.Errorf("summarize %s: %w", args[0], err)
	}
	return emit(sum)
}

func generateConfig(cmd *cobra.Command, args []string) error {
	defaultConfig := config.GetDefaultConfig()

	if outputFile == "" {
		fmt.Println(defaultConfig)
		return nil
	}

	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputFile, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	fmt.Printf("Config written to: %s\n", outputFile)
	return nil
}

// readResult loads a ProcessingResult previously written by `extract`.
func readResult(path string) (*pdf.ProcessingResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	var result pdf.ProcessingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse result file %s: %w", path, err)
	}
	return &result, nil
}

// emit writes v as indented JSON to --output or stdout.
func emit(v any) error {
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if outputFile != "" {
		log.Info("Result saved", zap.String("path", outputFile))
	}
	return nil
}

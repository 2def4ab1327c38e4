package pdf

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Options configures a Processor.
type Options struct {
	MaxFileSize        int64
	AllowedExtensions  []string
	MaxBatchSize       int
	MaxConcurrentTasks int
	UseOCR             bool
}

// DefaultOptions returns 10 MiB files, .pdf only, batches of 10 and 5 workers.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:        10 * 1024 * 1024,
		AllowedExtensions:  []string{".pdf"},
		MaxBatchSize:       10,
		MaxConcurrentTasks: 5,
		UseOCR:             true,
	}
}

// Observer is told about every file a batch finishes, in completion order.
type Observer interface {
	FileDone(name string, err error)
}

// Processor runs the extraction pipeline. It is safe for concurrent use;
// the worker pool is its only shared state.
type Processor struct {
	opts      Options
	validator *Validator
	ocr       OCRParser
	pool      *semaphore.Weighted
	logger    *zap.Logger
	observer  Observer
}

// Option customises a Processor.
type Option func(*Processor)

// WithObserver reports batch progress to o.
func WithObserver(o Observer) Option {
	return func(p *Processor) { p.observer = o }
}

// NewProcessor creates a processor. parser may be nil when OCR is not available.
func NewProcessor(opts Options, parser OCRParser, logger *zap.Logger, options ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxConcurrentTasks <= 0 {
		opts.MaxConcurrentTasks = 1
	}
	p := &Processor{
		opts:      opts,
		validator: NewValidator(opts.MaxFileSize, opts.AllowedExtensions),
		ocr:       parser,
		pool:      semaphore.NewWeighted(int64(opts.MaxConcurrentTasks)),
		logger:    logger,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// ProcessSingle validates and extracts one file, falling back to OCR when the
// text layer is empty. OCR failures are returned as *PDFProcessingError.
func (p *Processor) ProcessSingle(ctx context.Context, path string) (*ProcessingResult, error) {
	if err := p.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.pool.Release(1)
	return p.process(ctx, path)
}

// ExtractClinicalOnly returns the lightweight clinical view of one file.
// OCR failures degrade the result to partial_success instead of failing.
func (p *Processor) ExtractClinicalOnly(ctx context.Context, path string) (*ClinicalResult, error) {
	if err := p.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.pool.Release(1)
	return p.clinical(ctx, path)
}

func (p *Processor) process(ctx context.Context, path string) (*ProcessingResult, error) {
	name := filepath.Base(path)
	if err := p.validator.Validate(path, name); err != nil {
		return nil, err
	}

	result, err := p.extractStandard(path, name)
	if err != nil {
		p.logger.Error("Standard extraction failed", zap.String("file", name), zap.Error(err))
		return nil, err
	}
	if result.TotalTextLength == 0 && p.opts.UseOCR {
		p.logger.Info("No text found, attempting LlamaParse extraction", zap.String("file", name))
		return p.extractWithOCR(ctx, path, name)
	}
	return result, nil
}

func (p *Processor) clinical(ctx context.Context, path string) (*ClinicalResult, error) {
	name := filepath.Base(path)
	if err := p.validator.Validate(path, name); err != nil {
		return nil, err
	}

	result, err := p.extractStandard(path, name)
	if err != nil {
		p.logger.Error("Standard extraction failed", zap.String("file", name), zap.Error(err))
		return nil, err
	}

	var message string
	if result.TotalTextLength == 0 {
		if p.opts.UseOCR {
			p.logger.Info("No text found, attempting LlamaParse extraction", zap.String("file", name))
			ocrResult, err := p.extractWithOCR(ctx, path, name)
			if err != nil {
				p.logger.Warn("OCR fallback unavailable, returning partial result",
					zap.String("file", name),
					zap.Error(err))
				result.Status = StatusPartialSuccess
				result.Metadata["extraction_method"] = MethodOCRFailed
				message = "No text layer found and OCR extraction failed: " + err.Error()
			} else {
				result = ocrResult
			}
		} else {
			message = "No text layer found and OCR fallback is disabled"
		}
	}

	return &ClinicalResult{
		Filename:         result.Filename,
		FileSize:         result.FileSize,
		ProcessedAt:      result.ProcessedAt,
		TotalPages:       result.TotalPages,
		ExtractionMethod: result.ExtractionMethod(),
		ClinicalData:     result.ClinicalData,
		FileHash:         result.FileHash,
		Status:           result.Status,
		Message:          message,
	}, nil
}

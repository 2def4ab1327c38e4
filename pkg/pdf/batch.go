package pdf

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProcessBatch extracts every file concurrently, bounded by the worker pool.
// Per-file failures are collected in Failed; Successful is in completion order.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string) (*BatchResult, error) {
	if err := p.checkBatch(paths); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	br := &BatchResult{
		BatchID:     newBatchID(now),
		ProcessedAt: now,
		TotalFiles:  len(paths),
		Successful:  []*ProcessingResult{},
		Failed:      []FailedFile{},
	}

	for o := range fanOut(ctx, p, paths, p.process) {
		p.notify(o.name, o.err)
		if o.err != nil {
			br.Failed = append(br.Failed, p.failure(o.name, o.err))
			br.Summary.ErrorCount++
			continue
		}
		br.Successful = append(br.Successful, o.result)
		br.Summary.SuccessCount++
		br.Summary.TotalPages += o.result.TotalPages
		br.Summary.TotalTextLength += o.result.TotalTextLength
	}

	p.logger.Info("Batch finished",
		zap.String("batch_id", br.BatchID),
		zap.Int("total", br.TotalFiles),
		zap.Int("succeeded", br.Summary.SuccessCount),
		zap.Int("failed", br.Summary.ErrorCount))
	return br, nil
}

// ProcessClinicalBatch is ProcessBatch for the clinical-only view.
func (p *Processor) ProcessClinicalBatch(ctx context.Context, paths []string) (*ClinicalBatchResult, error) {
	if err := p.checkBatch(paths); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	br := &ClinicalBatchResult{
		BatchID:     newBatchID(now),
		ProcessedAt: now,
		TotalFiles:  len(paths),
		Successful:  []*ClinicalResult{},
		Failed:      []FailedFile{},
	}

	for o := range fanOut(ctx, p, paths, p.clinical) {
		p.notify(o.name, o.err)
		if o.err != nil {
			br.Failed = append(br.Failed, p.failure(o.name, o.err))
			br.Summary.ErrorCount++
			continue
		}
		br.Successful = append(br.Successful, o.result)
		br.Summary.SuccessCount++
		br.Summary.TotalPages += o.result.TotalPages
		if o.result.ClinicalData != nil && o.result.ClinicalData.Found() {
			br.Summary.ClinicalDataExtracted++
		}
	}

	p.logger.Info("Clinical batch finished",
		zap.String("batch_id", br.BatchID),
		zap.Int("total", br.TotalFiles),
		zap.Int("succeeded", br.Summary.SuccessCount),
		zap.Int("clinical_found", br.Summary.ClinicalDataExtracted))
	return br, nil
}

func (p *Processor) checkBatch(paths []string) error {
	if len(paths) == 0 {
		return &BatchProcessingError{Message: "No files provided for batch processing"}
	}
	if p.opts.MaxBatchSize > 0 && len(paths) > p.opts.MaxBatchSize {
		names := make([]string, len(paths))
		for i, path := range paths {
			names[i] = filepath.Base(path)
		}
		return &BatchProcessingError{
			Message:     fmt.Sprintf("Batch size exceeds maximum allowed size of %d", p.opts.MaxBatchSize),
			FailedItems: names,
		}
	}
	return nil
}

func (p *Processor) failure(name string, err error) FailedFile {
	p.logger.Error("Failed to process file", zap.String("file", name), zap.Error(err))
	return FailedFile{Filename: name, Error: err.Error(), ErrorType: ErrorType(err)}
}

func (p *Processor) notify(name string, err error) {
	if p.observer != nil {
		p.observer.FileDone(name, err)
	}
}

type outcome[R any] struct {
	name   string
	result R
	err    error
}

// fanOut runs work for each path on the processor's pool and streams the
// outcomes as they complete. The channel is closed after the last one.
// Dispatched tasks are not cancelled when ctx is.
func fanOut[R any](ctx context.Context, p *Processor, paths []string, work func(context.Context, string) (R, error)) <-chan outcome[R] {
	ctx = context.WithoutCancel(ctx)
	out := make(chan outcome[R], len(paths))

	var wg sync.WaitGroup
	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			o := outcome[R]{name: filepath.Base(path)}
			if err := p.pool.Acquire(ctx, 1); err != nil {
				o.err = err
			} else {
				o.result, o.err = runSafe(ctx, work, path)
				p.pool.Release(1)
			}
			out <- o
		}(path)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func runSafe[R any](ctx context.Context, work func(context.Context, string) (R, error), path string) (r R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unexpected failure: %v", rec)
		}
	}()
	return work(ctx, path)
}

// newBatchID is a short timestamp digest. Collisions are possible for
// batches started within the same clock tick.
func newBatchID(t time.Time) string {
	sum := md5.Sum([]byte(t.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:12]
}

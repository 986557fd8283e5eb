package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/phishguard/internal/model"
)

// defaultConcurrency is used when WithConcurrency is not given.
const defaultConcurrency = 4

// BatchProcessor handles concurrent scanning of multiple URLs.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-scan execution
// 2. The concurrency limit protects the advisory provider's rate limit,
// which is a batch concern, not a per-scan one
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each scan.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent scans.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each scan. Returning the same
// pipeline every time is fine as long as its steps are safe for concurrent
// use, which the default steps are.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     defaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch scans multiple URLs concurrently.
//
// Reports are returned in the order of urls. A scan that never started
// because the context was canceled leaves a nil entry. The error is
// non-nil only when the batch was canceled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]*model.ScanReport, error) {
	results := make([]*model.ScanReport, len(urls))

	err := bp.ProcessBatchWithCallback(ctx, urls, func(report *model.ScanReport, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback scans multiple URLs and calls a callback for
// each completed scan. This is useful for streaming results.
//
// The callback receives the report and the index of the URL in the
// original slice. The callback is called from the goroutine that completed
// the scan, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(report *model.ScanReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("scanning url",
				"url", url,
				"index", i+1,
				"total", len(urls),
			)

			// Scan failures are recorded in the report; they don't stop the batch.
			report := bp.pipelineFactory().Scan(ctx, url)
			if report.Error != nil {
				bp.logger.Warn("scan failed", "url", url, "error", report.Error)
			}

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_urls", len(urls),
		"elapsed", time.Since(startTime),
	)
	return err
}

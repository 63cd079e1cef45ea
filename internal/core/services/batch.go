package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// ObjectProcessor runs the ingestion pipeline for a single object
type ObjectProcessor interface {
	ProcessObject(ctx context.Context, key string) *domain.IngestResult
}

// BatchConfig holds configuration for batch runs.
type BatchConfig struct {
	Store     driven.ObjectStore
	Index     driven.SearchIndex
	Processor ObjectProcessor
	Logger    *slog.Logger

	// BatchSize bounds how many objects are processed between progress
	// log lines (default: 10)
	BatchSize int
}

// BatchRunner scans storage prefixes and pushes every object through the
// pipeline, used for first runs and manual re-ingestion.
type BatchRunner struct {
	store     driven.ObjectStore
	index     driven.SearchIndex
	processor ObjectProcessor
	logger    *slog.Logger
	batchSize int
}

// NewBatchRunner creates a new batch runner.
func NewBatchRunner(cfg BatchConfig) *BatchRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	return &BatchRunner{
		store:     cfg.Store,
		index:     cfg.Index,
		processor: cfg.Processor,
		logger:    logger,
		batchSize: batchSize,
	}
}

// ProcessAll ingests every object under the prefix
func (b *BatchRunner) ProcessAll(ctx context.Context, prefix string) (*domain.RunStats, error) {
	if err := b.index.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index: %w", err)
	}

	keys, err := b.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	b.logger.Info("starting full scan", "prefix", prefix, "objects", len(keys))
	return b.ProcessBatch(ctx, keys)
}

// ProcessPrefixes ingests every object under each prefix and merges the
// stats into one run.
func (b *BatchRunner) ProcessPrefixes(ctx context.Context, prefixes []string) (*domain.RunStats, error) {
	if err := b.index.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index: %w", err)
	}

	var keys []string
	for _, prefix := range prefixes {
		prefixKeys, err := b.store.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		keys = append(keys, prefixKeys...)
	}

	b.logger.Info("starting full scan", "prefixes", len(prefixes), "objects", len(keys))
	return b.ProcessBatch(ctx, keys)
}

// ProcessBatch ingests the given keys and aggregates per-stage timings
func (b *BatchRunner) ProcessBatch(ctx context.Context, keys []string) (*domain.RunStats, error) {
	started := time.Now()
	stats := &domain.RunStats{TotalObjects: len(keys)}
	timingSums := make(map[string]time.Duration)
	timingCounts := make(map[string]int)

	for i := 0; i < len(keys); i += b.batchSize {
		end := i + b.batchSize
		if end > len(keys) {
			end = len(keys)
		}

		for _, key := range keys[i:end] {
			if err := ctx.Err(); err != nil {
				b.logger.Warn("batch interrupted", "processed", i, "total", len(keys))
				b.finalize(stats, timingSums, timingCounts, started)
				return stats, err
			}

			result := b.processor.ProcessObject(ctx, key)
			switch {
			case result.Success && result.Duplicate:
				stats.Duplicates++
				stats.Succeeded++
			case result.Success:
				stats.Succeeded++
			default:
				stats.Failed++
			}
			for stage, d := range result.Timing {
				timingSums[stage] += d
				timingCounts[stage]++
			}
		}

		b.logger.Info("batch progress",
			"processed", end,
			"total", len(keys),
			"succeeded", stats.Succeeded,
			"failed", stats.Failed,
		)
	}

	b.finalize(stats, timingSums, timingCounts, started)
	b.logger.Info("scan complete",
		"objects", stats.TotalObjects,
		"succeeded", stats.Succeeded,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

func (b *BatchRunner) finalize(stats *domain.RunStats, sums map[string]time.Duration, counts map[string]int, started time.Time) {
	stats.Elapsed = time.Since(started)
	if stats.TotalObjects > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.TotalObjects)
	}
	stats.AvgStageTiming = make(map[string]time.Duration, len(sums))
	for stage, sum := range sums {
		if stage == domain.StageTotal {
			continue
		}
		if n := counts[stage]; n > 0 {
			stats.AvgStageTiming[stage] = sum / time.Duration(n)
		}
	}
}

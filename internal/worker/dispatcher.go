package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// ObjectProcessor runs the full ingestion pipeline for a single object.
type ObjectProcessor interface {
	ProcessObject(ctx context.Context, key string) *domain.IngestResult
}

// Dispatcher consumes storage change events and routes them to the
// ingestion pipeline. Created objects are processed and indexed; removed
// objects have their indexed documents deleted.
type Dispatcher struct {
	source    driven.EventSource
	processor ObjectProcessor
	index     driven.SearchIndex
	bucket    string
	logger    *slog.Logger

	pollInterval time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// DispatcherConfig holds configuration for the event dispatcher.
type DispatcherConfig struct {
	Source    driven.EventSource
	Processor ObjectProcessor
	Index     driven.SearchIndex
	Bucket    string
	Logger    *slog.Logger

	// PollInterval is the pause between pull iterations. Blocking sources
	// (SQS long poll, Redis streams) can keep this short.
	PollInterval time.Duration
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return &Dispatcher{
		source:       cfg.Source,
		processor:    cfg.Processor,
		index:        cfg.Index,
		bucket:       cfg.Bucket,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Start begins the dispatch loop.
// It runs until Stop is called or the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	d.logger.Info("dispatcher starting", "poll_interval", d.pollInterval)

	go d.run(ctx)

	return nil
}

// Stop gracefully stops the dispatcher.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	close(d.stopCh)
	d.mu.Unlock()

	<-d.doneCh

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	d.logger.Info("dispatcher stopped")
}

// run is the main dispatch loop.
func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.doneCh)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher context cancelled")
			return
		case <-d.stopCh:
			d.logger.Info("dispatcher stop signal received")
			return
		default:
		}

		events, err := d.source.Pull(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			d.logger.Error("failed to pull events", "error", err)
			d.sleep(ctx)
			continue
		}

		for _, ev := range events {
			select {
			case <-ctx.Done():
				return
			case <-d.stopCh:
				return
			default:
			}
			d.handleEvent(ctx, ev)
		}

		d.sleep(ctx)
	}
}

// handleEvent processes a single change event. Events are acknowledged
// only after the work succeeded, so failures are redelivered.
func (d *Dispatcher) handleEvent(ctx context.Context, ev domain.ChangeEvent) {
	logger := d.logger.With("key", ev.Key, "event_type", ev.Type)
	logger.Info("processing event")

	startTime := time.Now()

	switch ev.Type {
	case domain.EventCreate:
		result := d.processor.ProcessObject(ctx, ev.Key)
		if !result.Success {
			logger.Error("event processing failed",
				"duration", time.Since(startTime),
				"error", result.Error,
			)
			return
		}
		logger.Info("event processed",
			"duration", time.Since(startTime),
			"duplicate", result.Duplicate,
			"chunks", result.Chunks,
		)

	case domain.EventDelete:
		storagePath := domain.StoragePath(d.bucket, ev.Key)
		deleted, err := d.index.DeleteByStoragePath(ctx, storagePath)
		if err != nil {
			logger.Error("failed to delete indexed documents",
				"duration", time.Since(startTime),
				"error", err,
			)
			return
		}
		logger.Info("indexed documents deleted",
			"duration", time.Since(startTime),
			"deleted", deleted,
		)

	default:
		logger.Warn("unknown event type, discarding")
	}

	if err := d.source.Ack(ctx, ev); err != nil {
		logger.Error("failed to ack event", "ack_error", err)
	}
}

// sleep pauses between iterations, returning early on shutdown.
func (d *Dispatcher) sleep(ctx context.Context) {
	select {
	case <-time.After(d.pollInterval):
	case <-ctx.Done():
	case <-d.stopCh:
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Reconciler periodically compares the index against storage and deletes
// orphans: documents whose source object no longer exists. It recovers
// from deletions that were never delivered as events.
type Reconciler struct {
	store  driven.ObjectStore
	index  driven.SearchIndex
	logger *slog.Logger

	// Internal state
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
	prefixes []string
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Store  driven.ObjectStore
	Index  driven.SearchIndex
	Logger *slog.Logger

	// Interval between reconciliation passes (default: 1h)
	Interval time.Duration

	// Prefixes to scan in storage; empty means the whole bucket
	Prefixes []string
}

// NewReconciler creates a new reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	prefixes := cfg.Prefixes
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	return &Reconciler{
		store:    cfg.Store,
		index:    cfg.Index,
		logger:   logger,
		interval: interval,
		prefixes: prefixes,
	}
}

// Start begins the reconciliation loop.
// It runs until Stop is called or context is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	r.logger.Info("reconciler starting", "interval", r.interval)

	go r.run(ctx)

	return nil
}

// Stop gracefully stops the reconciler.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	r.mu.Unlock()

	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.logger.Info("reconciler stopped")
}

// run is the main reconciliation loop.
func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start
	r.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler context cancelled")
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	stats, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("reconciliation pass failed", "error", err)
		return
	}
	r.logger.Info("reconciliation pass complete",
		"storage_objects", stats.StorageObjects,
		"indexed_docs", stats.IndexedDocs,
		"orphans_found", stats.OrphansFound,
		"orphans_deleted", stats.OrphansDeleted,
		"elapsed", stats.Elapsed,
	)
}

// RunOnce executes a single reconciliation pass. Orphans are index
// entries whose storage path resolves to a key no longer present in any
// scanned prefix.
func (r *Reconciler) RunOnce(ctx context.Context) (*domain.ReconcileStats, error) {
	started := time.Now()
	stats := &domain.ReconcileStats{}

	storageKeys := make(map[string]struct{})
	for _, prefix := range r.prefixes {
		keys, err := r.store.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list storage: %w", err)
		}
		for _, key := range keys {
			storageKeys[key] = struct{}{}
		}
	}
	stats.StorageObjects = len(storageKeys)

	indexedPaths, err := r.index.ListStoragePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed paths: %w", err)
	}
	stats.IndexedDocs = len(indexedPaths)

	var orphans []string
	for _, path := range indexedPaths {
		key, ok := domain.KeyFromStoragePath(path)
		if !ok {
			r.logger.Warn("indexed path is not a valid storage path, treating as orphan", "path", path)
			orphans = append(orphans, path)
			continue
		}
		if _, exists := storageKeys[key]; !exists {
			orphans = append(orphans, path)
		}
	}
	stats.OrphansFound = len(orphans)

	for _, path := range orphans {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(started)
			return stats, err
		}
		deleted, err := r.index.DeleteByStoragePath(ctx, path)
		if err != nil {
			r.logger.Error("failed to delete orphan", "path", path, "error", err)
			continue
		}
		if deleted > 0 {
			stats.OrphansDeleted++
			r.logger.Info("deleted orphan", "path", path, "documents", deleted)
		}
	}

	stats.Elapsed = time.Since(started)
	return stats, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/harborsearch/harbor-ingest/internal/adapters/driven/elastic"
	"github.com/harborsearch/harbor-ingest/internal/adapters/driven/embedding"
	"github.com/harborsearch/harbor-ingest/internal/adapters/driven/extract"
	"github.com/harborsearch/harbor-ingest/internal/adapters/driven/polling"
	redisqueue "github.com/harborsearch/harbor-ingest/internal/adapters/driven/queue/redis"
	"github.com/harborsearch/harbor-ingest/internal/adapters/driven/s3"
	"github.com/harborsearch/harbor-ingest/internal/adapters/driven/sqs"
	"github.com/harborsearch/harbor-ingest/internal/chunker"
	"github.com/harborsearch/harbor-ingest/internal/config"
	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
	"github.com/harborsearch/harbor-ingest/internal/core/services"
	"github.com/harborsearch/harbor-ingest/internal/worker"
)

var version = "dev"

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnvDefault("RUN_MODE", "events")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("harbor-ingest %s starting in %s mode", version, mode)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Object storage =====
	log.Println("Connecting to object storage...")
	store, err := s3.NewObjectStore(ctx, s3.Config{
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	// ===== Search index =====
	log.Println("Connecting to search index...")
	index, err := elastic.NewSearchIndex(elastic.Config{
		BaseURL:       cfg.ElasticURL,
		Index:         cfg.ElasticIndex,
		Username:      cfg.ElasticUser,
		Password:      cfg.ElasticPassword,
		EmbeddingDims: cfg.EmbeddingDims,
		Logger:        slog.Default(),
	})
	if err != nil {
		log.Fatalf("Failed to create search index: %v", err)
	}
	if err := index.HealthCheck(ctx); err != nil {
		log.Printf("Warning: search index health check failed: %v", err)
	}
	if err := index.EnsureIndex(ctx); err != nil {
		log.Fatalf("Failed to ensure index: %v", err)
	}

	// ===== Embedding service =====
	embedder := embedding.NewEmbedder(embedding.Config{
		BaseURL:    cfg.EmbeddingURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDims,
		Logger:     slog.Default(),
	})
	if err := embedder.HealthCheck(ctx); err != nil {
		log.Printf("Warning: embedding service health check failed: %v", err)
	}

	// ===== Extractors =====
	registry, err := buildRegistry(cfg)
	if err != nil {
		log.Fatalf("Failed to build extractor registry: %v", err)
	}
	log.Printf("Extractors registered for: %v", registry.Supported())

	// ===== Chunker =====
	chk, err := chunker.New(chunker.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		MinChunkLen:  cfg.MinChunkLen,
		Logger:       slog.Default(),
	})
	if err != nil {
		log.Fatalf("Failed to create chunker: %v", err)
	}

	// ===== Pipeline services =====
	ingestor := services.NewIngestor(services.IngestorConfig{
		Store:         store,
		Registry:      registry,
		Chunker:       chk,
		Embedder:      embedder,
		Index:         index,
		Logger:        slog.Default(),
		PresignTTL:    cfg.PresignTTL,
		DedupFailOpen: cfg.DedupFailOpen,
		SkipDedup:     !cfg.DedupEnabled,
	})

	batch := services.NewBatchRunner(services.BatchConfig{
		Store:     store,
		Index:     index,
		Processor: ingestor,
		Logger:    slog.Default(),
		BatchSize: cfg.BatchSize,
	})

	switch mode {
	case "scan":
		// One-shot full scan, no event processing
		runScan(ctx, batch, cfg.Prefixes)

	case "events":
		if cfg.FirstRunFullScan {
			runScan(ctx, batch, cfg.Prefixes)
		}
		runEvents(ctx, cfg, store, index, ingestor)

	default:
		log.Fatalf("Unknown mode: %s (use: events or scan)", mode)
	}
}

// buildRegistry wires the extractor set from configuration. The image
// extractor doubles as the scanned-PDF fallback when enabled.
func buildRegistry(cfg *config.Config) (*extract.Registry, error) {
	var image driven.Extractor
	switch cfg.ImageStrategy {
	case config.StrategyOCR:
		image = extract.NewOCRExtractor(extract.OCRConfig{
			BaseURL:       cfg.OCRURL,
			MinContentLen: cfg.MinContentLen,
			Logger:        slog.Default(),
		})
		log.Println("Using OCR engine for image extraction")
	default:
		image = extract.NewVisionExtractor(extract.VisionConfig{
			Endpoint:      cfg.VisionEndpoint,
			Model:         cfg.VisionModel,
			APIKey:        cfg.VisionAPIKey,
			MinContentLen: cfg.MinContentLen,
			Logger:        slog.Default(),
		})
		log.Println("Using vision model for image extraction")
	}

	var pdfFallback driven.Extractor
	if cfg.PDFFallbackToOCR {
		pdfFallback = extract.NewOCRExtractor(extract.OCRConfig{
			BaseURL:       cfg.OCRURL,
			MinContentLen: cfg.MinContentLen,
			Logger:        slog.Default(),
		})
	} else {
		pdfFallback = image
	}

	var doc driven.Extractor
	if cfg.ConvertCommand != "" {
		var err error
		doc, err = extract.NewConvertExtractor(extract.ConvertConfig{
			Command:       cfg.ConvertCommand,
			MinContentLen: cfg.MinContentLen,
			Logger:        slog.Default(),
		})
		if err != nil {
			return nil, err
		}
	} else {
		log.Println("CONVERT_COMMAND not set, doc/docx extraction disabled")
	}

	return extract.NewRegistry(extract.RegistryConfig{
		PDF: extract.NewPDFExtractor(extract.PDFConfig{
			MinContentLen: cfg.MinContentLen,
			Fallback:      pdfFallback,
			Logger:        slog.Default(),
		}),
		Image: image,
		Doc:   doc,
		CSV:   extract.NewCSVExtractor(slog.Default()),
		Excel: extract.NewExcelExtractor(slog.Default()),
	}), nil
}

// buildEventSource selects the change event backend.
func buildEventSource(ctx context.Context, cfg *config.Config, store driven.ObjectStore) (driven.EventSource, error) {
	switch cfg.EventBackend {
	case config.BackendSQS:
		log.Println("Using SQS event source")
		return sqs.NewEventSource(ctx, sqs.Config{
			QueueURL:  cfg.SQSQueueURL,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Logger:    slog.Default(),
		})

	case config.BackendRedis:
		log.Println("Using Redis stream event source")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		hostname, _ := os.Hostname()
		return redisqueue.NewEventSource(client, redisqueue.Config{
			ConsumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
			Logger:       slog.Default(),
		})

	default:
		log.Printf("Using polling event source (interval=%v)", cfg.PollInterval)
		return polling.NewEventSource(store, polling.Config{
			Logger: slog.Default(),
		}), nil
	}
}

// runScan runs a full ingestion pass over the configured prefixes.
func runScan(ctx context.Context, batch *services.BatchRunner, prefixes []string) {
	log.Printf("Starting full scan (prefixes=%v)...", prefixes)

	var stats *domain.RunStats
	var err error
	if len(prefixes) == 0 {
		stats, err = batch.ProcessAll(ctx, "")
	} else {
		stats, err = batch.ProcessPrefixes(ctx, prefixes)
	}
	if err != nil {
		log.Printf("Full scan aborted: %v", err)
	}
	if stats != nil {
		log.Printf("Full scan done: total=%d succeeded=%d duplicates=%d failed=%d elapsed=%v",
			stats.TotalObjects, stats.Succeeded, stats.Duplicates, stats.Failed, stats.Elapsed)
	}
}

// runEvents starts the dispatcher and reconciler and blocks until
// shutdown.
func runEvents(
	ctx context.Context,
	cfg *config.Config,
	store driven.ObjectStore,
	index driven.SearchIndex,
	ingestor *services.Ingestor,
) {
	source, err := buildEventSource(ctx, cfg, store)
	if err != nil {
		log.Fatalf("Failed to create event source: %v", err)
	}

	var reconciler *services.Reconciler
	if cfg.ReconcileEnabled {
		reconciler = services.NewReconciler(services.ReconcilerConfig{
			Store:    store,
			Index:    index,
			Logger:   slog.Default(),
			Interval: cfg.ReconcileInterval,
			Prefixes: cfg.Prefixes,
		})
		if err := reconciler.Start(ctx); err != nil {
			log.Fatalf("Failed to start reconciler: %v", err)
		}
		log.Printf("Reconciler enabled (interval=%v)", cfg.ReconcileInterval)
	} else {
		log.Println("Reconciler disabled via RECONCILE_ENABLED=false")
	}

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		Source:       source,
		Processor:    ingestor,
		Index:        index,
		Bucket:       store.Bucket(),
		Logger:       slog.Default(),
		PollInterval: cfg.PollInterval,
	})
	if err := dispatcher.Start(ctx); err != nil {
		log.Fatalf("Failed to start dispatcher: %v", err)
	}

	log.Println("Event processing started")

	// Wait for context cancellation
	<-ctx.Done()

	log.Println("Stopping...")
	dispatcher.Stop()
	if reconciler != nil {
		reconciler.Stop()
	}
	log.Println("Stopped")
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

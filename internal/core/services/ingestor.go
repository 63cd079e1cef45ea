package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Chunker splits extracted text into embedding-sized chunks
type Chunker interface {
	Split(text string) ([]domain.Chunk, error)
}

// IngestorConfig holds configuration for the ingestor.
type IngestorConfig struct {
	Store    driven.ObjectStore
	Registry driven.ExtractorRegistry
	Chunker  Chunker
	Embedder driven.Embedder
	Index    driven.SearchIndex
	Logger   *slog.Logger

	// PresignTTL is the lifetime of source links stored on documents
	// (default: 1h)
	PresignTTL time.Duration

	// DedupFailOpen continues ingestion when the duplicate check cannot
	// be answered instead of failing the object
	DedupFailOpen bool

	// SkipDedup bypasses the duplicate check entirely; every object is
	// indexed as new
	SkipDedup bool
}

// Ingestor runs the per-object pipeline: metadata, download, extraction,
// fingerprinting, dedup, chunking, embedding, indexing. Each stage is
// timed and failures are folded into the result.
type Ingestor struct {
	store         driven.ObjectStore
	registry      driven.ExtractorRegistry
	chunker       Chunker
	embedder      driven.Embedder
	index         driven.SearchIndex
	logger        *slog.Logger
	presignTTL    time.Duration
	dedupFailOpen bool
	skipDedup     bool
}

// NewIngestor creates a new ingestor.
func NewIngestor(cfg IngestorConfig) *Ingestor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	presignTTL := cfg.PresignTTL
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &Ingestor{
		store:         cfg.Store,
		registry:      cfg.Registry,
		chunker:       cfg.Chunker,
		embedder:      cfg.Embedder,
		index:         cfg.Index,
		logger:        logger,
		presignTTL:    presignTTL,
		dedupFailOpen: cfg.DedupFailOpen,
		skipDedup:     cfg.SkipDedup,
	}
}

// ProcessObject runs the full pipeline for one storage object. It never
// returns an error; every failure is reported through the result so a
// batch can account for each object individually.
func (g *Ingestor) ProcessObject(ctx context.Context, key string) *domain.IngestResult {
	started := time.Now()
	result := &domain.IngestResult{
		Timing: make(map[string]time.Duration),
	}
	defer func() {
		result.Timing[domain.StageTotal] = time.Since(started)
	}()

	// Stage: object metadata
	stageStart := time.Now()
	info, err := g.store.Info(ctx, key)
	result.Timing[domain.StageMetadata] = time.Since(stageStart)
	if err != nil {
		return g.fail(result, key, "failed to read object metadata", err)
	}
	result.FileName = info.FileName
	result.FilePath = domain.StoragePath(g.store.Bucket(), key)

	fileType, err := domain.FileTypeFromName(info.FileName)
	if err != nil {
		return g.fail(result, key, "unsupported file type", err)
	}
	extractor, ok := g.registry.Get(fileType)
	if !ok {
		return g.fail(result, key, "no extractor registered for file type", domain.ErrUnsupportedFileType)
	}

	// Stage: presigned source link
	stageStart = time.Now()
	presigned, err := g.store.PresignURL(ctx, key, g.presignTTL)
	result.Timing[domain.StagePresign] = time.Since(stageStart)
	if err != nil {
		// The link is a convenience field, not a pipeline dependency
		g.logger.Warn("failed to presign source link", "key", key, "error", err)
		presigned = ""
	}

	// Stage: download
	stageStart = time.Now()
	content, err := g.store.Get(ctx, key)
	result.Timing[domain.StageDownload] = time.Since(stageStart)
	if err != nil {
		return g.fail(result, key, "failed to download object", err)
	}

	// Stage: extraction
	stageStart = time.Now()
	extracted, err := extractor.Parse(ctx, content, info.FileName)
	result.Timing[domain.StageExtraction] = time.Since(stageStart)
	if err != nil {
		return g.fail(result, key, "extraction failed", err)
	}

	// Stage: fingerprint
	stageStart = time.Now()
	fingerprint := domain.Fingerprint(extracted.Text)
	result.Timing[domain.StageFingerprint] = time.Since(stageStart)

	// Stage: dedup check
	var exists bool
	if !g.skipDedup {
		stageStart = time.Now()
		exists, err = g.index.HasFingerprint(ctx, fingerprint)
		result.Timing[domain.StageDedupCheck] = time.Since(stageStart)
		if err != nil {
			if !g.dedupFailOpen {
				return g.fail(result, key, "duplicate check failed", err)
			}
			g.logger.Warn("duplicate check failed, continuing", "key", key, "error", err)
			exists = false
		}
	}
	if exists {
		result.Success = true
		result.Duplicate = true
		result.Message = "document with identical content already indexed"
		g.logger.Info("skipping duplicate content", "key", key, "fingerprint", fingerprint)
		return result
	}

	// Stage: chunking
	stageStart = time.Now()
	chunks, err := g.chunker.Split(extracted.Text)
	result.Timing[domain.StageChunking] = time.Since(stageStart)
	if err != nil {
		return g.fail(result, key, "chunking failed", err)
	}
	result.Chunks = len(chunks)

	// Stage: embedding
	stageStart = time.Now()
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors := g.embedder.EmbedTexts(ctx, texts)
	for i := range chunks {
		if i < len(vectors) && len(vectors[i]) > 0 {
			chunks[i].Embedding = vectors[i]
			result.Embeddings++
		}
	}
	result.Timing[domain.StageEmbedding] = time.Since(stageStart)

	doc := &domain.Document{
		ID:           uuid.NewString(),
		FileName:     info.FileName,
		FilePath:     result.FilePath,
		PresignedURL: presigned,
		FileType:     fileType,
		FileSize:     info.Size,
		UploadDate:   info.LastModified,
		Content:      extracted.Text,
		ContentHash:  fingerprint,
		Chunks:       chunks,
		Metadata:     extracted.Metadata,
		Structured:   extracted.Structured,
	}

	// Stage: indexing. Stale versions under the same path are removed
	// first so an update never leaves two generations behind. A failed
	// delete fails the object; it is retried whole on redelivery.
	stageStart = time.Now()
	deleted, err := g.index.DeleteByStoragePath(ctx, doc.FilePath)
	if err != nil {
		result.Timing[domain.StageIndexing] = time.Since(stageStart)
		return g.fail(result, key, "failed to delete stale versions", err)
	}
	if deleted > 0 {
		g.logger.Info("replaced stale versions", "path", doc.FilePath, "count", deleted)
	}
	err = g.index.IndexDocument(ctx, doc)
	result.Timing[domain.StageIndexing] = time.Since(stageStart)
	if err != nil {
		return g.fail(result, key, "indexing failed", err)
	}

	result.Success = true
	result.DocID = doc.ID
	result.Message = "indexed"

	g.logger.Info("object ingested",
		"key", key,
		"doc_id", doc.ID,
		"chunks", result.Chunks,
		"embeddings", result.Embeddings,
		"elapsed", time.Since(started),
	)
	return result
}

func (g *Ingestor) fail(result *domain.IngestResult, key, message string, err error) *domain.IngestResult {
	result.Success = false
	result.Message = message
	result.Error = err.Error()
	g.logger.Error("object ingestion failed", "key", key, "message", message, "error", err)
	return result
}

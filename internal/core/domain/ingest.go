package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Stage names used as keys in per-object timing maps.
const (
	StageMetadata    = "storage_metadata"
	StagePresign     = "presigned_url"
	StageDownload    = "storage_download"
	StageExtraction  = "extraction"
	StageFingerprint = "fingerprint"
	StageDedupCheck  = "dedup_check"
	StageChunking    = "chunking"
	StageEmbedding   = "embedding"
	StageIndexing    = "indexing"
	StageTotal       = "total"
)

// Fingerprint computes the content fingerprint of normalized extracted text.
// Identical text yields an identical fingerprint regardless of source key.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IngestResult is the outcome of processing a single object. One is produced
// per processed object; per-stage failures are folded into it rather than
// escaping to the caller.
type IngestResult struct {
	Success    bool                     `json:"success"`
	Duplicate  bool                     `json:"is_duplicate"`
	DocID      string                   `json:"doc_id,omitempty"`
	FileName   string                   `json:"file_name"`
	FilePath   string                   `json:"file_path"`
	Message    string                   `json:"message"`
	Error      string                   `json:"error,omitempty"`
	Chunks     int                      `json:"chunks_created"`
	Embeddings int                      `json:"embeddings_generated"`
	Timing     map[string]time.Duration `json:"timing"`
}

// RunStats aggregates the outcomes of a batch or full-scan run.
type RunStats struct {
	TotalObjects   int                      `json:"total_objects"`
	Succeeded      int                      `json:"succeeded"`
	Duplicates     int                      `json:"duplicates"`
	Failed         int                      `json:"failed"`
	SuccessRate    float64                  `json:"success_rate"`
	Elapsed        time.Duration            `json:"elapsed"`
	AvgStageTiming map[string]time.Duration `json:"avg_stage_timing"`
}

// ReconcileStats reports a single reconciliation pass.
type ReconcileStats struct {
	StorageObjects int           `json:"storage_objects"`
	IndexedDocs    int           `json:"indexed_docs"`
	OrphansFound   int           `json:"orphans_found"`
	OrphansDeleted int           `json:"orphans_deleted"`
	Elapsed        time.Duration `json:"elapsed"`
}

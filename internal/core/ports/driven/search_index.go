package driven

import (
	"context"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

// SearchIndex handles document indexing and lookups against the remote
// full-text index (Elasticsearch-compatible HTTP document store).
type SearchIndex interface {
	// EnsureIndex checks that the configured index exists, creating it with
	// the expected field mappings when it does not.
	EnsureIndex(ctx context.Context) error

	// IndexDocument creates or replaces a document by its generated id.
	IndexDocument(ctx context.Context, doc *domain.Document) error

	// HasFingerprint checks whether any document carries the given content
	// fingerprint. A missing index reads as false.
	HasFingerprint(ctx context.Context, fingerprint string) (bool, error)

	// DeleteByStoragePath deletes all documents whose storage path matches.
	// Deleting an absent path is a no-op, not an error. Returns the number of
	// documents removed.
	DeleteByStoragePath(ctx context.Context, storagePath string) (int, error)

	// ListStoragePaths enumerates the storage path of every indexed document
	// via a full scan with continuation.
	ListStoragePaths(ctx context.Context) ([]string, error)

	// DocumentCount returns the number of indexed documents.
	DocumentCount(ctx context.Context) (int64, error)

	// Refresh makes recent writes visible to search. Best effort.
	Refresh(ctx context.Context) error

	// HealthCheck verifies the index endpoint is reachable.
	HealthCheck(ctx context.Context) error
}

package driven

import (
	"context"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

// ObjectStore handles object storage operations (S3).
type ObjectStore interface {
	// List returns all object keys under the given prefix. Folder markers
	// (keys ending in "/") are filtered out.
	List(ctx context.Context, prefix string) ([]string, error)

	// ListInfo returns listing-level info (key, size, last modified) for all
	// objects under the prefix, without a per-object metadata lookup.
	ListInfo(ctx context.Context, prefix string) ([]domain.ObjectInfo, error)

	// Get reads the full object content.
	Get(ctx context.Context, key string) ([]byte, error)

	// Info retrieves object metadata.
	Info(ctx context.Context, key string) (*domain.ObjectInfo, error)

	// PresignURL generates a time-limited retrieval URL for the object.
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Bucket returns the configured bucket name.
	Bucket() string
}

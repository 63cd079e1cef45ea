package driven

import (
	"context"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

// Extractor parses raw document bytes into normalized text and metadata.
// Failures are reported as *domain.ExtractionError.
type Extractor interface {
	Parse(ctx context.Context, content []byte, fileName string) (*domain.ExtractionResult, error)
}

// ExtractorRegistry maps a declared file type to its extraction capability.
// The mapping is a static table fixed at construction time.
type ExtractorRegistry interface {
	// Get returns the extractor for the file type, or false if none exists.
	Get(fileType domain.FileType) (Extractor, bool)

	// Supported lists all file types with a registered extractor.
	Supported() []domain.FileType
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers.
var (
	// ErrUnsupportedFileType indicates no extraction capability exists for the
	// file's extension.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrContentTooShort indicates extraction produced no usable text.
	ErrContentTooShort = errors.New("extracted content is empty or too short")

	// ErrIndexNotFound indicates the target index does not exist.
	ErrIndexNotFound = errors.New("index not found")
)

// StorageError wraps a failure talking to object storage.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ExtractionError wraps a failure extracting text from a document. It carries
// the file name the failure belongs to.
type ExtractionError struct {
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction: %s: %v", e.FileName, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ChunkingError wraps a failure splitting text into chunks.
type ChunkingError struct {
	Err error
}

func (e *ChunkingError) Error() string { return fmt.Sprintf("chunking: %v", e.Err) }

func (e *ChunkingError) Unwrap() error { return e.Err }

// IndexError wraps a failure talking to the search index.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string { return fmt.Sprintf("index: %s: %v", e.Op, e.Err) }

func (e *IndexError) Unwrap() error { return e.Err }

// ConfigurationError indicates invalid or missing startup configuration.
// It is the only fatal error category; everything else is recoverable at
// per-object or per-iteration granularity.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Package chunker splits extracted document text into overlapping chunks
// sized for embedding.
package chunker

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

// Config holds chunker settings
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkLen  int
	Logger       *slog.Logger
}

// Chunker produces fixed-size overlapping chunks using recursive
// character splitting on paragraph, line and word boundaries.
type Chunker struct {
	splitter    textsplitter.RecursiveCharacter
	minChunkLen int
	logger      *slog.Logger
}

// New creates a Chunker from the given configuration
func New(cfg Config) (*Chunker, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", cfg.ChunkOverlap)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)

	return &Chunker{
		splitter:    splitter,
		minChunkLen: cfg.MinChunkLen,
		logger:      logger,
	}, nil
}

// Split breaks text into chunks with strictly increasing positions.
// Fragments shorter than the minimum length are dropped.
func (c *Chunker) Split(text string) ([]domain.Chunk, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &domain.ChunkingError{Err: fmt.Errorf("empty text")}
	}

	pieces, err := c.splitter.SplitText(trimmed)
	if err != nil {
		return nil, &domain.ChunkingError{Err: err}
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	dropped := 0
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		// Lengths are measured in runes so multi-byte text is not
		// over-counted
		charCount := utf8.RuneCountInString(piece)
		if charCount < c.minChunkLen {
			dropped++
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Text:      piece,
			Position:  len(chunks),
			CharCount: charCount,
		})
	}

	if dropped > 0 {
		c.logger.Debug("dropped short chunks", "count", dropped, "min_length", c.minChunkLen)
	}

	return chunks, nil
}

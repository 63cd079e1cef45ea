package driven

import "context"

// Embedder computes dense vectors for text chunks. Implementations never
// fail the whole request: a chunk that could not be embedded gets an empty
// vector at its position, so indexing can proceed with whatever succeeded.
type Embedder interface {
	// EmbedTexts returns one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) [][]float32

	// Dimensions returns the expected vector width.
	Dimensions() int
}

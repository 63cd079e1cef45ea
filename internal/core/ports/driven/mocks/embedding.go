package mocks

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockEmbedder is a mock implementation of Embedder for testing
type MockEmbedder struct {
	mu         sync.Mutex
	dimensions int
	failAll    bool
	failTexts  map[string]bool
	calls      [][]string
}

// NewMockEmbedder creates a new MockEmbedder
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		dimensions: 384,
		failTexts:  make(map[string]bool),
	}
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) [][]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]string(nil), texts...))

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if m.failAll || m.failTexts[text] {
			vectors[i] = []float32{}
			continue
		}
		vectors[i] = m.generateEmbedding(text)
	}
	return vectors
}

func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// generateEmbedding generates a deterministic embedding based on text hash
func (m *MockEmbedder) generateEmbedding(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding
}

// Helper methods for testing

func (m *MockEmbedder) SetFailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

func (m *MockEmbedder) FailText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTexts[text] = true
}

func (m *MockEmbedder) SetDimensions(dim int) {
	m.dimensions = dim
}

func (m *MockEmbedder) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

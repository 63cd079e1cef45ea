package mocks

import (
	"context"
	"sync"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// MockExtractor is a mock implementation of Extractor for testing
type MockExtractor struct {
	mu    sync.Mutex
	Text  string
	Meta  map[string]string
	Err   error
	calls []string

	// ParseFn overrides the default behavior when set
	ParseFn func(ctx context.Context, content []byte, fileName string) (*domain.ExtractionResult, error)
}

// NewMockExtractor creates a new MockExtractor returning the given text
func NewMockExtractor(text string) *MockExtractor {
	return &MockExtractor{Text: text}
}

func (m *MockExtractor) Parse(ctx context.Context, content []byte, fileName string) (*domain.ExtractionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, fileName)
	m.mu.Unlock()

	if m.ParseFn != nil {
		return m.ParseFn(ctx, content, fileName)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	meta := m.Meta
	if meta == nil {
		meta = map[string]string{domain.MetaExtractionMethod: "mock"}
	}
	return &domain.ExtractionResult{Text: m.Text, Metadata: meta}, nil
}

// Helper methods for testing

func (m *MockExtractor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockExtractorRegistry is a mock implementation of ExtractorRegistry for testing
type MockExtractorRegistry struct {
	extractors map[domain.FileType]*MockExtractor
}

// NewMockExtractorRegistry creates a registry with no registered types
func NewMockExtractorRegistry() *MockExtractorRegistry {
	return &MockExtractorRegistry{
		extractors: make(map[domain.FileType]*MockExtractor),
	}
}

func (m *MockExtractorRegistry) Get(fileType domain.FileType) (driven.Extractor, bool) {
	e, ok := m.extractors[fileType]
	return e, ok
}

// Register adds an extractor for the given file type
func (m *MockExtractorRegistry) Register(fileType domain.FileType, e *MockExtractor) {
	m.extractors[fileType] = e
}

// Supported lists registered file types
func (m *MockExtractorRegistry) Supported() []domain.FileType {
	types := make([]domain.FileType, 0, len(m.extractors))
	for ft := range m.extractors {
		types = append(types, ft)
	}
	return types
}

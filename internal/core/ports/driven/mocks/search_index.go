package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

// MockSearchIndex is a mock implementation of SearchIndex for testing
type MockSearchIndex struct {
	mu     sync.RWMutex
	docs   map[string]*domain.Document
	byPath map[string][]string
	byHash map[string]int

	EnsureErr  error
	IndexErr   error
	HasErr     error
	DeleteErr  error
	ListErr    error
	HealthErr  error
	RefreshErr error

	EnsureCalls  int
	RefreshCalls int
}

// NewMockSearchIndex creates a new MockSearchIndex
func NewMockSearchIndex() *MockSearchIndex {
	return &MockSearchIndex{
		docs:   make(map[string]*domain.Document),
		byPath: make(map[string][]string),
		byHash: make(map[string]int),
	}
}

func (m *MockSearchIndex) EnsureIndex(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCalls++
	return m.EnsureErr
}

func (m *MockSearchIndex) IndexDocument(ctx context.Context, doc *domain.Document) error {
	if m.IndexErr != nil {
		return m.IndexErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	m.byPath[doc.FilePath] = append(m.byPath[doc.FilePath], doc.ID)
	m.byHash[doc.ContentHash]++
	return nil
}

func (m *MockSearchIndex) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	if m.HasErr != nil {
		return false, m.HasErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byHash[fingerprint] > 0, nil
}

func (m *MockSearchIndex) DeleteByStoragePath(ctx context.Context, path string) (int, error) {
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.byPath[path]
	for _, id := range ids {
		if doc, ok := m.docs[id]; ok {
			m.byHash[doc.ContentHash]--
			delete(m.docs, id)
		}
	}
	delete(m.byPath, path)
	return len(ids), nil
}

func (m *MockSearchIndex) ListStoragePaths(ctx context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for path, ids := range m.byPath {
		if len(ids) > 0 {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MockSearchIndex) DocumentCount(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

func (m *MockSearchIndex) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefreshCalls++
	return m.RefreshErr
}

func (m *MockSearchIndex) HealthCheck(ctx context.Context) error {
	return m.HealthErr
}

// Helper methods for testing

func (m *MockSearchIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]*domain.Document)
	m.byPath = make(map[string][]string)
	m.byHash = make(map[string]int)
}

func (m *MockSearchIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MockSearchIndex) Document(id string) *domain.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[id]
}

func (m *MockSearchIndex) DocumentsByPath(path string) []*domain.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Document
	for _, id := range m.byPath[path] {
		if doc, ok := m.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out
}

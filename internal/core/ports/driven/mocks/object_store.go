package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

// MockObjectStore is a mock implementation of ObjectStore for testing
type MockObjectStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]mockObject

	ListErr    error
	GetErr     error
	InfoErr    error
	PresignErr error
}

type mockObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// NewMockObjectStore creates a new MockObjectStore
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{
		bucket:  "mock-bucket",
		objects: make(map[string]mockObject),
	}
}

func (m *MockObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MockObjectStore) ListInfo(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	infos := make([]domain.ObjectInfo, 0, len(keys))
	for _, key := range keys {
		obj := m.objects[key]
		infos = append(infos, m.objectInfo(key, obj))
	}
	return infos, nil
}

func (m *MockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, &domain.StorageError{Op: "get", Key: key, Err: fmt.Errorf("key not found")}
	}
	return obj.data, nil
}

func (m *MockObjectStore) Info(ctx context.Context, key string) (*domain.ObjectInfo, error) {
	if m.InfoErr != nil {
		return nil, m.InfoErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, &domain.StorageError{Op: "head", Key: key, Err: fmt.Errorf("key not found")}
	}
	info := m.objectInfo(key, obj)
	return &info, nil
}

func (m *MockObjectStore) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.PresignErr != nil {
		return "", m.PresignErr
	}
	return fmt.Sprintf("https://%s.example.com/%s?expires=%d", m.bucket, key, int(ttl.Seconds())), nil
}

func (m *MockObjectStore) Bucket() string {
	return m.bucket
}

func (m *MockObjectStore) objectInfo(key string, obj mockObject) domain.ObjectInfo {
	fileName := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		fileName = key[idx+1:]
	}
	return domain.ObjectInfo{
		Key:          key,
		FileName:     fileName,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.lastModified,
		Bucket:       m.bucket,
	}
}

// Helper methods for testing

func (m *MockObjectStore) Put(key string, data []byte) {
	m.PutAt(key, data, time.Now())
}

func (m *MockObjectStore) PutAt(key string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = mockObject{data: data, contentType: "application/octet-stream", lastModified: modified}
}

func (m *MockObjectStore) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
}

func (m *MockObjectStore) SetBucket(bucket string) {
	m.bucket = bucket
}

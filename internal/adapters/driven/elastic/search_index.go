// Package elastic implements the SearchIndex port against an
// Elasticsearch-compatible HTTP document store.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchIndex = (*SearchIndex)(nil)

const scrollTTL = "2m"

// Config holds index connection configuration
type Config struct {
	// BaseURL is the cluster endpoint (e.g., http://localhost:9200)
	BaseURL string

	// Index is the target index name
	Index string

	// Username and Password enable basic auth when set
	Username string
	Password string

	// EmbeddingDims is the dense vector width declared in the mapping
	EmbeddingDims int

	// Timeout for HTTP requests
	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL, index string) Config {
	return Config{
		BaseURL:       baseURL,
		Index:         index,
		EmbeddingDims: 384,
		Timeout:       30 * time.Second,
	}
}

// SearchIndex implements driven.SearchIndex over the REST document API
type SearchIndex struct {
	baseURL       string
	index         string
	username      string
	password      string
	embeddingDims int
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewSearchIndex creates an Elasticsearch-backed SearchIndex
func NewSearchIndex(cfg Config) (*SearchIndex, error) {
	if cfg.BaseURL == "" {
		return nil, &domain.ConfigurationError{Field: "base_url", Reason: "must not be empty"}
	}
	if cfg.Index == "" {
		return nil, &domain.ConfigurationError{Field: "index", Reason: "must not be empty"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dims := cfg.EmbeddingDims
	if dims <= 0 {
		dims = 384
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SearchIndex{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		index:         cfg.Index,
		username:      cfg.Username,
		password:      cfg.Password,
		embeddingDims: dims,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}, nil
}

// EnsureIndex creates the index with its mapping if it does not exist
func (s *SearchIndex) EnsureIndex(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodHead, "/"+s.index, nil)
	if err != nil {
		return &domain.IndexError{Op: "ensure", Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode != http.StatusNotFound {
		return &domain.IndexError{Op: "ensure", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"file_name":     map[string]string{"type": "keyword"},
				"file_path":     map[string]string{"type": "keyword"},
				"file_type":     map[string]string{"type": "keyword"},
				"content_hash":  map[string]string{"type": "keyword"},
				"file_size":     map[string]string{"type": "long"},
				"upload_date":   map[string]string{"type": "date"},
				"presigned_url": map[string]interface{}{"type": "keyword", "index": false},
				"content":       map[string]string{"type": "text"},
				"chunks": map[string]interface{}{
					"type": "nested",
					"properties": map[string]interface{}{
						"text":       map[string]string{"type": "text"},
						"position":   map[string]string{"type": "integer"},
						"char_count": map[string]string{"type": "integer"},
						"embedding": map[string]interface{}{
							"type": "dense_vector",
							"dims": s.embeddingDims,
						},
					},
				},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return &domain.IndexError{Op: "ensure", Err: err}
	}

	resp, err = s.do(ctx, http.MethodPut, "/"+s.index, bytes.NewReader(body))
	if err != nil {
		return &domain.IndexError{Op: "ensure", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return &domain.IndexError{Op: "ensure", Err: fmt.Errorf("index create failed: %s - %s", resp.Status, string(respBody))}
	}

	s.logger.Info("created index", "index", s.index)
	return nil
}

// indexedDocument is the stored document shape
type indexedDocument struct {
	FileName     string              `json:"file_name"`
	FilePath     string              `json:"file_path"`
	FileType     string              `json:"file_type"`
	ContentHash  string              `json:"content_hash"`
	FileSize     int64               `json:"file_size"`
	UploadDate   time.Time           `json:"upload_date"`
	PresignedURL string              `json:"presigned_url,omitempty"`
	Content      string              `json:"content"`
	Chunks       []indexedChunk      `json:"chunks"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	Structured   []map[string]string `json:"structured,omitempty"`
}

type indexedChunk struct {
	Text      string    `json:"text"`
	Position  int       `json:"position"`
	CharCount int       `json:"char_count"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// IndexDocument stores a document under its ID
func (s *SearchIndex) IndexDocument(ctx context.Context, doc *domain.Document) error {
	chunks := make([]indexedChunk, 0, len(doc.Chunks))
	for _, chunk := range doc.Chunks {
		chunks = append(chunks, indexedChunk{
			Text:      chunk.Text,
			Position:  chunk.Position,
			CharCount: chunk.CharCount,
			Embedding: chunk.Embedding,
		})
	}

	body, err := json.Marshal(indexedDocument{
		FileName:     doc.FileName,
		FilePath:     doc.FilePath,
		FileType:     string(doc.FileType),
		ContentHash:  doc.ContentHash,
		FileSize:     doc.FileSize,
		UploadDate:   doc.UploadDate,
		PresignedURL: doc.PresignedURL,
		Content:      doc.Content,
		Chunks:       chunks,
		Metadata:     doc.Metadata,
		Structured:   doc.Structured,
	})
	if err != nil {
		return &domain.IndexError{Op: "index", Err: err}
	}

	resp, err := s.do(ctx, http.MethodPut, fmt.Sprintf("/%s/_doc/%s", s.index, doc.ID), bytes.NewReader(body))
	if err != nil {
		return &domain.IndexError{Op: "index", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return &domain.IndexError{Op: "index", Err: fmt.Errorf("index failed: %s - %s", resp.Status, string(respBody))}
	}
	return nil
}

// HasFingerprint reports whether any document carries the content hash
func (s *SearchIndex) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	query := map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"content_hash": fingerprint,
			},
		},
		"_source": false,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return false, &domain.IndexError{Op: "dedup", Err: err}
	}

	resp, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/%s/_search", s.index), bytes.NewReader(body))
	if err != nil {
		return false, &domain.IndexError{Op: "dedup", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return false, &domain.IndexError{Op: "dedup", Err: fmt.Errorf("search failed: %s - %s", resp.Status, string(respBody))}
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return false, &domain.IndexError{Op: "dedup", Err: err}
	}
	return searchResp.Hits.Total.Value > 0, nil
}

// DeleteByStoragePath removes all documents indexed under the path and
// returns how many were deleted. A missing index deletes nothing.
func (s *SearchIndex) DeleteByStoragePath(ctx context.Context, path string) (int, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"file_path": path,
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return 0, &domain.IndexError{Op: "delete", Err: err}
	}

	resp, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/%s/_delete_by_query", s.index), bytes.NewReader(body))
	if err != nil {
		return 0, &domain.IndexError{Op: "delete", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, &domain.IndexError{Op: "delete", Err: fmt.Errorf("delete by query failed: %s - %s", resp.Status, string(respBody))}
	}

	var deleteResp struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&deleteResp); err != nil {
		return 0, &domain.IndexError{Op: "delete", Err: err}
	}
	return deleteResp.Deleted, nil
}

// ListStoragePaths scans the whole index and returns every distinct
// storage path, using the scroll API to page through large indices.
func (s *SearchIndex) ListStoragePaths(ctx context.Context) ([]string, error) {
	query := map[string]interface{}{
		"size":    1000,
		"_source": []string{"file_path"},
		"query":   map[string]interface{}{"match_all": map[string]interface{}{}},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, &domain.IndexError{Op: "scan", Err: err}
	}

	resp, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/%s/_search?scroll=%s", s.index, scrollTTL), bytes.NewReader(body))
	if err != nil {
		return nil, &domain.IndexError{Op: "scan", Err: err}
	}

	seen := make(map[string]struct{})
	var paths []string
	scrollID := ""

	for {
		if resp.StatusCode == http.StatusNotFound {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, nil
		}
		if resp.StatusCode >= 400 {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			s.clearScroll(ctx, scrollID)
			return nil, &domain.IndexError{Op: "scan", Err: fmt.Errorf("scroll failed: %s - %s", resp.Status, string(respBody))}
		}

		var page searchResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			s.clearScroll(ctx, scrollID)
			return nil, &domain.IndexError{Op: "scan", Err: err}
		}

		scrollID = page.ScrollID
		if len(page.Hits.Hits) == 0 {
			break
		}
		for _, hit := range page.Hits.Hits {
			path := hit.Source.FilePath
			if path == "" {
				continue
			}
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			paths = append(paths, path)
		}

		scrollBody, err := json.Marshal(map[string]string{
			"scroll":    scrollTTL,
			"scroll_id": scrollID,
		})
		if err != nil {
			s.clearScroll(ctx, scrollID)
			return nil, &domain.IndexError{Op: "scan", Err: err}
		}
		resp, err = s.do(ctx, http.MethodPost, "/_search/scroll", bytes.NewReader(scrollBody))
		if err != nil {
			s.clearScroll(ctx, scrollID)
			return nil, &domain.IndexError{Op: "scan", Err: err}
		}
	}

	s.clearScroll(ctx, scrollID)
	return paths, nil
}

func (s *SearchIndex) clearScroll(ctx context.Context, scrollID string) {
	if scrollID == "" {
		return
	}
	body, err := json.Marshal(map[string]string{"scroll_id": scrollID})
	if err != nil {
		return
	}
	resp, err := s.do(ctx, http.MethodDelete, "/_search/scroll", bytes.NewReader(body))
	if err != nil {
		s.logger.Debug("failed to clear scroll", "error", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// DocumentCount returns the number of indexed documents
func (s *SearchIndex) DocumentCount(ctx context.Context) (int64, error) {
	resp, err := s.do(ctx, http.MethodGet, fmt.Sprintf("/%s/_count", s.index), nil)
	if err != nil {
		return 0, &domain.IndexError{Op: "count", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, &domain.IndexError{Op: "count", Err: fmt.Errorf("count failed: %s - %s", resp.Status, string(respBody))}
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return 0, &domain.IndexError{Op: "count", Err: err}
	}
	return countResp.Count, nil
}

// Refresh makes recent writes visible to search
func (s *SearchIndex) Refresh(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/%s/_refresh", s.index), nil)
	if err != nil {
		return &domain.IndexError{Op: "refresh", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return &domain.IndexError{Op: "refresh", Err: fmt.Errorf("refresh failed: %s - %s", resp.Status, string(respBody))}
	}
	return nil
}

// HealthCheck verifies the cluster is reachable
func (s *SearchIndex) HealthCheck(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return fmt.Errorf("index health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("index unhealthy: %s", resp.Status)
	}
	return nil
}

func (s *SearchIndex) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	return s.httpClient.Do(req)
}

// searchResponse covers the hit envelope shared by search and scroll
type searchResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source struct {
				FilePath string `json:"file_path"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

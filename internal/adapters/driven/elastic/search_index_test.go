package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

func newTestIndex(t *testing.T, handler http.Handler) (*SearchIndex, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	idx, err := NewSearchIndex(Config{BaseURL: server.URL, Index: "documents", EmbeddingDims: 4})
	if err != nil {
		t.Fatalf("NewSearchIndex failed: %v", err)
	}
	return idx, server
}

func TestEnsureIndexCreatesMissing(t *testing.T) {
	var createdMapping map[string]interface{}
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/documents":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/documents":
			if err := json.NewDecoder(r.Body).Decode(&createdMapping); err != nil {
				t.Errorf("bad mapping body: %v", err)
			}
			fmt.Fprint(w, `{"acknowledged": true}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	if err := idx.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex failed: %v", err)
	}
	if createdMapping == nil {
		t.Fatal("expected index creation request")
	}
	props := createdMapping["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	for _, field := range []string{"content_hash", "file_path", "chunks"} {
		if _, ok := props[field]; !ok {
			t.Errorf("mapping missing field %q", field)
		}
	}
}

func TestEnsureIndexSkipsExisting(t *testing.T) {
	var putCalls int
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			putCalls++
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := idx.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex failed: %v", err)
	}
	if putCalls != 0 {
		t.Errorf("existing index must not be recreated, got %d PUT calls", putCalls)
	}
}

func TestIndexDocument(t *testing.T) {
	var gotPath string
	var gotDoc indexedDocument
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotDoc); err != nil {
			t.Errorf("bad document body: %v", err)
		}
		fmt.Fprint(w, `{"result": "created"}`)
	}))

	doc := &domain.Document{
		ID:          "doc-1",
		FileName:    "a.pdf",
		FilePath:    "s3://bucket/docs/a.pdf",
		FileType:    domain.FileTypePDF,
		ContentHash: "abc123",
		FileSize:    100,
		UploadDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Content:     "hello world",
		Chunks: []domain.Chunk{
			{Text: "hello world", Position: 0, CharCount: 11, Embedding: []float32{0.1, 0.2, 0.3, 0.4}},
		},
	}

	if err := idx.IndexDocument(context.Background(), doc); err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}
	if gotPath != "/documents/_doc/doc-1" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotDoc.ContentHash != "abc123" {
		t.Errorf("unexpected content hash %q", gotDoc.ContentHash)
	}
	if len(gotDoc.Chunks) != 1 || gotDoc.Chunks[0].Position != 0 {
		t.Errorf("unexpected chunks %+v", gotDoc.Chunks)
	}
}

func TestHasFingerprint(t *testing.T) {
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var query struct {
			Query struct {
				Term map[string]string `json:"term"`
			} `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			t.Errorf("bad query body: %v", err)
		}
		if query.Query.Term["content_hash"] == "known" {
			fmt.Fprint(w, `{"hits": {"total": {"value": 1}}}`)
			return
		}
		fmt.Fprint(w, `{"hits": {"total": {"value": 0}}}`)
	}))

	found, err := idx.HasFingerprint(context.Background(), "known")
	if err != nil {
		t.Fatalf("HasFingerprint failed: %v", err)
	}
	if !found {
		t.Error("expected known fingerprint to be found")
	}

	found, err = idx.HasFingerprint(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("HasFingerprint failed: %v", err)
	}
	if found {
		t.Error("expected unknown fingerprint to be absent")
	}
}

func TestDeleteByStoragePath(t *testing.T) {
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents/_delete_by_query" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"deleted": 3}`)
	}))

	deleted, err := idx.DeleteByStoragePath(context.Background(), "s3://bucket/docs/a.pdf")
	if err != nil {
		t.Fatalf("DeleteByStoragePath failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}
}

func TestDeleteByStoragePathMissingIndex(t *testing.T) {
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	deleted, err := idx.DeleteByStoragePath(context.Background(), "s3://bucket/docs/a.pdf")
	if err != nil {
		t.Fatalf("expected nil error for missing index, got %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deleted, got %d", deleted)
	}
}

func TestListStoragePathsScrollsAllPages(t *testing.T) {
	var scrollCalls int
	var scrollCleared bool
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/documents/_search":
			if !strings.Contains(r.URL.RawQuery, "scroll=") {
				t.Error("expected scroll parameter on initial search")
			}
			fmt.Fprint(w, `{"_scroll_id": "s1", "hits": {"total": {"value": 3}, "hits": [
				{"_source": {"file_path": "s3://bucket/a.pdf"}},
				{"_source": {"file_path": "s3://bucket/b.pdf"}}
			]}}`)
		case r.URL.Path == "/_search/scroll" && r.Method == http.MethodPost:
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			if req["scroll_id"] != "s1" {
				t.Errorf("unexpected scroll id %q", req["scroll_id"])
			}
			scrollCalls++
			if scrollCalls == 1 {
				// Repeats a.pdf to exercise deduplication
				fmt.Fprint(w, `{"_scroll_id": "s1", "hits": {"total": {"value": 3}, "hits": [
					{"_source": {"file_path": "s3://bucket/c.pdf"}},
					{"_source": {"file_path": "s3://bucket/a.pdf"}}
				]}}`)
				return
			}
			fmt.Fprint(w, `{"_scroll_id": "s1", "hits": {"total": {"value": 3}, "hits": []}}`)
		case r.URL.Path == "/_search/scroll" && r.Method == http.MethodDelete:
			scrollCleared = true
			fmt.Fprint(w, `{"succeeded": true}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	paths, err := idx.ListStoragePaths(context.Background())
	if err != nil {
		t.Fatalf("ListStoragePaths failed: %v", err)
	}
	want := []string{"s3://bucket/a.pdf", "s3://bucket/b.pdf", "s3://bucket/c.pdf"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %d: %v", len(want), len(paths), paths)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("path %d: expected %q, got %q", i, p, paths[i])
		}
	}
	if !scrollCleared {
		t.Error("scroll context must be cleared after the scan")
	}
}

func TestDocumentCount(t *testing.T) {
	idx, _ := newTestIndex(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents/_count" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"count": 42}`)
	}))

	count, err := idx.DocumentCount(context.Background())
	if err != nil {
		t.Fatalf("DocumentCount failed: %v", err)
	}
	if count != 42 {
		t.Errorf("expected 42, got %d", count)
	}
}

func TestBasicAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "elastic" || pass != "secret" {
			t.Errorf("missing or wrong basic auth: %q %q", user, pass)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	idx, err := NewSearchIndex(Config{BaseURL: server.URL, Index: "documents", Username: "elastic", Password: "secret"})
	if err != nil {
		t.Fatalf("NewSearchIndex failed: %v", err)
	}
	if err := idx.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

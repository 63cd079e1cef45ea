package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

func TestOCRExtractorParse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "scan.pdf" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		body, _ := io.ReadAll(file)
		if string(body) != "pdf bytes" {
			t.Errorf("unexpected upload body %q", body)
		}
		fmt.Fprint(w, `{"content": "The document text recovered by the engine.", "total_pages": 3}`)
	}))
	defer server.Close()

	e := NewOCRExtractor(OCRConfig{BaseURL: server.URL, MinContentLen: 10})

	result, err := e.Parse(context.Background(), []byte("pdf bytes"), "scan.pdf")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !strings.Contains(result.Text, "document text") {
		t.Errorf("unexpected text %q", result.Text)
	}
	if result.Metadata[domain.MetaExtractionMethod] != domain.ExtractionMethodOCR {
		t.Errorf("unexpected method %q", result.Metadata[domain.MetaExtractionMethod])
	}
	if result.Metadata[domain.MetaPageCount] != "3" {
		t.Errorf("unexpected page count %q", result.Metadata[domain.MetaPageCount])
	}
}

func TestOCRExtractorDefaultsPageCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content": "Some recovered text that is long enough."}`)
	}))
	defer server.Close()

	e := NewOCRExtractor(OCRConfig{BaseURL: server.URL})

	result, err := e.Parse(context.Background(), []byte("img"), "scan.png")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Metadata[domain.MetaPageCount] != "1" {
		t.Errorf("expected page count 1, got %q", result.Metadata[domain.MetaPageCount])
	}
}

func TestOCRExtractorShortContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content": "x", "total_pages": 1}`)
	}))
	defer server.Close()

	e := NewOCRExtractor(OCRConfig{BaseURL: server.URL, MinContentLen: 50})

	_, err := e.Parse(context.Background(), []byte("img"), "scan.png")
	if !errors.Is(err, domain.ErrContentTooShort) {
		t.Fatalf("expected ErrContentTooShort, got %v", err)
	}
}

func TestOCRExtractorEngineFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := NewOCRExtractor(OCRConfig{BaseURL: server.URL})
	if _, err := e.Parse(context.Background(), []byte("img"), "scan.png"); err == nil {
		t.Fatal("expected error for engine failure")
	}
}

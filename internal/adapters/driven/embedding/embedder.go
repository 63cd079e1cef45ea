// Package embedding implements the Embedder port against an HTTP
// embedding service exposing single and batch endpoints.
package embedding

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

	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Embedder = (*Embedder)(nil)

// Config holds embedding service configuration
type Config struct {
	// BaseURL is the service endpoint (e.g., http://localhost:8080)
	BaseURL string

	// Model passed on single embed requests
	Model string

	// Dimensions is the expected vector width
	Dimensions int

	// Timeout for HTTP requests
	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Model:      "all-MiniLM-L6-v2",
		Dimensions: 384,
		Timeout:    60 * time.Second,
	}
}

// Embedder calls the embedding service. A batch request is tried first;
// on failure each text is embedded individually so one bad input cannot
// sink the whole document.
type Embedder struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewEmbedder creates an HTTP-backed Embedder
func NewEmbedder(cfg Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 384
	}
	return &Embedder{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: dims,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type batchRequest struct {
	Texts     []string `json:"texts"`
	Normalize bool     `json:"normalize"`
}

type batchResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

type embedRequest struct {
	Model     string `json:"model"`
	Text      string `json:"text"`
	Normalize bool   `json:"normalize"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
}

// EmbedTexts returns one vector per input text. Failed positions carry an
// empty vector rather than failing the call.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	vectors, err := e.embedBatch(ctx, texts)
	if err == nil {
		return vectors
	}
	e.logger.Warn("batch embedding failed, falling back to single requests", "error", err, "texts", len(texts))

	vectors = make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			e.logger.Warn("failed to embed text", "position", i, "error", err)
			vectors[i] = []float32{}
			continue
		}
		vectors[i] = vec
	}
	return vectors
}

// Dimensions returns the expected vector width
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// HealthCheck verifies the service is reachable
func (e *Embedder) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service unhealthy: %s", resp.Status)
	}
	return nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(batchRequest{Texts: texts, Normalize: true})
	if err != nil {
		return nil, err
	}

	resp, err := e.post(ctx, "/batch-embed", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("batch embed failed: %s - %s", resp.Status, string(respBody))
	}

	var batchResp batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batchResp); err != nil {
		return nil, err
	}
	if len(batchResp.Vectors) != len(texts) {
		return nil, fmt.Errorf("batch embed returned %d vectors for %d texts", len(batchResp.Vectors), len(texts))
	}

	for i, vec := range batchResp.Vectors {
		if len(vec) != e.dimensions {
			e.logger.Warn("vector has unexpected dimensions", "position", i, "got", len(vec), "want", e.dimensions)
			batchResp.Vectors[i] = []float32{}
		}
	}
	return batchResp.Vectors, nil
}

func (e *Embedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Text: text, Normalize: true})
	if err != nil {
		return nil, err
	}

	resp, err := e.post(ctx, "/embed", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed failed: %s - %s", resp.Status, string(respBody))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, err
	}
	if len(embedResp.Vector) != e.dimensions {
		return nil, fmt.Errorf("vector has %d dimensions, expected %d", len(embedResp.Vector), e.dimensions)
	}
	return embedResp.Vector, nil
}

func (e *Embedder) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.httpClient.Do(req)
}

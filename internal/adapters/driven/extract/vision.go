// Package extract implements the Extractor port: one extractor per
// extraction capability, assembled into a registry keyed by file type.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Extractor = (*VisionExtractor)(nil)

const visionPrompt = `Please extract all text content from this document.
Maintain the structure and formatting as much as possible.
Include any tables, lists, and structured content.`

// VisionConfig holds vision model settings
type VisionConfig struct {
	// Endpoint is the OpenAI-compatible chat completions URL
	Endpoint string

	Model  string
	APIKey string

	// MaxTokens caps the completion length
	MaxTokens int

	// MinContentLen rejects extractions shorter than this
	MinContentLen int

	// Timeout for requests; vision inference is slow
	Timeout time.Duration

	Logger *slog.Logger
}

// VisionExtractor extracts text by sending the document as an inline
// image to a vision language model.
type VisionExtractor struct {
	endpoint      string
	model         string
	apiKey        string
	maxTokens     int
	minContentLen int
	httpClient    *http.Client
	cleaner       *Cleaner
	logger        *slog.Logger
}

// NewVisionExtractor creates a vision-model-backed extractor
func NewVisionExtractor(cfg VisionConfig) *VisionExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionExtractor{
		endpoint:      cfg.Endpoint,
		model:         cfg.Model,
		apiKey:        cfg.APIKey,
		maxTokens:     maxTokens,
		minContentLen: cfg.MinContentLen,
		httpClient:    &http.Client{Timeout: timeout},
		cleaner:       NewCleaner(),
		logger:        logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Parse sends the document to the vision model and returns cleaned text
func (v *VisionExtractor) Parse(ctx context.Context, content []byte, fileName string) (*domain.ExtractionResult, error) {
	encoded := base64.StdEncoding.EncodeToString(content)

	payload := chatRequest{
		Model: v.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: visionPrompt},
					{Type: "image_url", ImageURL: &imageURL{
						URL: "data:image/jpeg;base64," + encoded,
					}},
				},
			},
		},
		MaxTokens:   v.maxTokens,
		Temperature: 0.1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &domain.ExtractionError{
			FileName: fileName,
			Err:      fmt.Errorf("vision model returned %s: %s", resp.Status, string(respBody)),
		}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &domain.ExtractionError{FileName: fileName, Err: fmt.Errorf("vision model returned no choices")}
	}

	text := v.cleaner.CleanVision(chatResp.Choices[0].Message.Content)
	if len(text) < v.minContentLen {
		return nil, &domain.ExtractionError{FileName: fileName, Err: domain.ErrContentTooShort}
	}

	v.logger.Debug("vision extraction complete", "file", fileName, "chars", len(text))

	return &domain.ExtractionResult{
		Text: text,
		Metadata: map[string]string{
			domain.MetaExtractionMethod: domain.ExtractionMethodVision,
			domain.MetaModelUsed:        v.model,
		},
	}, nil
}

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Extractor = (*OCRExtractor)(nil)

// OCRConfig holds OCR engine settings
type OCRConfig struct {
	// BaseURL is the OCR engine endpoint
	BaseURL string

	// MinContentLen rejects extractions shorter than this
	MinContentLen int

	Timeout time.Duration

	Logger *slog.Logger
}

// OCRExtractor extracts text by uploading the document to an OCR engine
type OCRExtractor struct {
	url           string
	minContentLen int
	httpClient    *http.Client
	cleaner       *Cleaner
	logger        *slog.Logger
}

// NewOCRExtractor creates an OCR-engine-backed extractor
func NewOCRExtractor(cfg OCRConfig) *OCRExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRExtractor{
		url:           cfg.BaseURL + "/ocr",
		minContentLen: cfg.MinContentLen,
		httpClient:    &http.Client{Timeout: timeout},
		cleaner:       NewCleaner(),
		logger:        logger,
	}
}

type ocrResponse struct {
	Content    string `json:"content"`
	TotalPages int    `json:"total_pages"`
}

// Parse uploads the file as multipart form data and returns cleaned text
func (o *OCRExtractor) Parse(ctx context.Context, content []byte, fileName string) (*domain.ExtractionResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}
	if _, err := part.Write(content); err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, &buf)
	if err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &domain.ExtractionError{
			FileName: fileName,
			Err:      fmt.Errorf("ocr engine returned %s: %s", resp.Status, string(respBody)),
		}
	}

	var ocrResp ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}

	text := o.cleaner.CleanOCR(ocrResp.Content)
	if len(text) < o.minContentLen {
		return nil, &domain.ExtractionError{FileName: fileName, Err: domain.ErrContentTooShort}
	}

	pages := ocrResp.TotalPages
	if pages <= 0 {
		pages = 1
	}

	o.logger.Debug("ocr extraction complete", "file", fileName, "pages", pages, "chars", len(text))

	return &domain.ExtractionResult{
		Text: text,
		Metadata: map[string]string{
			domain.MetaExtractionMethod: domain.ExtractionMethodOCR,
			domain.MetaPageCount:        strconv.Itoa(pages),
		},
	}, nil
}

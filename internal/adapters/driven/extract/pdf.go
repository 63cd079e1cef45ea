package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Extractor = (*PDFExtractor)(nil)

// PDFConfig holds PDF extraction settings
type PDFConfig struct {
	// MinContentLen below which the fallback extractor takes over
	MinContentLen int

	// Fallback handles scanned PDFs with no usable text layer.
	// Nil means short extractions fail instead.
	Fallback driven.Extractor

	Logger *slog.Logger
}

// PDFExtractor reads the embedded text layer page by page. Pages that
// fail to decode are skipped; a document whose whole text layer is too
// short is handed to the fallback extractor.
type PDFExtractor struct {
	minContentLen int
	fallback      driven.Extractor
	logger        *slog.Logger
}

// NewPDFExtractor creates a text-layer PDF extractor
func NewPDFExtractor(cfg PDFConfig) *PDFExtractor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{
		minContentLen: cfg.MinContentLen,
		fallback:      cfg.Fallback,
		logger:        logger,
	}
}

// Parse extracts the text layer, falling back for scanned documents
func (p *PDFExtractor) Parse(ctx context.Context, content []byte, fileName string) (*domain.ExtractionResult, error) {
	text, pages, err := p.extractTextLayer(content, fileName)
	if err == nil && len(text) >= p.minContentLen {
		return &domain.ExtractionResult{
			Text: text,
			Metadata: map[string]string{
				domain.MetaExtractionMethod: domain.ExtractionMethodTextPDF,
				domain.MetaPageCount:        strconv.Itoa(pages),
			},
		}, nil
	}

	if p.fallback == nil {
		if err != nil {
			return nil, &domain.ExtractionError{FileName: fileName, Err: err}
		}
		return nil, &domain.ExtractionError{FileName: fileName, Err: domain.ErrContentTooShort}
	}

	p.logger.Info("text layer insufficient, using fallback extractor",
		"file", fileName, "chars", len(text), "error", err)
	return p.fallback.Parse(ctx, content, fileName)
}

func (p *PDFExtractor) extractTextLayer(content []byte, fileName string) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := reader.NumPage()
	var sb strings.Builder
	var failed int

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			failed++
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.Debug("skipping unreadable page", "file", fileName, "page", i, "error", err)
			failed++
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}

	if failed > 0 {
		p.logger.Warn("some pages could not be read", "file", fileName, "failed", failed, "total", numPages)
	}

	return sb.String(), numPages, nil
}

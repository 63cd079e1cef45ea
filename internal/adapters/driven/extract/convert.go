package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Extractor = (*ConvertExtractor)(nil)

// ConvertConfig holds external converter settings
type ConvertConfig struct {
	// Command is the converter binary (e.g., markitdown, pandoc).
	// It must print the converted text to stdout when given a file path.
	Command string

	// Args are prepended before the file path
	Args []string

	// MinContentLen rejects conversions shorter than this
	MinContentLen int

	Logger *slog.Logger
}

// ConvertExtractor shells out to a document converter for formats with
// no native Go reader, such as docx. The content is written to a
// temporary file, converted, and the file removed afterwards.
type ConvertExtractor struct {
	command       string
	args          []string
	minContentLen int
	logger        *slog.Logger
}

// NewConvertExtractor creates a converter-backed extractor
func NewConvertExtractor(cfg ConvertConfig) (*ConvertExtractor, error) {
	if cfg.Command == "" {
		return nil, &domain.ConfigurationError{Field: "convert_command", Reason: "must not be empty"}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ConvertExtractor{
		command:       cfg.Command,
		args:          cfg.Args,
		minContentLen: cfg.MinContentLen,
		logger:        logger,
	}, nil
}

// Parse converts the document via the external command
func (c *ConvertExtractor) Parse(ctx context.Context, content []byte, fileName string) (*domain.ExtractionResult, error) {
	ext := filepath.Ext(fileName)
	tmp, err := os.CreateTemp("", "harbor-convert-*"+ext)
	if err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			c.logger.Warn("failed to remove temp file", "path", tmpPath, "error", err)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: err}
	}

	args := append(append([]string{}, c.args...), tmpPath)
	cmd := exec.CommandContext(ctx, c.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &domain.ExtractionError{
			FileName: fileName,
			Err:      fmt.Errorf("converter failed: %w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	text := strings.TrimSpace(stdout.String())
	if len(text) < c.minContentLen {
		return nil, &domain.ExtractionError{FileName: fileName, Err: domain.ErrContentTooShort}
	}

	c.logger.Debug("conversion complete", "file", fileName, "chars", len(text))

	return &domain.ExtractionResult{
		Text: text,
		Metadata: map[string]string{
			domain.MetaExtractionMethod: domain.ExtractionMethodConvert,
		},
	}, nil
}

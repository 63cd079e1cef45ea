package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Extractor = (*CSVExtractor)(nil)
	_ driven.Extractor = (*ExcelExtractor)(nil)
)

// CSVExtractor turns CSV files into searchable text plus structured
// records keyed by column name.
type CSVExtractor struct {
	logger *slog.Logger
}

// NewCSVExtractor creates a CSV extractor
func NewCSVExtractor(logger *slog.Logger) *CSVExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVExtractor{logger: logger}
}

// Parse reads the CSV with the first row as header
func (c *CSVExtractor) Parse(ctx context.Context, content []byte, fileName string) (*domain.ExtractionResult, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: fmt.Errorf("failed to read header: %w", err)}
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.ExtractionError{FileName: fileName, Err: err}
		}
		rows = append(rows, row)
	}

	text, records := renderTable(header, rows)
	if strings.TrimSpace(text) == "" {
		return nil, &domain.ExtractionError{FileName: fileName, Err: domain.ErrContentTooShort}
	}

	c.logger.Debug("csv extraction complete", "file", fileName, "rows", len(rows), "columns", len(header))

	return &domain.ExtractionResult{
		Text: text,
		Metadata: map[string]string{
			domain.MetaExtractionMethod: domain.ExtractionMethodTabular,
			domain.MetaFormat:           "csv",
			domain.MetaRows:             strconv.Itoa(len(rows)),
			domain.MetaColumns:          strconv.Itoa(len(header)),
			domain.MetaColumnNames:      strings.Join(header, ","),
		},
		Structured: records,
	}, nil
}

// ExcelExtractor turns xlsx workbooks into searchable text plus
// structured records, one pass per sheet.
type ExcelExtractor struct {
	logger *slog.Logger
}

// NewExcelExtractor creates an xlsx extractor
func NewExcelExtractor(logger *slog.Logger) *ExcelExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelExtractor{logger: logger}
}

// Parse reads every sheet, treating the first row of each as its header
func (e *ExcelExtractor) Parse(ctx context.Context, content []byte, fileName string) (*domain.ExtractionResult, error) {
	file, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &domain.ExtractionError{FileName: fileName, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer file.Close()

	sheets := file.GetSheetList()
	var sb strings.Builder
	var records []map[string]string
	totalRows := 0

	for _, sheet := range sheets {
		rows, err := file.GetRows(sheet)
		if err != nil {
			e.logger.Warn("skipping unreadable sheet", "file", fileName, "sheet", sheet, "error", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}

		header := rows[0]
		body := rows[1:]
		totalRows += len(body)

		sheetText, sheetRecords := renderTable(header, body)
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("--- Sheet: %s ---\n%s", sheet, sheetText))

		for _, rec := range sheetRecords {
			rec["_sheet"] = sheet
			records = append(records, rec)
		}
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, &domain.ExtractionError{FileName: fileName, Err: domain.ErrContentTooShort}
	}

	e.logger.Debug("xlsx extraction complete", "file", fileName, "sheets", len(sheets), "rows", totalRows)

	return &domain.ExtractionResult{
		Text: text,
		Metadata: map[string]string{
			domain.MetaExtractionMethod: domain.ExtractionMethodTabular,
			domain.MetaFormat:           "xlsx",
			domain.MetaRows:             strconv.Itoa(totalRows),
			domain.MetaSheets:           strings.Join(sheets, ","),
		},
		Structured: records,
	}, nil
}

// renderTable builds a plain-text rendering and per-row records from a
// header and data rows. Short rows leave trailing columns empty.
func renderTable(header []string, rows [][]string) (string, []map[string]string) {
	var sb strings.Builder
	sb.WriteString(strings.Join(header, " | "))

	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(row, " | "))

		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return sb.String(), records
}

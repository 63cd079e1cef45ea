package domain

// Extraction method identifiers recorded in document metadata.
const (
	ExtractionMethodVision  = "llm_vision"
	ExtractionMethodOCR     = "ocr_engine"
	ExtractionMethodConvert = "doc_convert"
	ExtractionMethodTabular = "tabular"
	ExtractionMethodTextPDF = "pdf_text"
)

// Metadata keys produced by extractors.
const (
	MetaExtractionMethod = "extraction_method"
	MetaModelUsed        = "model_used"
	MetaPageCount        = "page_count"
	MetaFormat           = "format"
	MetaRows             = "rows"
	MetaColumns          = "columns"
	MetaColumnNames      = "column_names"
	MetaSheets           = "sheets"
)

// ExtractionResult is the normalized output of a single extraction. It is
// produced once per object and consumed immediately.
type ExtractionResult struct {
	Text       string
	Metadata   map[string]string
	Structured []map[string]string
}

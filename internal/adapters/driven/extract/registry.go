package extract

import (
	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry is a static file type to extractor table fixed at startup
type Registry struct {
	extractors map[domain.FileType]driven.Extractor
}

// RegistryConfig names the extractor for each capability. Nil entries
// leave their file types unregistered.
type RegistryConfig struct {
	// PDF handles pdf files
	PDF driven.Extractor

	// Image handles png, jpg, jpeg and tiff files
	Image driven.Extractor

	// Doc handles docx and doc files
	Doc driven.Extractor

	// CSV handles csv files
	CSV driven.Extractor

	// Excel handles xlsx and xls files
	Excel driven.Extractor
}

// NewRegistry builds the file type table from the configured extractors
func NewRegistry(cfg RegistryConfig) *Registry {
	extractors := make(map[domain.FileType]driven.Extractor)

	if cfg.PDF != nil {
		extractors[domain.FileTypePDF] = cfg.PDF
	}
	if cfg.Image != nil {
		for _, ft := range []domain.FileType{
			domain.FileTypePNG, domain.FileTypeJPG,
			domain.FileTypeJPEG, domain.FileTypeTIFF,
		} {
			extractors[ft] = cfg.Image
		}
	}
	if cfg.Doc != nil {
		extractors[domain.FileTypeDOCX] = cfg.Doc
		extractors[domain.FileTypeDOC] = cfg.Doc
	}
	if cfg.CSV != nil {
		extractors[domain.FileTypeCSV] = cfg.CSV
	}
	if cfg.Excel != nil {
		extractors[domain.FileTypeXLSX] = cfg.Excel
		extractors[domain.FileTypeXLS] = cfg.Excel
	}

	return &Registry{extractors: extractors}
}

// Get returns the extractor for the file type
func (r *Registry) Get(fileType domain.FileType) (driven.Extractor, bool) {
	e, ok := r.extractors[fileType]
	return e, ok
}

// Supported lists all registered file types
func (r *Registry) Supported() []domain.FileType {
	types := make([]domain.FileType, 0, len(r.extractors))
	for ft := range r.extractors {
		types = append(types, ft)
	}
	return types
}

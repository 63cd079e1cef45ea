package extract

import (
	"testing"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven/mocks"
)

func TestRegistryRouting(t *testing.T) {
	pdf := mocks.NewMockExtractor("pdf text")
	image := mocks.NewMockExtractor("image text")
	csv := mocks.NewMockExtractor("csv text")

	reg := NewRegistry(RegistryConfig{PDF: pdf, Image: image, CSV: csv})

	tests := []struct {
		fileType domain.FileType
		want     *mocks.MockExtractor
	}{
		{domain.FileTypePDF, pdf},
		{domain.FileTypePNG, image},
		{domain.FileTypeJPG, image},
		{domain.FileTypeJPEG, image},
		{domain.FileTypeTIFF, image},
		{domain.FileTypeCSV, csv},
	}
	for _, tt := range tests {
		got, ok := reg.Get(tt.fileType)
		if !ok {
			t.Errorf("%s: expected extractor", tt.fileType)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: wrong extractor", tt.fileType)
		}
	}
}

func TestRegistryUnregisteredType(t *testing.T) {
	reg := NewRegistry(RegistryConfig{PDF: mocks.NewMockExtractor("pdf")})

	if _, ok := reg.Get(domain.FileTypeDOCX); ok {
		t.Error("docx must be unregistered without a doc extractor")
	}
	if _, ok := reg.Get(domain.FileTypeXLSX); ok {
		t.Error("xlsx must be unregistered without an excel extractor")
	}
}

func TestRegistrySupported(t *testing.T) {
	reg := NewRegistry(RegistryConfig{
		Doc:   mocks.NewMockExtractor("doc"),
		Excel: mocks.NewMockExtractor("excel"),
	})

	supported := reg.Supported()
	if len(supported) != 4 {
		t.Fatalf("expected docx, doc, xlsx, xls; got %v", supported)
	}
}

package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// FileType identifies a supported document format, keyed by file extension.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeDOC  FileType = "doc"
	FileTypePNG  FileType = "png"
	FileTypeJPG  FileType = "jpg"
	FileTypeJPEG FileType = "jpeg"
	FileTypeTIFF FileType = "tiff"
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
)

var supportedFileTypes = map[FileType]struct{}{
	FileTypePDF:  {},
	FileTypeDOCX: {},
	FileTypeDOC:  {},
	FileTypePNG:  {},
	FileTypeJPG:  {},
	FileTypeJPEG: {},
	FileTypeTIFF: {},
	FileTypeCSV:  {},
	FileTypeXLSX: {},
	FileTypeXLS:  {},
}

// FileTypeFromName derives the FileType from a file name's extension.
func FileTypeFromName(name string) (FileType, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	ft := FileType(ext)
	if _, ok := supportedFileTypes[ft]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
	return ft, nil
}

// IsImage reports whether the file type is a raster image format.
func (f FileType) IsImage() bool {
	switch f {
	case FileTypePNG, FileTypeJPG, FileTypeJPEG, FileTypeTIFF:
		return true
	}
	return false
}

// ObjectInfo describes a single object in storage. It is created per lookup
// and never persisted.
type ObjectInfo struct {
	Key          string    `json:"key"`
	FileName     string    `json:"file_name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
	PresignedURL string    `json:"presigned_url,omitempty"`
	Bucket       string    `json:"bucket"`
}

// StoragePath builds the canonical storage path used as the join key between
// storage objects and indexed documents.
func StoragePath(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// KeyFromStoragePath extracts the object key from a canonical storage path.
// Returns false if the path is not in s3://bucket/key form.
func KeyFromStoragePath(storagePath string) (string, bool) {
	rest, ok := strings.CutPrefix(storagePath, "s3://")
	if !ok {
		return "", false
	}
	_, key, ok := strings.Cut(rest, "/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Chunk is a bounded, ordered window of a document's text. Positions are
// strictly increasing in source order. An empty embedding means the vector
// could not be produced for this chunk.
type Chunk struct {
	Text      string    `json:"text"`
	Position  int       `json:"position"`
	CharCount int       `json:"char_count"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Document is a fully processed document ready for indexing. After indexing
// it is owned by the index and is only ever removed whole, never mutated.
type Document struct {
	ID           string              `json:"id"`
	FileName     string              `json:"file_name"`
	FilePath     string              `json:"file_path"`
	PresignedURL string              `json:"presigned_url,omitempty"`
	FileType     FileType            `json:"file_type"`
	FileSize     int64               `json:"file_size"`
	UploadDate   time.Time           `json:"upload_date"`
	Content      string              `json:"content"`
	ContentHash  string              `json:"content_hash"`
	Chunks       []Chunk             `json:"chunks"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	Structured   []map[string]string `json:"structured_data,omitempty"`
}

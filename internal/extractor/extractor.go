// Package extractor converts raw uploaded bytes of a detected format into
// plain text. Extraction capabilities are registered per format tag and
// looked up explicitly; an unknown tag fails with ErrUnsupportedFormat.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDocx    Format = "docx"
	FormatDoc     Format = "doc"
	FormatTXT     Format = "txt"
	FormatMD      Format = "md"
	FormatRTF     Format = "rtf"
	FormatJPEG    Format = "jpg"
	FormatPNG     Format = "png"
	FormatTIFF    Format = "tiff"
	FormatBMP     Format = "bmp"
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatCSV     Format = "csv"
	FormatUnknown Format = "unknown"
)

func (f Format) String() string { return string(f) }

// ErrUnsupportedFormat is returned when no extractor is registered for the
// detected format.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ExtractionError wraps a content-level extraction failure for one format.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionFailed(format Format, err error) error {
	return &ExtractionError{Format: format, Err: err}
}

// Extractor converts raw bytes of one format into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Registry maps format tags to extraction capabilities.
type Registry struct {
	extractors map[Format]Extractor
}

func NewRegistry() *Registry {
	return &Registry{extractors: make(map[Format]Extractor)}
}

func (r *Registry) Register(format Format, e Extractor) {
	r.extractors[format] = e
}

// Extract dispatches to the registered extractor for the format. Empty text
// after extraction is a failure, never a success.
func (r *Registry) Extract(ctx context.Context, data []byte, format Format) (string, error) {
	e, ok := r.extractors[format]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	text, err := e.Extract(ctx, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", extractionFailed(format, errors.New("extraction produced no text"))
	}
	return text, nil
}

// Supports reports whether a format has a registered extractor.
func (r *Registry) Supports(format Format) bool {
	_, ok := r.extractors[format]
	return ok
}

// DefaultRegistry returns a registry covering every ingestion format.
func DefaultRegistry(ocrLanguages []string) *Registry {
	reg := NewRegistry()

	text := NewTextExtractor()
	reg.Register(FormatTXT, text)
	reg.Register(FormatMD, text)
	reg.Register(FormatRTF, NewRTFExtractor())

	reg.Register(FormatPDF, NewPDFExtractor())

	docx := NewDocxExtractor()
	reg.Register(FormatDocx, docx)
	reg.Register(FormatDoc, docx)

	ocr := NewOCRExtractor(ocrLanguages)
	reg.Register(FormatJPEG, ocr)
	reg.Register(FormatPNG, ocr)
	reg.Register(FormatTIFF, ocr)
	reg.Register(FormatBMP, ocr)

	sheet := NewSpreadsheetExtractor()
	reg.Register(FormatXLSX, sheet)
	// excelize reads OOXML workbooks only; a legacy binary .xls surfaces
	// as an extraction error rather than an unsupported format.
	reg.Register(FormatXLS, sheet)
	reg.Register(FormatCSV, NewCSVExtractor())

	return reg
}

// DetectFormat sniffs the content type of the raw bytes and falls back to the
// filename extension when sniffing is inconclusive.
func DetectFormat(data []byte, filename string) Format {
	contentType := http.DetectContentType(data)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}

	switch contentType {
	case "application/pdf":
		return FormatPDF
	case "image/jpeg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/tiff":
		return FormatTIFF
	case "image/bmp":
		return FormatBMP
	}

	// Zip containers and text types are ambiguous; the extension decides.
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "pdf":
		return FormatPDF
	case "docx":
		return FormatDocx
	case "doc":
		return FormatDoc
	case "txt", "text", "log":
		return FormatTXT
	case "md", "markdown":
		return FormatMD
	case "rtf":
		return FormatRTF
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "tif", "tiff":
		return FormatTIFF
	case "bmp":
		return FormatBMP
	case "xlsx":
		return FormatXLSX
	case "xls":
		return FormatXLS
	case "csv":
		return FormatCSV
	}

	if strings.HasPrefix(contentType, "text/") {
		return FormatTXT
	}

	return FormatUnknown
}

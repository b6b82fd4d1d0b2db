package extractor

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// OCRExtractor recognizes text in image formats via tesseract. Languages are
// configurable; each call uses a fresh client because gosseract clients are
// not safe for concurrent use.
type OCRExtractor struct {
	languages []string
}

func NewOCRExtractor(languages []string) *OCRExtractor {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &OCRExtractor{languages: languages}
}

func (e *OCRExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return "", extractionFailed(FormatPNG, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", extractionFailed(FormatPNG, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", extractionFailed(FormatPNG, err)
	}

	return strings.TrimSpace(text), nil
}

package extractor

import (
	"bytes"
	"context"
	"strings"

	"github.com/fumiama/go-docx"
)

// DocxExtractor extracts paragraph text first, then table cell text, matching
// the document reading order.
type DocxExtractor struct{}

func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

func (e *DocxExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extractionFailed(FormatDocx, err)
	}

	var paragraphs, tables strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if text := strings.TrimSpace(it.String()); text != "" {
				paragraphs.WriteString(text)
				paragraphs.WriteString("\n")
			}
		case *docx.Table:
			if text := strings.TrimSpace(it.String()); text != "" {
				tables.WriteString(text)
				tables.WriteString("\n")
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(paragraphs.String())
	if tables.Len() > 0 {
		sb.WriteString("\n")
		sb.WriteString(tables.String())
	}

	return sb.String(), nil
}

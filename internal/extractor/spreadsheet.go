package extractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetExtractor renders workbook sheets as text: sheet name, header
// row, then data rows with cells joined by " | ".
type SpreadsheetExtractor struct{}

func NewSpreadsheetExtractor() *SpreadsheetExtractor {
	return &SpreadsheetExtractor{}
}

func (e *SpreadsheetExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", extractionFailed(FormatXLSX, err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) == 0 {
			continue
		}

		sb.WriteString("Sheet: ")
		sb.WriteString(sheet)
		sb.WriteString("\n")
		writeTable(&sb, rows)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// CSVExtractor renders CSV content as the same tabular text representation.
type CSVExtractor struct{}

func NewCSVExtractor() *CSVExtractor {
	return &CSVExtractor{}
}

func (e *CSVExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	decoded, err := decodeText(data)
	if err != nil {
		return "", extractionFailed(FormatCSV, err)
	}

	reader := csv.NewReader(strings.NewReader(decoded))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", extractionFailed(FormatCSV, err)
		}
		rows = append(rows, record)
	}

	var sb strings.Builder
	writeTable(&sb, rows)
	return sb.String(), nil
}

func writeTable(sb *strings.Builder, rows [][]string) {
	for i, row := range rows {
		line := strings.TrimSpace(strings.Join(row, " | "))
		if line == "" {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
		if i == 0 && len(rows) > 1 {
			sb.WriteString("---\n")
		}
	}
}

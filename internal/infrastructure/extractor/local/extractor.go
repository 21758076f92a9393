// Package local extracts text in-process for deployments that run without
// the extraction service.
package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

type Extractor struct{}

var _ ports.ContentExtractor = (*Extractor)(nil)

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, data []byte, contentType, filename string) (string, error) {
	switch {
	case contentType == "application/pdf":
		return extractPDF(data)
	case contentType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return extractXLSX(data)
	case strings.HasPrefix(contentType, "text/"), contentType == "application/json":
		return extractPlaintext(data, filename)
	default:
		return "", domain.WrapError(domain.ErrExtractionFailed, "local extract",
			fmt.Errorf("unsupported content type %s for %s", contentType, filename))
	}
}

func extractPlaintext(data []byte, filename string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid utf-8 text: %s", filename)
	}
	return strings.TrimSpace(string(data)), nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	if _, err := io.Copy(&sb, textReader); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func extractXLSX(data []byte) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	var sb strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

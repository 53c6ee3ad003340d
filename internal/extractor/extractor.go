// Package extractor turns an uploaded resume file into plain text.
package extractor

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"resumeqa/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Supported reports whether the file name carries an extension Extract accepts.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// Extract returns the raw text of a resume. The format is chosen by the
// extension of name; anything other than .pdf or .txt fails with
// domain.ErrUnsupportedFormat.
func Extract(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		return extractPDF(data)
	case ".txt":
		return extractText(data)
	default:
		if ext == "" {
			ext = name
		}
		return "", fmt.Errorf("%w %q: please upload a PDF or TXT file", domain.ErrUnsupportedFormat, ext)
	}
}

func extractText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: file is not valid UTF-8 text", domain.ErrExtraction)
	}
	return string(data), nil
}

// extractPDF concatenates the plain text of every page in page order.
// The pdf package panics on some malformed input, so panics are recovered.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed pdf: %v", domain.ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %w", domain.ErrExtraction, i, err)
		}
		if sb.Len() > 0 && pageText != "" {
			sb.WriteString("\n")
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

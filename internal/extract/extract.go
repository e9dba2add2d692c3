// Package extract pulls raw text out of uploaded documents.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	pipeerrors "legal-team-rag/internal/errors"
)

// pdfMagic is the header every PDF starts with.
var pdfMagic = []byte("%PDF-")

// Text extracts the plain text of an uploaded document. PDFs are
// parsed; anything else is accepted as UTF-8 plain text. A corrupt or
// unsupported file surfaces as an ExtractError; the knowledge base is
// never touched on this path.
func Text(data []byte) (string, error) {
	if len(data) == 0 {
		return "", pipeerrors.New(pipeerrors.KindExtract, "empty document")
	}

	if bytes.HasPrefix(data, pdfMagic) {
		return pdfText(data)
	}

	if !utf8.Valid(data) {
		return "", pipeerrors.New(pipeerrors.KindExtract, "unsupported document format")
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", pipeerrors.New(pipeerrors.KindExtract, "document contains no extractable text")
	}
	return text, nil
}

// pdfText extracts text from PDF bytes.
func pdfText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = pipeerrors.New(pipeerrors.KindExtract, fmt.Sprintf("failed to parse PDF: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", pipeerrors.Wrap(pipeerrors.KindExtract, "failed to open PDF", err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", pipeerrors.Wrap(pipeerrors.KindExtract, fmt.Sprintf("failed to read page %d", pageNum), err)
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", pipeerrors.New(pipeerrors.KindExtract, "document contains no extractable text")
	}

	return result, nil
}

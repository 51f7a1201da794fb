package extractor

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfText pulls the plain-text layer out of a PDF. Scanned PDFs with no
// text layer come back empty, matching the "could not extract" contract.
func pdfText(data []byte) (text string) {
	// The pdf package panics on some malformed files.
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				if w.S != "" {
					words = append(words, w.S)
				}
			}
			sb.WriteString(strings.Join(words, " "))
			sb.WriteString("\n")
		}
	}
	if sb.Len() > 0 {
		return strings.TrimSpace(sb.String())
	}

	// Row extraction can come up empty where the flat reader does not.
	b, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	flat, err := io.ReadAll(b)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(flat))
}

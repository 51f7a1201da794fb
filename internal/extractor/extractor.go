package extractor

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Extractor converts an uploaded document into raw text. An empty string is
// a valid "could not extract" result, not an error; callers fall back to
// prompting the candidate for every profile field.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// DocExtractor handles PDF, DOCX, and plain-text inputs. Image uploads are
// accepted upstream but yield no text here (no OCR).
type DocExtractor struct{}

func New() *DocExtractor { return &DocExtractor{} }

func (e *DocExtractor) Extract(_ context.Context, data []byte, mimeType string) (string, error) {
	switch {
	case mimeType == MimePDF:
		return pdfText(data), nil
	case mimeType == MimeDOCX:
		return docxText(data), nil
	case strings.HasPrefix(mimeType, "image/"):
		return "", nil
	default:
		if utf8.Valid(data) {
			return string(data), nil
		}
		return "", nil
	}
}

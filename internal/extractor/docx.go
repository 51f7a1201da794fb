package extractor

import (
	"archive/zip"
	"bytes"
	"html"
	"io"
	"regexp"
)

var (
	paragraphTagRe = regexp.MustCompile(`<w:p[ >][^>]*>?`)
	xmlTagRe       = regexp.MustCompile(`<[^>]+>`)
)

// docxText reads word/document.xml out of the DOCX zip container and strips
// the markup, turning paragraph boundaries into newlines.
func docxText(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return ""
		}
		s := paragraphTagRe.ReplaceAllString(string(raw), "\n")
		s = xmlTagRe.ReplaceAllString(s, "")
		return html.UnescapeString(s)
	}
	return ""
}

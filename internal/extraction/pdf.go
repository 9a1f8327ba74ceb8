package extraction

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// MinMeaningfulChars is the normalized length at which embedded PDF text is
// used instead of OCR.
const MinMeaningfulChars = 40

const mimePDF = "application/pdf"

func isPDF(mimeType, fileName string) bool {
	if strings.EqualFold(mimeType, mimePDF) {
		return true
	}
	return strings.EqualFold(filepath.Ext(fileName), ".pdf")
}

type pdfText struct {
	text  string
	pages int
}

// readPDFText returns the embedded text of every page, one page per paragraph.
// The reader panics on some malformed files; those panics are returned as
// errors so the caller falls back to OCR.
func readPDFText(data []byte) (out *pdfText, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("pdf text probe: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	total := r.NumPage()
	parts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(strings.ReplaceAll(text, "\x00", "")); text != "" {
			parts = append(parts, text)
		}
	}

	return &pdfText{text: strings.Join(parts, "\n\n"), pages: total}, nil
}

// meaningfulLength counts printable characters after collapsing whitespace.
func meaningfulLength(s string) int {
	n := 0
	for _, r := range strings.Join(strings.Fields(s), " ") {
		if unicode.IsPrint(r) {
			n++
		}
	}
	return n
}

// pageCount prefers pdfcpu and falls back to the text reader's count.
func pageCount(data []byte, fallback int) (n int) {
	defer func() {
		if recover() != nil {
			n = fallback
		}
	}()

	if n, err := api.PageCount(bytes.NewReader(data), nil); err == nil && n > 0 {
		return n
	}
	return fallback
}

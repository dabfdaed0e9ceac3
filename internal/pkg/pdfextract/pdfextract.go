package pdfextract

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ExtractPages returns the plain text of every page, in page order. Pages
// without a content stream yield an empty string so that index i is page i+1.
func ExtractPages(r io.ReaderAt, size int64) (pages []string, err error) {
	if size == 0 {
		return nil, fmt.Errorf("pdf is empty")
	}
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	total := pdfReader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read page %d failed: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

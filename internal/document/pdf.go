package document

import (
	"os"
	"path/filepath"
	"strings"

	"kbqa/internal/model"
	"kbqa/internal/pkg/pdfextract"
)

// PDFLoader yields one document per page that carries text.
type PDFLoader struct{}

func (PDFLoader) Load(path string) ([]model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, loadError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, loadError(path, err)
	}
	pages, err := pdfextract.ExtractPages(f, info.Size())
	if err != nil {
		return nil, loadError(path, err)
	}

	source := filepath.Base(path)
	docs := make([]model.Document, 0, len(pages))
	for i, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, model.Document{
			Source:  source,
			Page:    i + 1,
			Content: text,
		})
	}
	return docs, nil
}

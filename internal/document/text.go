package document

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"unicode/utf8"

	"kbqa/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextLoader reads a UTF-8 file as a single document.
type TextLoader struct{}

func (TextLoader) Load(path string) ([]model.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, loadError(path, err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return nil, loadError(path, errors.New("content is not valid UTF-8"))
	}
	return []model.Document{{
		Source:  filepath.Base(path),
		Content: string(raw),
	}}, nil
}

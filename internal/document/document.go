// Package document turns stored files into model.Documents. The loader is
// picked from the file extension alone; content is never sniffed.
package document

import (
	"fmt"
	"path/filepath"
	"strings"

	"kbqa/internal/model"
)

// Kind is the closed set of supported file formats.
type Kind int

const (
	KindText Kind = iota
	KindPDF
	KindDOCX
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindDOCX:
		return "docx"
	default:
		return "text"
	}
}

// Classify maps a filename to its Kind. Unknown extensions are plain text.
func Classify(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	default:
		return KindText
	}
}

// Loader reads the file at path into an ordered list of documents.
type Loader interface {
	Load(path string) ([]model.Document, error)
}

// LoadError reports a file that could not be read or decoded.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s failed: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadError(path string, err error) error {
	return &LoadError{File: filepath.Base(path), Err: err}
}

// For returns the loader strategy for kind.
func For(kind Kind) Loader {
	switch kind {
	case KindPDF:
		return PDFLoader{}
	case KindDOCX:
		return DOCXLoader{}
	default:
		return TextLoader{}
	}
}

// Load classifies path and runs the matching loader.
func Load(path string) ([]model.Document, error) {
	return For(Classify(path)).Load(path)
}

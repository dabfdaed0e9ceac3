package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"kbqa/internal/model"
)

const docxBodyPart = "word/document.xml"

// DOCXLoader extracts the body text of a Word document, one line per paragraph.
type DOCXLoader struct{}

func (DOCXLoader) Load(path string) ([]model.Document, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, loadError(path, fmt.Errorf("open docx archive: %w", err))
	}
	defer archive.Close()

	var body *zip.File
	for _, f := range archive.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return nil, loadError(path, errors.New("missing "+docxBodyPart))
	}

	rc, err := body.Open()
	if err != nil {
		return nil, loadError(path, err)
	}
	defer rc.Close()

	text, err := paragraphText(rc)
	if err != nil {
		return nil, loadError(path, fmt.Errorf("parse %s: %w", docxBodyPart, err))
	}
	return []model.Document{{
		Source:  filepath.Base(path),
		Content: text,
	}}, nil
}

// paragraphText walks WordprocessingML and keeps run text, tabs and breaks.
// Paragraphs nested in tables are included in document order.
func paragraphText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    strings.Builder
		inText bool
		para   strings.Builder
	)
	flush := func() {
		line := strings.TrimRight(para.String(), " \t")
		para.Reset()
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(line)
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

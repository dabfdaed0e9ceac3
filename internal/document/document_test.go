package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		want     Kind
	}{
		{"report.pdf", KindPDF},
		{"REPORT.PDF", KindPDF},
		{"notes.docx", KindDOCX},
		{"notes.doc", KindText},
		{"readme.md", KindText},
		{"no-extension", KindText},
		{"archive.pdf.txt", KindText},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.filename))
		})
	}
}

func TestFor(t *testing.T) {
	assert.IsType(t, PDFLoader{}, For(KindPDF))
	assert.IsType(t, DOCXLoader{}, For(KindDOCX))
	assert.IsType(t, TextLoader{}, For(KindText))
	assert.Equal(t, "docx", KindDOCX.String())
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestTextLoader(t *testing.T) {
	path := writeFile(t, "guide.txt", []byte("\xEF\xBB\xBFhello\nworld"))

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "guide.txt", docs[0].Source)
	assert.Equal(t, "hello\nworld", docs[0].Content)
	assert.Zero(t, docs[0].Page)
}

func TestTextLoader_UnknownExtensionFallsBack(t *testing.T) {
	path := writeFile(t, "data.csv", []byte("a,b\n1,2"))

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a,b\n1,2", docs[0].Content)
}

func TestTextLoader_InvalidUTF8(t *testing.T) {
	path := writeFile(t, "binary.bin", []byte{0xff, 0xfe, 0xfd})

	_, err := Load(path)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "binary.bin", loadErr.File)
	assert.Contains(t, err.Error(), "binary.bin")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "gone.txt"))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "gone.txt", loadErr.File)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// buildPDF writes a minimal PDF with one page per entry. An empty entry
// yields a page whose content stream draws no text.
func buildPDF(t *testing.T, name string, pages []string) string {
	t.Helper()
	n := len(pages)
	fontID := 3 + 2*n
	objects := make([]string, fontID)

	kids := make([]string, n)
	for i, text := range pages {
		pageID, contentID := 3+2*i, 4+2*i
		kids[i] = fmt.Sprintf("%d 0 R", pageID)

		stream := "0 0 m 10 10 l S"
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 40 700 Td (%s) Tj ET", text)
		}
		objects[pageID-1] = fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, contentID)
		objects[contentID-1] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream)
	}
	objects[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n)
	objects[fontID-1] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return writeFile(t, name, buf.Bytes())
}

func TestPDFLoader_OneDocumentPerPage(t *testing.T) {
	path := buildPDF(t, "manual.pdf", []string{"Hello page one", "Second page text", ""})

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 2, "the page without text is skipped")

	assert.Equal(t, 1, docs[0].Page)
	assert.Equal(t, 2, docs[1].Page)
	assert.Contains(t, docs[0].Content, "Hello page one")
	assert.Contains(t, docs[1].Content, "Second page text")
	for _, d := range docs {
		assert.Equal(t, "manual.pdf", d.Source)
	}
}

func TestPDFLoader_PageNumbersSkipBlankPages(t *testing.T) {
	path := buildPDF(t, "gaps.pdf", []string{"", "Only the second page"})

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, docs[0].Page)
	assert.Contains(t, docs[0].Content, "Only the second page")
}

func TestPDFLoader_Corrupt(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("%PDF-1.4\nthis is not really a pdf"))

	_, err := Load(path)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "broken.pdf", loadErr.File)
}

func TestPDFLoader_Empty(t *testing.T) {
	path := writeFile(t, "empty.pdf", nil)

	_, err := Load(path)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func buildDocx(t *testing.T, name string, parts map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for partName, body := range parts {
		w, err := zw.Create(partName)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>
    <w:p><w:r><w:t>Revenue</w:t><w:tab/><w:t>42</w:t></w:r></w:p>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>Cell text</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
  </w:body>
</w:document>`

func TestDOCXLoader(t *testing.T) {
	path := buildDocx(t, "report.docx", map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   sampleDocumentXML,
	})

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "report.docx", docs[0].Source)
	assert.Equal(t, "Quarterly report\nRevenue\t42\nCell text", docs[0].Content)
}

func TestDOCXLoader_MissingBody(t *testing.T) {
	path := buildDocx(t, "hollow.docx", map[string]string{"docProps/core.xml": "<core/>"})

	_, err := Load(path)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "word/document.xml")
}

func TestDOCXLoader_NotZip(t *testing.T) {
	path := writeFile(t, "fake.docx", []byte("plain text pretending to be docx"))

	_, err := Load(path)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "fake.docx", loadErr.File)
}

package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(documentXML, coreXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		doc.Write([]byte(documentXML))
	}

	if coreXML != "" {
		core, _ := w.Create("docProps/core.xml")
		core.Write([]byte(coreXML))
	}

	w.Close()
	return buf.Bytes()
}

func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body + `</w:body>
</w:document>`
}

func TestSupportedExtensions(t *testing.T) {
	assert.ElementsMatch(t, []string{".docx", ".doc"}, New().SupportedExtensions())
}

func TestNormalise_Success(t *testing.T) {
	coreXML := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Loan Terms</dc:title>
</cp:coreProperties>`
	raw := &domain.RawDocument{
		Path:      "/uploads/s1/loan_terms.docx",
		Name:      "loan_terms.docx",
		Extension: ".docx",
		Content:   createTestDOCX(wrapBody(`<w:p><w:r><w:t>Fixed APR of 6.9%</w:t></w:r></w:p>`), coreXML),
	}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	doc := result.Document
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "loan_terms.docx", doc.Source)
	assert.Equal(t, raw.Path, doc.Path)
	assert.Equal(t, "Fixed APR of 6.9%", doc.Content)
	assert.Equal(t, "docx", doc.Metadata["format"])
	assert.Equal(t, "Loan Terms", doc.Metadata["title"])
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_InvalidZip(t *testing.T) {
	raw := &domain.RawDocument{Name: "legacy.doc", Extension: ".doc", Content: []byte{0xD0, 0xCF, 0x11, 0xE0}}

	result, err := New().Normalise(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_MultipleParagraphs(t *testing.T) {
	body := `<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t>Third paragraph.</w:t></w:r></w:p>`

	result, err := New().Normalise(context.Background(), &domain.RawDocument{Name: "p.docx", Content: createTestDOCX(wrapBody(body), "")})

	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond paragraph.\nThird paragraph.", result.Document.Content)
	assert.NotContains(t, result.Document.Metadata, "title")
}

func TestNormalise_MultipleRuns(t *testing.T) {
	body := `<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>World</w:t></w:r></w:p>`

	result, err := New().Normalise(context.Background(), &domain.RawDocument{Name: "r.docx", Content: createTestDOCX(wrapBody(body), "")})

	require.NoError(t, err)
	assert.Equal(t, "Hello World", result.Document.Content)
}

func TestNormalise_MissingDocumentPart(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{Name: "e.docx", Content: createTestDOCX("", "")})

	require.NoError(t, err)
	assert.Empty(t, result.Document.Content)
}

func TestInterfaceCompliance(_ *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

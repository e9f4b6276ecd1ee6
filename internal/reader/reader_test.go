package reader

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"resume-match-go/internal/types"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Skills</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Cyber Security</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="1"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Penetration </w:t></w:r><w:r><w:t>Testing</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>SQL</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Technology</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Level</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Docker</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Advanced</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t>Education</w:t><w:tab/><w:t>BSc</w:t></w:r></w:p>
</w:body>
</w:document>`

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml":            body,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseDocumentXML(t *testing.T) {
	text, tables, err := parseDocumentXML(documentXML)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe\n\nSkills\n- Cyber Security\n  - Penetration Testing\n- SQL\nTechnology  Level\nDocker  Advanced\n\nEducation\tBSc", text)
	assert.Equal(t, []types.Table{{{"Technology", "Level"}, {"Docker", "Advanced"}}}, tables)

	_, _, err = parseDocumentXML("<w:document><w:body>")
	assert.Error(t, err)
}

func TestDocxReader(t *testing.T) {
	data := buildDocx(t, documentXML)
	doc, ok := New().Read(context.Background(), "resume.docx", "", data)
	require.True(t, ok)
	assert.Contains(t, doc.Text, "  - Penetration Testing")
	assert.Equal(t, FormatDOCX, doc.Hint.Format)
	assert.True(t, doc.Hint.IsTabular())

	_, ok = New().Read(context.Background(), "broken.docx", "", []byte("PK\x03\x04 not a zip"))
	assert.False(t, ok)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatPDF, DetectFormat("cv.PDF", "", nil))
	assert.Equal(t, FormatDOCX, DetectFormat("cv", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil))
	assert.Equal(t, FormatText, DetectFormat("", "text/plain; charset=utf-8", nil))
	assert.Equal(t, FormatPDF, DetectFormat("upload", "", []byte("%PDF-1.7 ...")))
	assert.Equal(t, FormatDOCX, DetectFormat("upload", "", []byte("PK\x03\x04...")))
	assert.Equal(t, FormatText, DetectFormat("upload", "", []byte("Skills: Go")))
	assert.Equal(t, "", DetectFormat("upload", "", []byte{0xff, 0xfe, 0xfd}))
}

func TestReader_PlainTextAndUnreadable(t *testing.T) {
	r := New()

	doc, ok := r.Read(context.Background(), "cv.txt", "", []byte("\xef\xbb\xbfSkills\nGo, SQL"))
	require.True(t, ok)
	assert.Equal(t, "Skills\nGo, SQL", doc.Text)
	assert.False(t, doc.Hint.IsTabular())

	_, ok = r.Read(context.Background(), "cv.txt", "", []byte("   \n"))
	assert.False(t, ok)

	_, ok = r.Read(context.Background(), "cv.pdf", "", []byte("%PDF-1.4 truncated"))
	assert.False(t, ok)

	_, ok = r.Read(context.Background(), "cv.odt", "application/vnd.oasis.opendocument.text", []byte{0xff, 0x00})
	assert.False(t, ok)
}

func TestReader_UnreadableIsRecordedOnSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	_, ok := New().Read(context.Background(), "jane.pdf", "", []byte("%PDF-1.4 truncated"))
	require.False(t, ok)

	var span sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == "Reader.Read" {
			span = s
		}
	}
	require.NotNil(t, span)
	assert.Equal(t, codes.Error, span.Status().Code)
	got := map[string]string{}
	for _, kv := range span.Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "extract", got["error.type"])
	assert.Equal(t, "false", got["document.readable"])
	assert.Equal(t, "ja****df", got["document.name"])
}

func TestReader_PDFExtractorChain(t *testing.T) {
	failing := ExtractorFunc(func(context.Context, []byte, string) (Document, bool) { return Document{}, false })
	working := ExtractorFunc(func(context.Context, []byte, string) (Document, bool) {
		return Document{Text: "Skills\nGo"}, true
	})
	r := New(WithPDFExtractors(failing, working))

	doc, ok := r.Read(context.Background(), "cv.pdf", "", []byte("%PDF-"))
	require.True(t, ok)
	assert.Equal(t, "Skills\nGo", doc.Text)
	assert.Equal(t, FormatPDF, doc.Hint.Format)
}

func TestRowCells(t *testing.T) {
	row := pdf.TextHorizontal{
		{FontSize: 10, X: 0, W: 30, S: "Python"},
		{FontSize: 10, X: 32, W: 20, S: "3.11"},
		{FontSize: 10, X: 120, W: 40, S: "Advanced"},
	}
	assert.Equal(t, []string{"Python 3.11", "Advanced"}, rowCells(row))

	joined := pdf.TextHorizontal{
		{FontSize: 10, X: 0, W: 5, S: "S"},
		{FontSize: 10, X: 5, W: 5, S: "Q"},
		{FontSize: 10, X: 10, W: 5, S: "L"},
	}
	assert.Equal(t, []string{"SQL"}, rowCells(joined))
	assert.Empty(t, rowCells(nil))
}

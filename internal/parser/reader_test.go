package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMinimalPDF assembles a tiny, classic-xref-table (pre-1.5) PDF in
// memory: one page, one font resource, one content stream, and document
// info. Byte offsets are computed as the buffer is built rather than
// hardcoded, since Reader.Open depends on them being exact.
func buildMinimalPDF() []byte {
	var buf bytes.Buffer
	offsets := make(map[int]int)

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	content := []byte("BT /F1 12 Tf (Hi) Tj ET")

	buf.WriteString("%PDF-1.4\n")
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")

	offsets[4] = buf.Len()
	fmt.Fprintf(&buf, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content)

	writeObj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	writeObj(6, "<< /Title (Test Document) /Author (Test Suite) >>")

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 7\n0000000000 65535 f \n")
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 7 /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF", xrefOffset)

	return buf.Bytes()
}

// writeMinimalPDF writes buildMinimalPDF's bytes to a temp file and returns
// its path.
func writeMinimalPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minimal.pdf")
	require.NoError(t, os.WriteFile(path, buildMinimalPDF(), 0o644))
	return path
}

func TestOpen_MinimalPDF(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	defer reader.Close()

	catalog := reader.GetCatalog()
	require.NotNil(t, catalog)
	typ := catalog.GetName("Type")
	require.NotNil(t, typ)
	assert.Equal(t, "Catalog", typ.Value())
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "does-not-exist.pdf"))
	assert.Error(t, err)
}

func TestReader_GetPageCount(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	defer reader.Close()

	count, err := reader.GetPageCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReader_GetPage(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	defer reader.Close()

	page, err := reader.GetPage(0)
	require.NoError(t, err)
	require.NotNil(t, page)

	typ := page.GetName("Type")
	require.NotNil(t, typ)
	assert.Equal(t, "Page", typ.Value())
}

func TestReader_GetPage_OutOfRange(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.GetPage(5)
	assert.Error(t, err)
}

func TestReader_GetPageContent(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	defer reader.Close()

	page, err := reader.GetPage(0)
	require.NoError(t, err)

	data, err := reader.GetPageContent(page)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Tj")
}

func TestReader_GetInheritedResources(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	defer reader.Close()

	page, err := reader.GetPage(0)
	require.NoError(t, err)

	resources := reader.GetInheritedResources(page)
	require.NotNil(t, resources)

	fontsObj := resources.Get("Font")
	require.NotNil(t, fontsObj)
	fonts, ok := reader.Resolve(fontsObj).(*Dictionary)
	require.True(t, ok)
	assert.Contains(t, fonts.Keys(), "F1")
}

func TestReader_GetDocumentInfo(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	defer reader.Close()

	info := reader.GetDocumentInfo()
	require.NotNil(t, info)
	assert.Equal(t, "Test Document", info.Title)
	assert.Equal(t, "Test Suite", info.Author)
	assert.False(t, info.Encrypted)
}

func TestReader_GetPageObjNum(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	defer reader.Close()

	objNum, err := reader.GetPageObjNum(0)
	require.NoError(t, err)
	assert.Equal(t, 3, objNum)
}

func TestReader_Resolve(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	defer reader.Close()

	catalog := reader.GetCatalog()
	pagesObj := catalog.Get("Pages")
	require.NotNil(t, pagesObj)

	resolved := reader.Resolve(pagesObj)
	pages, ok := resolved.(*Dictionary)
	require.True(t, ok)
	assert.Equal(t, int64(1), pages.GetInteger("Count"))
}

func TestReader_Close_Idempotent(t *testing.T) {
	reader, err := Open(writeMinimalPDF(t))
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.NoError(t, reader.Close())
}

func BenchmarkReader_GetPage(b *testing.B) {
	path := filepath.Join(b.TempDir(), "minimal.pdf")
	require.NoError(b, os.WriteFile(path, buildMinimalPDF(), 0o644))
	reader, err := Open(path)
	if err != nil {
		b.Fatal(err)
	}
	defer reader.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := reader.GetPage(0); err != nil {
			b.Fatal(err)
		}
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildMinimalPDF assembles a tiny classic-xref-table PDF: one page, one
// font, one content stream, and document info - enough for runExtract and
// runInfo to exercise their full paths without a real PDF fixture on disk.
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

func writeMinimalPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minimal.pdf")
	require.NoError(t, os.WriteFile(path, buildMinimalPDF(), 0o644))
	return path
}

// resetFlags restores the package-level flag variables runExtract reads, so
// tests don't leak state into each other.
func resetFlags() {
	outputFormat = "text"
	outputPath = ""
}

func TestRunExtract_UnknownFormat(t *testing.T) {
	resetFlags()
	defer resetFlags()
	outputFormat = "bogus"
	outputPath = filepath.Join(t.TempDir(), "out.txt")

	err := runExtract(writeMinimalPDF(t))
	require.Error(t, err)
}

func TestRunExtract_XLSXRequiresOut(t *testing.T) {
	resetFlags()
	defer resetFlags()
	outputFormat = "xlsx"

	err := runExtract(writeMinimalPDF(t))
	require.Error(t, err)
}

func TestRunExtract_Text(t *testing.T) {
	resetFlags()
	defer resetFlags()
	outputFormat = "text"
	outputPath = filepath.Join(t.TempDir(), "out.txt")

	require.NoError(t, runExtract(writeMinimalPDF(t)))
	_, err := os.Stat(outputPath)
	require.NoError(t, err)
}

func TestRunExtract_CSV(t *testing.T) {
	resetFlags()
	defer resetFlags()
	outputFormat = "csv"
	outputPath = filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, runExtract(writeMinimalPDF(t)))
	_, err := os.Stat(outputPath)
	require.NoError(t, err)
}

func TestRunExtract_JSON(t *testing.T) {
	resetFlags()
	defer resetFlags()
	outputFormat = "json"
	outputPath = filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, runExtract(writeMinimalPDF(t)))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var decoded [][][]string
	require.NoError(t, json.Unmarshal(data, &decoded))
}

func TestRunExtract_XLSX(t *testing.T) {
	resetFlags()
	defer resetFlags()
	outputFormat = "xlsx"
	outputPath = filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, runExtract(writeMinimalPDF(t)))
	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestRunExtract_MissingFile(t *testing.T) {
	resetFlags()
	defer resetFlags()

	err := runExtract(filepath.Join(t.TempDir(), "does-not-exist.pdf"))
	require.Error(t, err)
}

func TestRunInfo(t *testing.T) {
	require.NoError(t, runInfo(writeMinimalPDF(t)))
}

func TestRunInfo_MissingFile(t *testing.T) {
	err := runInfo(filepath.Join(t.TempDir(), "does-not-exist.pdf"))
	require.Error(t, err)
}

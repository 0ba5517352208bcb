package export

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/notsnake/pdftables"
)

type stubTable struct {
	data    [][]string
	caption string
}

func (s *stubTable) GetData() [][]string { return s.data }
func (s *stubTable) Show(io.Writer)      {}
func (s *stubTable) ShowStdout()         {}
func (s *stubTable) CaptionText() string { return s.caption }

type captionlessStubTable struct {
	data [][]string
}

func (s *captionlessStubTable) GetData() [][]string { return s.data }
func (s *captionlessStubTable) Show(io.Writer)       {}
func (s *captionlessStubTable) ShowStdout()          {}

func TestWriteXLSX_OneSheetPerTableNamedFromCaption(t *testing.T) {
	tables := []pdftables.Table{
		&stubTable{caption: "Revenue", data: [][]string{{"Q1", "100"}, {"Q2", "200"}}},
		&stubTable{caption: "Expenses", data: [][]string{{"Rent", "50"}}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tables))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Revenue", "Expenses"}, f.GetSheetList())

	v, err := f.GetCellValue("Revenue", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Q1", v)

	v, err = f.GetCellValue("Revenue", "B2")
	require.NoError(t, err)
	assert.Equal(t, "200", v)
}

func TestWriteXLSX_CaptionlessTableFallsBackToSheetN(t *testing.T) {
	tables := []pdftables.Table{&captionlessStubTable{data: [][]string{{"x"}}}}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tables))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Sheet1"}, f.GetSheetList())
}

func TestWriteXLSX_NoTables_StillProducesReadableWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())
}

func TestSheetName_DeduplicatesCollisionsWithSuffix(t *testing.T) {
	used := map[string]bool{}
	first := sheetName(&stubTable{caption: "Totals"}, 0, used)
	used[first] = true
	second := sheetName(&stubTable{caption: "Totals"}, 1, used)

	assert.Equal(t, "Totals", first)
	assert.Equal(t, "Totals (2)", second)
}

func TestSheetName_TruncatesCollisionSuffixToStayUnder31Chars(t *testing.T) {
	longCaption := strings.Repeat("A", 40)
	used := map[string]bool{}
	first := sheetName(&stubTable{caption: longCaption}, 0, used)
	require.LessOrEqual(t, len(first), sheetNameLimit)
	used[first] = true

	second := sheetName(&stubTable{caption: longCaption}, 1, used)
	assert.LessOrEqual(t, len(second), sheetNameLimit)
	assert.True(t, strings.HasSuffix(second, " (2)"))
}

func TestSanitizeSheetName_StripsRejectedCharactersAndTruncates(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e_f", sanitizeSheetName("a[b]c:d*e?f"))
	assert.Equal(t, strings.Repeat("x", 31), sanitizeSheetName(strings.Repeat("x", 50)))
	assert.Equal(t, "", sanitizeSheetName("   "))
}

func TestCaptionOf_ReturnsEmptyWhenTableHasNoCaption(t *testing.T) {
	assert.Equal(t, "", captionOf(&captionlessStubTable{}))
}

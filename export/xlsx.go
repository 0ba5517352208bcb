// Package export writes extracted tables out to interchange formats.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/notsnake/pdftables"
)

// sheetNameLimit is Excel's hard cap on worksheet name length.
const sheetNameLimit = 31

// invalidSheetChars are characters Excel rejects in a worksheet name.
const invalidSheetChars = `[]:*?/\`

// WriteXLSX writes one worksheet per table to w as an XLSX workbook. A
// table's sheet is named from its caption when it has one (sanitized of
// characters Excel rejects and truncated to 31 characters), otherwise
// "SheetN" in extraction order.
func WriteXLSX(w io.Writer, tables []pdftables.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i, table := range tables {
		name := sheetName(table, i, used)
		used[name] = true

		if i == 0 {
			f.SetSheetName("Sheet1", name)
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: failed to create sheet %q: %w", name, err)
		}

		for rowIdx, row := range table.GetData() {
			for colIdx, cell := range row {
				ref, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					return fmt.Errorf("export: failed to compute cell reference: %w", err)
				}
				if err := f.SetCellValue(name, ref, cell); err != nil {
					return fmt.Errorf("export: failed to write cell %s!%s: %w", name, ref, err)
				}
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: failed to write workbook: %w", err)
	}
	return nil
}

func sheetName(table pdftables.Table, index int, used map[string]bool) string {
	caption := captionOf(table)
	name := sanitizeSheetName(caption)
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}

	base := name
	for suffix := 2; used[name]; suffix++ {
		trimmed := base
		suffixStr := fmt.Sprintf(" (%d)", suffix)
		if len(trimmed)+len(suffixStr) > sheetNameLimit {
			trimmed = trimmed[:sheetNameLimit-len(suffixStr)]
		}
		name = trimmed + suffixStr
	}
	return name
}

// captionOf extracts a caption from the tables that carry one (structured
// tables only; geometric tables have no caption concept).
func captionOf(table pdftables.Table) string {
	type captioned interface{ CaptionText() string }
	if c, ok := table.(captioned); ok {
		return c.CaptionText()
	}
	return ""
}

func sanitizeSheetName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var sb strings.Builder
	for _, r := range name {
		if strings.ContainsRune(invalidSheetChars, r) {
			sb.WriteRune('_')
			continue
		}
		sb.WriteRune(r)
	}
	out := sb.String()
	if len(out) > sheetNameLimit {
		out = out[:sheetNameLimit]
	}
	return out
}

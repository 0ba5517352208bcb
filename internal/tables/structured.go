package tables

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/notsnake/pdftables/internal/parser"
	"github.com/notsnake/pdftables/logging"
)

// CellRef is a table cell's ordered list of marked-content ids; the cell's
// displayed text is the concatenation of MCIDMap[mcid] for each mcid.
type CellRef []int

// StructuredTable is a table discovered by walking the document's tagged
// structure tree (component F).
type StructuredTable struct {
	Caption     string
	captionMCID *int
	Rows        [][]CellRef
	MCIDMap     map[int]string
}

// GetData resolves every cell's MCIDs against MCIDMap, returning the same
// shape a spreadsheet export or Show wants: one []string per row.
func (t *StructuredTable) GetData() [][]string {
	data := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, 0, len(row))
		for _, ref := range row {
			cells = append(cells, t.cellText(ref))
		}
		data = append(data, cells)
	}
	return data
}

func (t *StructuredTable) cellText(ref CellRef) string {
	var sb strings.Builder
	for _, mcid := range ref {
		sb.WriteString(t.MCIDMap[mcid])
	}
	return sb.String()
}

// Show writes the table in the reference's "caption, then pipe-separated
// rows" layout.
func (t *StructuredTable) Show(w io.Writer) {
	if t.captionMCID != nil {
		fmt.Fprintln(w, t.MCIDMap[*t.captionMCID])
	}
	for _, row := range t.GetData() {
		for _, cell := range row {
			fmt.Fprint(w, cell)
		}
		fmt.Fprint(w, "| ")
	}
	fmt.Fprintln(w)
}

// ShowStdout is Show wrapping os.Stdout, matching the reference's
// "print()" contract for callers that don't need a captured writer.
func (t *StructuredTable) ShowStdout() { t.Show(os.Stdout) }

// CaptionText returns the table's caption text, or "" if it has none.
func (t *StructuredTable) CaptionText() string { return t.Caption }

// tablePage tracks whether a StructuredTable's backing page has been fixed
// yet.
type tablePage struct {
	set bool
}

// WalkStructTree performs a depth-first walk of root's /K tree, collecting
// one StructuredTable per node tagged /S /Table (case-insensitively),
// recursion guarded against indirect-reference cycles.
func WalkStructTree(root *parser.Dictionary, reader *parser.Reader) []*StructuredTable {
	if root == nil {
		return nil
	}
	fontCache := NewFontCache()
	defer fontCache.Reset()

	var out []*StructuredTable
	visited := make(map[int]bool)
	walkChildren(root.Get("K"), reader, visited, fontCache, &out)
	return out
}

func walkChildren(childrenObj parser.PdfObject, reader *parser.Reader, visited map[int]bool, fc *FontCache, out *[]*StructuredTable) {
	for _, child := range rawSlice(childrenObj) {
		processNode(child, reader, visited, fc, out)
	}
}

func processNode(obj parser.PdfObject, reader *parser.Reader, visited map[int]bool, fc *FontCache, out *[]*StructuredTable) {
	if obj == nil {
		return
	}
	// Bare integers at this level are bare MCIDs with no tag - ignored.
	if _, ok := obj.(*parser.Integer); ok {
		return
	}

	if ref, ok := obj.(*parser.IndirectReference); ok {
		if visited[ref.ObjNum] {
			return
		}
		visited[ref.ObjNum] = true
	}

	dict, ok := reader.Resolve(obj).(*parser.Dictionary)
	if !ok {
		return
	}

	if s := dict.GetName("S"); s != nil && strings.EqualFold(s.Value(), "Table") {
		*out = append(*out, buildStructuredTable(dict, reader, fc))
		return
	}

	if k := dict.Get("K"); k != nil {
		walkChildren(k, reader, visited, fc, out)
	}
}

func buildStructuredTable(tableDict *parser.Dictionary, reader *parser.Reader, fc *FontCache) *StructuredTable {
	st := &StructuredTable{MCIDMap: make(map[int]string)}
	page := &tablePage{}

	for _, rowObj := range asSlice(tableDict.Get("K"), reader) {
		rowDict, ok := reader.Resolve(rowObj).(*parser.Dictionary)
		if !ok {
			continue
		}

		if !page.set {
			page.set = trySetTablePage(st, rowDict, reader, fc)
		}

		typ := rowDict.GetName("S")
		if typ == nil {
			continue
		}
		switch strings.ToLower(typ.Value()) {
		case "tr":
			st.Rows = append(st.Rows, processRow(rowDict.Get("K"), reader, page, fc, st))
		case "caption":
			if k := rowDict.Get("K"); k != nil {
				if i, ok := k.(*parser.Integer); ok {
					v := int(i.Value())
					st.captionMCID = &v
				}
			}
		}
	}
	if st.captionMCID != nil {
		st.Caption = st.MCIDMap[*st.captionMCID]
	}
	return st
}

func processRow(kObj parser.PdfObject, reader *parser.Reader, page *tablePage, fc *FontCache, st *StructuredTable) []CellRef {
	var row []CellRef
	for _, tdObj := range asSlice(kObj, reader) {
		row = append(row, processTD(tdObj, reader, page, fc, st))
	}
	return row
}

func processTD(tdObj parser.PdfObject, reader *parser.Reader, page *tablePage, fc *FontCache, st *StructuredTable) CellRef {
	tdDict, ok := reader.Resolve(tdObj).(*parser.Dictionary)
	if !ok {
		return nil
	}

	if !page.set {
		page.set = trySetTablePage(st, tdDict, reader, fc)
	}

	var cell CellRef
	for _, child := range asSlice(tdDict.Get("K"), reader) {
		cell = append(cell, processTDText(child, reader)...)
	}
	return cell
}

// processTDText resolves one /K entry of a cell down to the MCIDs it names,
// recursing through indirect hops exactly like the reference's
// check_indirect_objects/process_td.
func processTDText(item parser.PdfObject, reader *parser.Reader) []int {
	if item == nil {
		return nil
	}
	if i, ok := item.(*parser.Integer); ok {
		return []int{int(i.Value())}
	}

	dict, ok := reader.Resolve(item).(*parser.Dictionary)
	if !ok {
		return nil
	}
	grandK := dict.Get("K")

	var result []int
	for _, elem := range rawSlice(grandK) {
		if ref, ok := elem.(*parser.IndirectReference); ok {
			resolved, ok := reader.Resolve(ref).(*parser.Dictionary)
			if !ok {
				continue
			}
			for _, c := range asSlice(resolved.Get("K"), reader) {
				result = append(result, processTDText(c, reader)...)
			}
		}
	}
	if len(result) == 0 {
		for _, elem := range asSlice(grandK, reader) {
			if i, ok := elem.(*parser.Integer); ok {
				result = append(result, int(i.Value()))
			}
		}
	}
	return result
}

// trySetTablePage fixes st's backing page the first time a row or cell
// dictionary carries /Pg, then runs the interpreter once over that page's
// content in literal mode, accumulating decoded text per marked-content id.
func trySetTablePage(st *StructuredTable, dict *parser.Dictionary, reader *parser.Reader, fc *FontCache) bool {
	pgObj := dict.Get("Pg")
	if pgObj == nil {
		return false
	}
	pgDict, ok := reader.Resolve(pgObj).(*parser.Dictionary)
	if !ok {
		return false
	}

	pageObjNum := 0
	if ref, ok := pgObj.(*parser.IndirectReference); ok {
		pageObjNum = ref.ObjNum
	}

	fontSet := fc.ProcessFonts(pageObjNum, pgDict, reader)

	data, err := reader.GetPageContent(pgDict)
	if err != nil {
		logging.Logger().Debug("structured walker: failed to read page content", slog.Any("err", err))
		return true
	}

	interp := NewInterpreter(ModeLiteral, fontSet)
	interp.Run(parser.TokenizeContentStream(data), func(ev TextEvent) {
		if ev.MCID == nil {
			return
		}
		st.MCIDMap[*ev.MCID] += ev.Text
	})
	return true
}

// rawSlice returns obj's array elements without resolving obj itself, or a
// single-element slice of obj if it isn't a direct *Array. Used where the
// caller needs to distinguish an indirect-reference element from an
// already-resolved one (processTDText's check_indirect_objects analogue).
func rawSlice(obj parser.PdfObject) []parser.PdfObject {
	if obj == nil {
		return nil
	}
	if arr, ok := obj.(*parser.Array); ok {
		items := make([]parser.PdfObject, arr.Len())
		for i := range items {
			items[i] = arr.Get(i)
		}
		return items
	}
	return []parser.PdfObject{obj}
}

// asSlice resolves obj (following one indirect hop) and returns its array
// elements, or a single-element slice of the original obj if the resolved
// value isn't an array.
func asSlice(obj parser.PdfObject, reader *parser.Reader) []parser.PdfObject {
	if obj == nil {
		return nil
	}
	if arr, ok := reader.Resolve(obj).(*parser.Array); ok {
		items := make([]parser.PdfObject, arr.Len())
		for i := range items {
			items[i] = arr.Get(i)
		}
		return items
	}
	return []parser.PdfObject{obj}
}

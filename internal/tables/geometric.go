package tables

import (
	"fmt"
	"io"
	"os"

	"github.com/notsnake/pdftables/internal/parser"
)

// Cell is one piece of text placed at a geometric position within a table.
type Cell struct {
	X, Y float64
	Text string
}

// Row is all cells sharing one exact Y coordinate, in insertion order.
type Row struct {
	Y     float64
	Cells []Cell
}

// GeometricTable is a table reconstructed purely from rectangle and text
// positions drawn on a page, with no tagged structure to guide it.
//
// RowOrder is bookkeeping this repository adds (Design Note, Data Model
// section 3): the reference keeps rows in a language-native ordered dict;
// Go's map has no such guarantee, so row insertion order is tracked
// alongside the map.
type GeometricTable struct {
	MinX, MinY, MaxX, MaxY float64
	Rows                   map[float64]*Row
	RowOrder               []float64
}

func newGeometricTable(x, y, x2, y2 float64) *GeometricTable {
	return &GeometricTable{MinX: x, MinY: y, MaxX: x2, MaxY: y2, Rows: make(map[float64]*Row)}
}

// getRow returns the row at y, creating it (and recording it in RowOrder)
// on first use.
func (t *GeometricTable) getRow(y float64) *Row {
	if r, ok := t.Rows[y]; ok {
		return r
	}
	r := &Row{Y: y}
	t.Rows[y] = r
	t.RowOrder = append(t.RowOrder, y)
	return r
}

// checkCoords tests whether rect (expressed as x, y, width, height) belongs
// to this table. Faithfully reproduces the reference's coordinate check
// (Design Note 9.7): it compares this table's own MinX/MaxX bounds against
// the incoming rectangle's X, not the rectangle's own MaxX - so a
// wide incoming rectangle is matched on its left edge alone. On a match,
// MinY is lowered to the incoming rect's Y.
func (t *GeometricTable) checkCoords(x, y, width, height float64) bool {
	if t.MinX <= x && x <= t.MaxX && t.MinY <= y+height && y+height <= t.MaxY {
		t.MinY = y
		return true
	}
	return false
}

// GetData returns one []string per row, in RowOrder, one string per cell in
// insertion order.
func (t *GeometricTable) GetData() [][]string {
	data := make([][]string, 0, len(t.RowOrder))
	for _, y := range t.RowOrder {
		row := t.Rows[y]
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, c.Text)
		}
		data = append(data, cells)
	}
	return data
}

// Show writes the table in the reference's "cell|cell|..." per-row layout.
func (t *GeometricTable) Show(w io.Writer) {
	for _, row := range t.GetData() {
		for _, cell := range row {
			fmt.Fprint(w, cell)
			fmt.Fprint(w, "|")
		}
		fmt.Fprintln(w)
	}
}

// ShowStdout is Show wrapping os.Stdout.
func (t *GeometricTable) ShowStdout() { t.Show(os.Stdout) }

// geometricContainer finds-or-creates the table a drawn rectangle belongs
// to, preserving discovery order across a page (and, since ReconstructGeometric
// is called once per page by the caller, across the whole document when the
// caller accumulates results page by page).
type geometricContainer struct {
	tables []*GeometricTable
}

func (c *geometricContainer) tableFor(rect Rectangle) *GeometricTable {
	for _, t := range c.tables {
		if t.checkCoords(rect.X, rect.Y, rect.Width, rect.Height) {
			return t
		}
	}
	t := newGeometricTable(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height)
	c.tables = append(c.tables, t)
	return t
}

// ReconstructGeometric walks a page's tokenized content stream in hex mode,
// grouping drawn text into tables by their enclosing rectangle and into
// rows by exact Y coordinate.
func ReconstructGeometric(ops []parser.ContentOp, fontSet *FontSet) []*GeometricTable {
	container := &geometricContainer{}
	interp := NewInterpreter(ModeHex, fontSet)

	interp.Run(ops, func(ev TextEvent) {
		if ev.Text == "" || ev.Rect == nil || ev.X == nil || ev.Y == nil {
			return
		}
		table := container.tableFor(*ev.Rect)
		row := table.getRow(*ev.Y)
		row.Cells = append(row.Cells, Cell{X: *ev.X, Y: *ev.Y, Text: ev.Text})
	})

	return container.tables
}

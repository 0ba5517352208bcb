// Package pdftables finds and extracts tables from PDF documents, favoring
// a document's tagged structure tree when present and falling back to a
// geometric reconstruction from drawn rectangles and text positions when
// it isn't.
package pdftables

import (
	"context"
	"fmt"
	"io"

	"github.com/notsnake/pdftables/internal/parser"
	"github.com/notsnake/pdftables/internal/tables"
)

// Document represents an opened PDF document. It must be closed after use
// to release the underlying file handle.
//
// Example:
//
//	doc, err := pdftables.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
//	tables, err := pdftables.SearchTables(doc)
type Document struct {
	reader *parser.Reader
	ctx    context.Context
	path   string
}

// Open reads and parses the PDF at path.
func Open(path string) (*Document, error) {
	return OpenContext(context.Background(), path)
}

// OpenContext is Open accepting a context, following the teacher's
// convention of threading context.Context through file-I/O entry points
// even though no suspension point inside extraction itself honors
// cancellation (section 5 of the design).
func OpenContext(ctx context.Context, path string) (*Document, error) {
	reader, err := parser.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdftables: failed to open document: %w", err)
	}
	return &Document{reader: reader, ctx: ctx, path: path}, nil
}

// Close releases the document's file handle. Safe to call more than once.
func (d *Document) Close() error {
	if d.reader == nil {
		return nil
	}
	return d.reader.Close()
}

// Path returns the file path the document was opened from.
func (d *Document) Path() string { return d.path }

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	count, err := d.reader.GetPageCount()
	if err != nil {
		return 0
	}
	return count
}

// DocumentInfo mirrors the trailer's /Info dictionary plus a couple of
// structural facts (page count, source path) useful for reporting.
type DocumentInfo struct {
	PageCount int
	Path      string
	Version   string
	Title     string
	Author    string
	Subject   string
	Keywords  string
	Creator   string
	Producer  string
	Encrypted bool
}

// Info returns the document's metadata.
func (d *Document) Info() *DocumentInfo {
	pinfo := d.reader.GetDocumentInfo()
	return &DocumentInfo{
		PageCount: d.PageCount(),
		Path:      d.path,
		Version:   pinfo.Version,
		Title:     pinfo.Title,
		Author:    pinfo.Author,
		Subject:   pinfo.Subject,
		Keywords:  pinfo.Keywords,
		Creator:   pinfo.Creator,
		Producer:  pinfo.Producer,
		Encrypted: pinfo.Encrypted,
	}
}

// hasStructTree reports whether the document's catalog carries a
// /StructTreeRoot, the signal SearchTables uses to pick structured
// (tagged) extraction over geometric reconstruction.
func (d *Document) hasStructTree() (*parser.Dictionary, bool) {
	catalog := d.reader.GetCatalog()
	if catalog == nil {
		return nil, false
	}
	root, ok := d.reader.Resolve(catalog.Get("StructTreeRoot")).(*parser.Dictionary)
	return root, ok
}

// Table is implemented by both structured (tagged) and geometric table
// results.
type Table interface {
	// GetData returns the table's rows, each a []string of cell text.
	GetData() [][]string
	// Show writes the table to w in a human-readable layout.
	Show(w io.Writer)
	// ShowStdout is Show wrapping os.Stdout.
	ShowStdout()
}

// SearchTables finds every table in doc. When the document carries a
// /StructTreeRoot, tables are built from the tagged structure tree, in
// tree-walk order; otherwise, tables are reconstructed geometrically, page
// by page in page order.
//
// The returned error is non-nil only for failures in reading the document
// itself (this is never raised by the table-building phase: malformed or
// partial tag/geometry data degrades to empty cells, never an error).
func SearchTables(doc *Document) ([]Table, error) {
	if root, ok := doc.hasStructTree(); ok {
		structured := tables.WalkStructTree(root, doc.reader)
		out := make([]Table, len(structured))
		for i, t := range structured {
			out[i] = t
		}
		return out, nil
	}

	pageCount, err := doc.reader.GetPageCount()
	if err != nil {
		return nil, fmt.Errorf("pdftables: failed to read page count: %w", err)
	}

	fontCache := tables.NewFontCache()
	defer fontCache.Reset()

	var out []Table
	for i := 0; i < pageCount; i++ {
		page, err := doc.reader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("pdftables: failed to read page %d: %w", i, err)
		}

		pageObjNum, _ := doc.reader.GetPageObjNum(i)
		fontSet := fontCache.ProcessFonts(pageObjNum, page, doc.reader)

		data, err := doc.reader.GetPageContent(page)
		if err != nil {
			return nil, fmt.Errorf("pdftables: failed to read page %d content: %w", i, err)
		}

		ops := parser.TokenizeContentStream(data)
		for _, t := range tables.ReconstructGeometric(ops, fontSet) {
			out = append(out, t)
		}
	}
	return out, nil
}

package parser

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/notsnake/pdftables/logging"
)

const maxXRefChainDepth = 100

// Reader is a whole-file PDF reader: it locates and follows the
// cross-reference chain, resolves indirect objects (including those packed
// into PDF 1.5+ object streams), and exposes the page tree and document
// catalog.
//
// Reader is safe for concurrent reads once Open has returned; population of
// its internal object cache is guarded by a mutex.
//
// Reference: PDF 1.7 specification, Section 7.5 (File Structure).
type Reader struct {
	mu sync.RWMutex

	file *os.File
	data []byte

	xref    *XRefTable
	cache   map[int]PdfObject
	objStms map[int]map[int]PdfObject // objStm object num -> (contained obj num -> object)

	catalog *Dictionary
	pageIDs []int // object numbers of page dicts, in document order
}

// Open reads path fully into memory and parses its cross-reference chain
// and catalog. The returned Reader must be closed with Close.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdftables: failed to open %q: %w", path, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("pdftables: failed to read %q: %w", path, err)
	}

	r := &Reader{
		file:    f,
		data:    data,
		cache:   make(map[int]PdfObject),
		objStms: make(map[int]map[int]PdfObject),
	}

	if err := r.readHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := r.loadXRefChain(); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := r.loadCatalog(); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := r.loadPageTree(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return r, nil
}

// Close releases the underlying file handle. Safe to call more than once.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Reader) readHeader() error {
	limit := 1024
	if len(r.data) < limit {
		limit = len(r.data)
	}
	if !bytes.Contains(r.data[:limit], []byte("%PDF-")) {
		return fmt.Errorf("pdftables: not a PDF file (missing %%PDF- header)")
	}
	return nil
}

// findStartXRef searches the tail of the file for "startxref\n<offset>".
func (r *Reader) findStartXRef() (int64, error) {
	tail := 2048
	if len(r.data) < tail {
		tail = len(r.data)
	}
	chunk := r.data[len(r.data)-tail:]

	idx := bytes.LastIndex(chunk, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("pdftables: startxref not found")
	}

	p := NewParser(bytes.NewReader(chunk[idx:]))
	off, err := p.ParseStartXRef()
	if err != nil {
		return 0, fmt.Errorf("pdftables: failed to parse startxref: %w", err)
	}
	return off, nil
}

// loadXRefChain follows the /Prev chain (classic tables and/or xref
// streams), merging older sections under newer ones, with cycle protection.
func (r *Reader) loadXRefChain() error {
	offset, err := r.findStartXRef()
	if err != nil {
		return err
	}

	merged := NewXRefTable()
	visited := make(map[int64]bool)
	depth := 0

	for offset != 0 {
		if visited[offset] {
			logging.Logger().Debug("xref chain cycle detected, stopping", slog.Int64("offset", offset))
			break
		}
		if depth >= maxXRefChainDepth {
			logging.Logger().Debug("xref chain exceeded max depth", slog.Int("depth", depth))
			break
		}
		visited[offset] = true
		depth++

		if offset < 0 || int(offset) >= len(r.data) {
			return fmt.Errorf("pdftables: xref offset %d out of range", offset)
		}

		section, prev, xrefStmOffset, err := r.parseXRefSection(offset)
		if err != nil {
			return err
		}

		if depth == 1 {
			merged = section
		} else {
			merged.MergeOlder(section)
		}

		if xrefStmOffset != 0 && !visited[xrefStmOffset] {
			hybrid, _, _, herr := r.parseXRefSection(xrefStmOffset)
			if herr == nil {
				merged.MergeOlder(hybrid)
			}
			visited[xrefStmOffset] = true
		}

		offset = prev
	}

	r.xref = merged
	return nil
}

// parseXRefSection parses one xref section (table or stream) at offset and
// returns it along with its /Prev offset and, for hybrid files, /XRefStm.
func (r *Reader) parseXRefSection(offset int64) (section *XRefTable, prev int64, xrefStm int64, err error) {
	p := NewParser(bytes.NewReader(r.data[offset:]))
	section, err = p.ParseXRef()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("pdftables: failed to parse xref section at %d: %w", offset, err)
	}

	trailer := section.GetTrailer()
	if trailer != nil {
		prev = trailer.GetInteger("Prev")
		xrefStm = trailer.GetInteger("XRefStm")
	}
	return section, prev, xrefStm, nil
}

func (r *Reader) loadCatalog() error {
	trailer := r.xref.GetTrailer()
	if trailer == nil {
		return fmt.Errorf("pdftables: missing trailer dictionary")
	}
	rootRef := trailer.Get("Root")
	if rootRef == nil {
		return fmt.Errorf("pdftables: trailer missing /Root")
	}
	obj := r.Resolve(rootRef)
	catalog, ok := obj.(*Dictionary)
	if !ok {
		return fmt.Errorf("pdftables: /Root is not a dictionary")
	}
	if typ := catalog.GetName("Type"); typ == nil || typ.Value() != "Catalog" {
		logging.Logger().Debug("catalog dictionary missing /Type /Catalog, proceeding anyway")
	}
	r.catalog = catalog
	return nil
}

// loadPageTree walks /Pages recursively (depth-first, respecting /Kids
// order) collecting leaf /Page object numbers in document order.
func (r *Reader) loadPageTree() error {
	pagesRef := r.catalog.Get("Pages")
	if pagesRef == nil {
		return fmt.Errorf("pdftables: catalog missing /Pages")
	}
	visited := make(map[int]bool)
	return r.walkPageTree(pagesRef, visited)
}

func (r *Reader) walkPageTree(ref PdfObject, visited map[int]bool) error {
	if indRef, ok := ref.(*IndirectReference); ok {
		if visited[indRef.ObjNum] {
			return nil
		}
		visited[indRef.ObjNum] = true
	}

	node, ok := r.Resolve(ref).(*Dictionary)
	if !ok {
		return nil
	}

	if typ := node.GetName("Type"); typ != nil && typ.Value() == "Page" {
		if indRef, ok := ref.(*IndirectReference); ok {
			r.pageIDs = append(r.pageIDs, indRef.ObjNum)
		}
		return nil
	}

	kidsObj := node.Get("Kids")
	if kidsObj == nil {
		return nil
	}
	kids, ok := r.Resolve(kidsObj).(*Array)
	if !ok {
		return nil
	}
	for _, kid := range kids.Items {
		if err := r.walkPageTree(kid, visited); err != nil {
			return err
		}
	}
	return nil
}

// Resolve follows an indirect reference to its concrete object. Non-ref
// objects are returned unchanged. Unresolvable references yield nil.
func (r *Reader) Resolve(obj PdfObject) PdfObject {
	ref, ok := obj.(*IndirectReference)
	if !ok {
		return obj
	}
	resolved, err := r.GetObject(ref.ObjNum)
	if err != nil {
		logging.Logger().Debug("failed to resolve indirect reference", logging.ObjAttr(ref.ObjNum), slog.Any("err", err))
		return nil
	}
	return resolved
}

// ResolveReferences is an alias of Resolve.
func (r *Reader) ResolveReferences(obj PdfObject) PdfObject { return r.Resolve(obj) }

// GetObject returns the object stored at objNum, from cache, the classic
// xref table, or a decompressed object stream.
func (r *Reader) GetObject(objNum int) (PdfObject, error) {
	r.mu.RLock()
	if obj, ok := r.cache[objNum]; ok {
		r.mu.RUnlock()
		return obj, nil
	}
	r.mu.RUnlock()

	entry, ok := r.xref.GetEntry(objNum)
	if !ok {
		return nil, fmt.Errorf("pdftables: object %d not found in xref table", objNum)
	}

	var obj PdfObject
	var err error
	switch entry.Type {
	case XRefEntryInUse:
		obj, err = r.readInUseObject(entry)
	case XRefEntryCompressed:
		obj, err = r.readCompressedObject(entry)
	case XRefEntryFree:
		return nil, fmt.Errorf("pdftables: object %d is free", objNum)
	default:
		return nil, fmt.Errorf("pdftables: object %d has unknown xref entry type", objNum)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[objNum] = obj
	r.mu.Unlock()
	return obj, nil
}

func (r *Reader) readInUseObject(entry *XRefEntry) (PdfObject, error) {
	if entry.Offset < 0 || int(entry.Offset) >= len(r.data) {
		return nil, fmt.Errorf("pdftables: object offset %d out of range", entry.Offset)
	}
	p := NewParser(bytes.NewReader(r.data[entry.Offset:]))
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("pdftables: failed to parse object %d at offset %d: %w", entry.ObjectNum, entry.Offset, err)
	}
	return ind.Object, nil
}

func (r *Reader) readCompressedObject(entry *XRefEntry) (PdfObject, error) {
	// For compressed entries, XRefEntry.Offset carries the containing
	// ObjStm's object number, mirroring the /W-array layout of an xref
	// stream's type-2 rows (see parseXRefStreamEntries in xref.go).
	streamObjNum := int(entry.Offset)

	r.mu.RLock()
	objs, ok := r.objStms[streamObjNum]
	r.mu.RUnlock()
	if ok {
		if obj, ok := objs[entry.ObjectNum]; ok {
			return obj, nil
		}
		return nil, fmt.Errorf("pdftables: object %d not present in object stream %d", entry.ObjectNum, streamObjNum)
	}

	streamObj, err := r.GetObject(streamObjNum)
	if err != nil {
		return nil, fmt.Errorf("pdftables: failed to load object stream %d: %w", streamObjNum, err)
	}
	stream, ok := streamObj.(*Stream)
	if !ok {
		return nil, fmt.Errorf("pdftables: object %d is not a stream", streamObjNum)
	}

	decoded, err := r.GetStreamData(stream)
	if err != nil {
		return nil, fmt.Errorf("pdftables: failed to decode object stream %d: %w", streamObjNum, err)
	}

	n := int(stream.Dict.GetInteger("N"))
	first := int(stream.Dict.GetInteger("First"))

	p := NewParser(bytes.NewReader(nil))
	parsed, err := p.ParseObjectStream(decoded, n, first)
	if err != nil {
		return nil, fmt.Errorf("pdftables: failed to parse object stream %d: %w", streamObjNum, err)
	}

	r.mu.Lock()
	r.objStms[streamObjNum] = parsed
	r.mu.Unlock()

	obj, ok := parsed[entry.ObjectNum]
	if !ok {
		return nil, fmt.Errorf("pdftables: object %d not present in object stream %d", entry.ObjectNum, streamObjNum)
	}
	return obj, nil
}

// GetStreamData decodes a stream's raw bytes according to its /Filter.
// Only FlateDecode is supported - the only filter the extraction core ever
// needs, since content streams, CMaps, and object streams all use it in
// practice. An unsupported filter returns an error; a stream with no
// filter is returned as-is.
func (r *Reader) GetStreamData(s *Stream) ([]byte, error) {
	filter := ""
	if n := s.Dict.GetName("Filter"); n != nil {
		filter = n.Value()
	} else if arr := s.Dict.Get("Filter"); arr != nil {
		if a, ok := r.Resolve(arr).(*Array); ok && a.Len() > 0 {
			if n, ok := a.Get(0).(*Name); ok {
				filter = n.Value()
			}
		}
	}

	switch filter {
	case "":
		return s.Raw, nil
	case "FlateDecode", "Fl":
		d := &flateDecoder{}
		return d.Decode(s.Raw)
	default:
		return nil, fmt.Errorf("pdftables: unsupported stream filter %q", filter)
	}
}

// GetCatalog returns the document's /Root catalog dictionary.
func (r *Reader) GetCatalog() *Dictionary { return r.catalog }

// GetTrailer returns the (merged) trailer dictionary.
func (r *Reader) GetTrailer() *Dictionary {
	if r.xref == nil {
		return nil
	}
	return r.xref.GetTrailer()
}

// GetPageCount returns the number of pages found during page-tree load.
func (r *Reader) GetPageCount() (int, error) {
	return len(r.pageIDs), nil
}

// GetPage returns the page dictionary at the given 0-based index.
func (r *Reader) GetPage(index int) (*Dictionary, error) {
	if index < 0 || index >= len(r.pageIDs) {
		return nil, fmt.Errorf("pdftables: page index %d out of range (0-%d)", index, len(r.pageIDs)-1)
	}
	obj, err := r.GetObject(r.pageIDs[index])
	if err != nil {
		return nil, fmt.Errorf("pdftables: failed to load page %d: %w", index, err)
	}
	page, ok := obj.(*Dictionary)
	if !ok {
		return nil, fmt.Errorf("pdftables: page %d object is not a dictionary", index)
	}
	return page, nil
}

// GetPageObjNum returns the indirect object number backing page index,
// used by the font-cache (keyed by page object id, per the core's data
// model) and by the structured walker when it fixes a table's page via /Pg.
func (r *Reader) GetPageObjNum(index int) (int, error) {
	if index < 0 || index >= len(r.pageIDs) {
		return 0, fmt.Errorf("pdftables: page index %d out of range (0-%d)", index, len(r.pageIDs)-1)
	}
	return r.pageIDs[index], nil
}

// GetInheritedResources returns page's /Resources, walking up through
// /Parent links if the page itself doesn't declare one.
func (r *Reader) GetInheritedResources(page *Dictionary) *Dictionary {
	current := page
	visited := make(map[*Dictionary]bool)
	for current != nil && !visited[current] {
		visited[current] = true
		if res := current.Get("Resources"); res != nil {
			if d, ok := r.Resolve(res).(*Dictionary); ok {
				return d
			}
		}
		parentObj := current.Get("Parent")
		if parentObj == nil {
			break
		}
		current, _ = r.Resolve(parentObj).(*Dictionary)
	}
	return nil
}

// GetPageContent returns the fully decoded, concatenated content stream
// bytes for page (handling both a single Contents stream and an array of
// streams, per PDF 1.7 Section 7.8.2).
func (r *Reader) GetPageContent(page *Dictionary) ([]byte, error) {
	contentsObj := page.Get("Contents")
	if contentsObj == nil {
		return nil, nil
	}
	resolved := r.Resolve(contentsObj)

	switch c := resolved.(type) {
	case *Stream:
		return r.GetStreamData(c)
	case *Array:
		var buf bytes.Buffer
		for i, item := range c.Items {
			s, ok := r.Resolve(item).(*Stream)
			if !ok {
				continue
			}
			data, err := r.GetStreamData(s)
			if err != nil {
				return nil, fmt.Errorf("pdftables: failed to decode content stream %d: %w", i, err)
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("pdftables: /Contents is neither a stream nor an array")
	}
}

// DocInfo holds document metadata pulled from the trailer's /Info dict.
type DocInfo struct {
	Title, Author, Subject, Keywords, Creator, Producer string
	Version                                             string
	Encrypted                                            bool
}

// GetDocumentInfo reads the trailer's /Info dictionary, if present.
func (r *Reader) GetDocumentInfo() *DocInfo {
	info := &DocInfo{Version: "1.7"}
	trailer := r.GetTrailer()
	if trailer == nil {
		return info
	}
	if trailer.Get("Encrypt") != nil {
		info.Encrypted = true
	}
	infoObj := trailer.Get("Info")
	if infoObj == nil {
		return info
	}
	dict, ok := r.Resolve(infoObj).(*Dictionary)
	if !ok {
		return info
	}
	info.Title = dict.GetString("Title")
	info.Author = dict.GetString("Author")
	info.Subject = dict.GetString("Subject")
	info.Keywords = dict.GetString("Keywords")
	info.Creator = dict.GetString("Creator")
	info.Producer = dict.GetString("Producer")
	return info
}

// sortedPageIDs gives tests a deterministic view of page object numbers
// without depending on map iteration order anywhere upstream.
func (r *Reader) sortedPageIDs() []int {
	out := append([]int(nil), r.pageIDs...)
	sort.Ints(out)
	return out
}

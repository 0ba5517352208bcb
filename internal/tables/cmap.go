// Package tables implements the table-extraction core: CMap decoding, a
// per-page font cache, a content-stream interpreter, and the two table
// reconstruction strategies (structure-tree driven and geometric).
package tables

// CMap maps hex-encoded byte keys of a fixed width to decoded Unicode
// strings. The key width is fixed by whichever key is inserted first;
// callers (DecodeText) always slice lookup keys to KeyLen so later inserts
// of a different width are simply never found - matching a font's
// ToUnicode stream, where every bfchar/bfrange entry shares one byte width.
type CMap struct {
	keyLen int
	table  map[string]string
}

// NewCMap returns an empty CMap.
func NewCMap() *CMap {
	return &CMap{table: make(map[string]string)}
}

// Insert records hexKey -> value. The first call fixes KeyLen; later calls
// with a different-length key are still stored, they just won't be found by
// a Lookup sliced to the original width.
func (c *CMap) Insert(hexKey, value string) {
	if c.keyLen == 0 && len(hexKey) > 0 {
		c.keyLen = len(hexKey)
	}
	c.table[hexKey] = value
}

// Lookup returns the decoded string for hexKey, if present.
func (c *CMap) Lookup(hexKey string) (string, bool) {
	v, ok := c.table[hexKey]
	return v, ok
}

// KeyLen returns the fixed hex-key width, or 0 if nothing has been inserted.
func (c *CMap) KeyLen() int { return c.keyLen }

// Len returns the number of entries.
func (c *CMap) Len() int { return len(c.table) }

// FontSet is a page-scoped mapping from font resource name (e.g. "F1",
// without the leading slash) to the CMap decoded from its /ToUnicode
// stream.
type FontSet struct {
	Fonts map[string]*CMap
}

// NewFontSet returns an empty FontSet.
func NewFontSet() *FontSet {
	return &FontSet{Fonts: make(map[string]*CMap)}
}

// Get returns the CMap for a font resource name, or nil if none was cached
// (font missing, or present but carrying no usable /ToUnicode).
func (fs *FontSet) Get(name string) *CMap {
	if fs == nil {
		return nil
	}
	return fs.Fonts[name]
}

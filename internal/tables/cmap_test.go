package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCMap_InsertLookup(t *testing.T) {
	cmap := NewCMap()
	cmap.Insert("0041", "A")
	cmap.Insert("0042", "B")

	v, ok := cmap.Lookup("0041")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	v, ok = cmap.Lookup("0042")
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	_, ok = cmap.Lookup("0043")
	assert.False(t, ok)
}

func TestCMap_KeyLenFixedByFirstInsert(t *testing.T) {
	cmap := NewCMap()
	assert.Equal(t, 0, cmap.KeyLen())

	cmap.Insert("0041", "A")
	assert.Equal(t, 4, cmap.KeyLen())

	// A later, differently-sized key is still stored...
	cmap.Insert("41", "Z")
	assert.Equal(t, 2, cmap.Len())
	// ...but KeyLen doesn't change, so a lookup sliced to the original
	// width still finds only the first-width entries.
	assert.Equal(t, 4, cmap.KeyLen())
}

func TestFontSet_Get(t *testing.T) {
	fs := NewFontSet()
	cmap := NewCMap()
	cmap.Insert("0041", "A")
	fs.Fonts["F1"] = cmap

	assert.Same(t, cmap, fs.Get("F1"))
	assert.Nil(t, fs.Get("F2"))
}

func TestFontSet_Get_NilReceiver(t *testing.T) {
	var fs *FontSet
	assert.Nil(t, fs.Get("F1"))
}

package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeText_Literal_PassesThroughVerbatim(t *testing.T) {
	out := DecodeText([]byte("Hello"), true, nil)
	assert.Equal(t, "Hello", out)
}

func TestDecodeText_Literal_IgnoresActiveCMap(t *testing.T) {
	cmap := NewCMap()
	cmap.Insert("4865", "nope")
	out := DecodeText([]byte("He"), true, cmap)
	assert.Equal(t, "He", out)
}

func TestDecodeText_NonLiteral_DecodesThroughCMap(t *testing.T) {
	cmap := NewCMap()
	cmap.Insert("0041", "A")
	cmap.Insert("0042", "B")

	// Two 2-byte codes: 0x00 0x41 ("A"), 0x00 0x42 ("B").
	out := DecodeText([]byte{0x00, 0x41, 0x00, 0x42}, false, cmap)
	assert.Equal(t, "AB", out)
}

func TestDecodeText_NonLiteral_DropsUnmatchedChunks(t *testing.T) {
	cmap := NewCMap()
	cmap.Insert("0041", "A")

	out := DecodeText([]byte{0x00, 0x41, 0x00, 0x99}, false, cmap)
	assert.Equal(t, "A", out)
}

func TestDecodeText_NonLiteral_NilCMapFallsBackToWidthOneAndDropsAll(t *testing.T) {
	out := DecodeText([]byte{0x41, 0x42}, false, nil)
	assert.Equal(t, "", out)
}

func TestDecodeText_NonLiteral_EmptyCMapFallsBackToWidthOne(t *testing.T) {
	cmap := NewCMap()
	out := DecodeText([]byte{0x41, 0x42}, false, cmap)
	assert.Equal(t, "", out)
}

func TestDecodeText_NonLiteral_TrailingPartialChunkIsIgnored(t *testing.T) {
	cmap := NewCMap()
	cmap.Insert("0041", "A")

	// Three raw bytes hex-encode to 6 hex chars; with keyLen 4 only the
	// first chunk fits, the trailing 2 hex chars are dropped.
	out := DecodeText([]byte{0x00, 0x41, 0xFF}, false, cmap)
	assert.Equal(t, "A", out)
}

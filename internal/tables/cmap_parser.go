package tables

import (
	"bytes"
	"encoding/hex"
	"unicode/utf16"

	"github.com/notsnake/pdftables/internal/parser"
)

// ParseToUnicodeStream builds a CMap from the tokenized operand/operator
// stream of a font's /ToUnicode CMap program. Only the two operators that
// carry character mappings are consulted; everything else (codespace
// ranges, CMap header boilerplate) is irrelevant to decoding and ignored.
// A malformed or truncated stream simply yields whatever was accumulated
// before the parse gave out - this never panics and never reports failure
// up to the font cache.
func ParseToUnicodeStream(ops []parser.ContentOp) *CMap {
	cmap := NewCMap()
	for _, op := range ops {
		switch op.Operator {
		case "endbfchar":
			parseBFChar(cmap, op.Operands)
		case "endbfrange":
			parseBFRange(cmap, op.Operands)
		}
	}
	return cmap
}

// parseBFChar consumes operands in (srcCode, dstCode) pairs.
func parseBFChar(cmap *CMap, operands []parser.PdfObject) {
	for i := 0; i+1 < len(operands); i += 2 {
		src, ok := operandBytes(operands[i])
		if !ok {
			continue
		}
		dst, ok := operandBytes(operands[i+1])
		if !ok {
			continue
		}
		cmap.Insert(hex.EncodeToString(src), convert(dst))
	}
}

// parseBFRange consumes operands in (lo, hi, startDst) triples.
//
// The simple inline-mapping form is handled (startDst is a single string);
// the array form of bfrange (a destination list, one entry per source code)
// is not produced by the fonts this core ever meets in practice and is
// skipped rather than misparsed.
func parseBFRange(cmap *CMap, operands []parser.PdfObject) {
	for i := 0; i+2 < len(operands); i += 3 {
		lo, ok1 := operandBytes(operands[i])
		hi, ok2 := operandBytes(operands[i+1])
		dst, ok3 := operandBytes(operands[i+2])
		if !ok1 || !ok2 || !ok3 {
			continue
		}

		value := convert(dst)
		cmap.Insert(hex.EncodeToString(lo), value)

		// Range-expansion: only sensible when lo/hi are single bytes and
		// differ, and the destination decoded to at least one rune. This
		// reproduces the reference implementation's bug exactly (Design
		// Note 9.3): the expanded keys are character-valued, not the
		// hex-byte keys every other CMap entry uses, so they can never be
		// found by DecodeText's hex-sliced lookup. Kept bug-for-bug.
		if bytes.Equal(lo, hi) || len(lo) == 0 || len(hi) == 0 || len(value) == 0 {
			continue
		}
		runes := []rune(value)
		v := runes[0]
		start := int(lo[0])
		end := int(hi[0])
		for c := start + 1; c <= end; c++ {
			v++
			cmap.Insert(string(rune(c)), string(v))
		}
	}
}

// operandBytes returns the raw decoded bytes of a string operand, whether
// it arrived as literal or hex syntax.
func operandBytes(obj parser.PdfObject) ([]byte, bool) {
	s, ok := obj.(*parser.String)
	if !ok {
		return nil, false
	}
	return s.Bytes(), true
}

// convert decodes raw bytes as UTF-16BE, the encoding ToUnicode destination
// strings always use. An odd-length or otherwise undecodable value yields
// the replacement marker "?", matching the reference's except branch.
func convert(raw []byte) string {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return "?"
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	return string(utf16.Decode(units))
}

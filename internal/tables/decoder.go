package tables

import (
	"encoding/hex"
	"strings"
)

// DecodeText turns raw operand bytes into display text.
//
// With literal=true the raw bytes bypass CMap lookup entirely and are
// returned verbatim. The interpreter (component E) never passes true: in
// ModeLiteral it returns a literal text-string operand itself without
// calling DecodeText, and every call it makes uses literal=false. Non-literal (hex/byte
// string) operands are decoded through active, the font's CMap: the raw
// bytes are hex-encoded and sliced into chunks the width of the CMap's
// fixed key length (falling back to width 1 for an empty/nil CMap), each
// chunk looked up independently. A chunk with no entry is dropped, not
// replaced with a placeholder.
func DecodeText(raw []byte, literal bool, active *CMap) string {
	if literal {
		return string(raw)
	}

	keyLen := 1
	if active != nil && active.KeyLen() > 0 {
		keyLen = active.KeyLen()
	}

	encoded := hex.EncodeToString(raw)

	var out strings.Builder
	for i := 0; i+keyLen <= len(encoded); i += keyLen {
		chunk := encoded[i : i+keyLen]
		if active == nil {
			continue
		}
		if v, ok := active.Lookup(chunk); ok {
			out.WriteString(v)
		}
	}
	return out.String()
}

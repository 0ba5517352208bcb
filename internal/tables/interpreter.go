package tables

import "github.com/notsnake/pdftables/internal/parser"

// Mode selects how a literal (parenthesis-syntax) text-string operand is
// handled. It has no effect on byte-string (hex-syntax) operands, which
// always decode through the active font's CMap regardless of mode -
// mirroring the reference converter's text_to_hex flag (see DESIGN.md,
// Open Questions).
type Mode int

const (
	// ModeHex decodes literal text-string operands through the CMap too,
	// used by the geometric reconstructor (4.G).
	ModeHex Mode = iota
	// ModeLiteral passes literal text-string operands through verbatim,
	// used by the structured walker (4.F).
	ModeLiteral
)

// Rectangle is an axis-aligned box, as drawn by a content stream's "re"
// operator: {X, Y, Width, Height}.
type Rectangle struct {
	X, Y, Width, Height float64
}

// TextEvent is one unit of emitted text with the interpreter state active
// at the moment it was produced.
type TextEvent struct {
	Text string
	X, Y *float64
	Rect *Rectangle
	MCID *int
}

// Interpreter walks a tokenized content stream maintaining the small bit of
// state the table reconstructors need: current font, current text
// position, the most recently drawn rectangle, and the current marked
// content id.
type Interpreter struct {
	mode        Mode
	fontSet     *FontSet
	currentFont string

	lastX, lastY float64
	currentRect  *Rectangle
	currentMCID  *int
}

// NewInterpreter returns an interpreter in mode, decoding text operands
// against fontSet (may be nil, in which case no font ever resolves and
// CMap-routed text decodes to "").
func NewInterpreter(mode Mode, fontSet *FontSet) *Interpreter {
	return &Interpreter{mode: mode, fontSet: fontSet}
}

// Run walks ops in order, invoking emit for every TextEvent produced.
func (in *Interpreter) Run(ops []parser.ContentOp, emit func(TextEvent)) {
	for _, op := range ops {
		in.scanMCID(op.Operands)

		switch op.Operator {
		case "Tf":
			if len(op.Operands) > 0 {
				if name, ok := op.Operands[0].(*parser.Name); ok {
					in.currentFont = name.Value()
				}
			}

		case "Tj":
			if len(op.Operands) > 0 {
				if text, ok := in.decodeOperand(op.Operands[0]); ok {
					emit(in.event(text))
				}
			}

		case "TJ":
			if len(op.Operands) > 0 {
				emit(in.event(in.decodeArray(op.Operands[0])))
			}

		case "T*":
			emit(in.event("\n"))

		case "'":
			emit(in.event("\n"))
			if len(op.Operands) > 0 {
				if text, ok := in.decodeOperand(op.Operands[0]); ok {
					emit(in.event(text))
				}
			}

		case `"`:
			if len(op.Operands) >= 3 {
				emit(in.event("\n"))
				if text, ok := in.decodeOperand(op.Operands[2]); ok {
					emit(in.event(text))
				}
			}

		case "Td":
			if len(op.Operands) >= 2 {
				in.lastX = number(op.Operands[0])
				in.lastY = number(op.Operands[1])
			}

		case "cm":
			if len(op.Operands) >= 6 {
				in.lastX = number(op.Operands[4])
				in.lastY = number(op.Operands[5])
			}

		case "re":
			if len(op.Operands) >= 4 {
				rect := Rectangle{
					X:      number(op.Operands[0]),
					Y:      number(op.Operands[1]),
					Width:  number(op.Operands[2]),
					Height: number(op.Operands[3]),
				}
				in.currentRect = &rect
			}
		}
	}
}

// decodeOperand decodes a single text operand, honoring mode for literal
// (parenthesis-syntax) strings and always CMap-decoding hex-syntax ones.
func (in *Interpreter) decodeOperand(obj parser.PdfObject) (string, bool) {
	s, ok := obj.(*parser.String)
	if !ok {
		return "", false
	}
	if !s.Hex && in.mode == ModeLiteral {
		return s.Value(), true
	}
	return DecodeText(s.Bytes(), false, in.fontSet.Get(in.currentFont)), true
}

// decodeArray handles a TJ operand: a heterogeneous array of string and
// numeric entries. Numeric entries (kerning adjustments) are ignored.
func (in *Interpreter) decodeArray(obj parser.PdfObject) string {
	arr, ok := obj.(*parser.Array)
	if !ok {
		text, _ := in.decodeOperand(obj)
		return text
	}
	var out string
	for i := 0; i < arr.Len(); i++ {
		if text, ok := in.decodeOperand(arr.Get(i)); ok {
			out += text
		}
	}
	return out
}

// scanMCID looks for a dictionary operand carrying /MCID, updating
// currentMCID to the first one found. Scanned unconditionally for every
// operator, not just marked-content ones, matching the reference's
// "check every operand list" behavior.
func (in *Interpreter) scanMCID(operands []parser.PdfObject) {
	for _, obj := range operands {
		dict, ok := obj.(*parser.Dictionary)
		if !ok {
			continue
		}
		if mcid := dict.Get("MCID"); mcid != nil {
			if i, ok := mcid.(*parser.Integer); ok {
				v := int(i.Value())
				in.currentMCID = &v
			}
			return
		}
	}
}

func (in *Interpreter) event(text string) TextEvent {
	x, y := in.lastX, in.lastY
	return TextEvent{
		Text: text,
		X:    &x,
		Y:    &y,
		Rect: in.currentRect,
		MCID: in.currentMCID,
	}
}

// number reads a numeric operand (Integer or Real) as a float64, 0 for
// anything else.
func number(obj parser.PdfObject) float64 {
	if n, ok := obj.(parser.Number); ok {
		return n.Number()
	}
	return 0
}

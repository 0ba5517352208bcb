package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notsnake/pdftables/internal/parser"
)

func op(operator string, operands ...parser.PdfObject) parser.ContentOp {
	return parser.ContentOp{Operator: operator, Operands: operands}
}

func tfFont(name string) parser.ContentOp { return op("Tf", parser.NewName(name)) }

func fontSetWithCMap(fontName string) *FontSet {
	fs := NewFontSet()
	cmap := NewCMap()
	cmap.Insert("0041", "A")
	fs.Fonts[fontName] = cmap
	return fs
}

func TestInterpreter_Tj_LiteralMode_PassesThroughVerbatim(t *testing.T) {
	in := NewInterpreter(ModeLiteral, fontSetWithCMap("F1"))
	var events []TextEvent
	in.Run([]parser.ContentOp{
		tfFont("F1"),
		op("Tj", parser.NewString("Hello")),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	assert.Equal(t, "Hello", events[0].Text)
}

func TestInterpreter_Tj_LiteralMode_HexOperandStillCMapDecodes(t *testing.T) {
	in := NewInterpreter(ModeLiteral, fontSetWithCMap("F1"))
	var events []TextEvent
	in.Run([]parser.ContentOp{
		tfFont("F1"),
		op("Tj", parser.NewHexString("0041")),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].Text)
}

func TestInterpreter_Tj_HexMode_LiteralOperandAlsoCMapDecodes(t *testing.T) {
	in := NewInterpreter(ModeHex, fontSetWithCMap("F1"))
	var events []TextEvent
	// A literal string whose raw bytes happen to be 0x00 0x41.
	in.Run([]parser.ContentOp{
		tfFont("F1"),
		op("Tj", &parser.String{Val: []byte{0x00, 0x41}, Hex: false}),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].Text)
}

func TestInterpreter_TJ_IgnoresNumericKerningEntries(t *testing.T) {
	in := NewInterpreter(ModeLiteral, fontSetWithCMap("F1"))
	arr := parser.NewArray()
	arr.Append(parser.NewString("He"))
	arr.Append(parser.NewInteger(-120))
	arr.Append(parser.NewString("llo"))

	var events []TextEvent
	in.Run([]parser.ContentOp{
		tfFont("F1"),
		op("TJ", arr),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	assert.Equal(t, "Hello", events[0].Text)
}

func TestInterpreter_TStar_EmitsNewline(t *testing.T) {
	in := NewInterpreter(ModeLiteral, nil)
	var events []TextEvent
	in.Run([]parser.ContentOp{op("T*")}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	assert.Equal(t, "\n", events[0].Text)
}

func TestInterpreter_Quote_EmitsNewlineThenText(t *testing.T) {
	in := NewInterpreter(ModeLiteral, fontSetWithCMap("F1"))
	var events []TextEvent
	in.Run([]parser.ContentOp{
		tfFont("F1"),
		op("'", parser.NewString("next line")),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 2)
	assert.Equal(t, "\n", events[0].Text)
	assert.Equal(t, "next line", events[1].Text)
}

func TestInterpreter_DoubleQuote_UsesThirdOperand(t *testing.T) {
	in := NewInterpreter(ModeLiteral, fontSetWithCMap("F1"))
	var events []TextEvent
	in.Run([]parser.ContentOp{
		tfFont("F1"),
		op(`"`, parser.NewReal(0), parser.NewReal(0), parser.NewString("row text")),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 2)
	assert.Equal(t, "\n", events[0].Text)
	assert.Equal(t, "row text", events[1].Text)
}

func TestInterpreter_Td_UpdatesPosition(t *testing.T) {
	in := NewInterpreter(ModeLiteral, nil)
	var events []TextEvent
	in.Run([]parser.ContentOp{
		op("Td", parser.NewReal(10), parser.NewReal(20)),
		op("T*"),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	require.NotNil(t, events[0].X)
	require.NotNil(t, events[0].Y)
	assert.Equal(t, 10.0, *events[0].X)
	assert.Equal(t, 20.0, *events[0].Y)
}

func TestInterpreter_Cm_UpdatesPositionFromTranslationComponents(t *testing.T) {
	in := NewInterpreter(ModeLiteral, nil)
	var events []TextEvent
	in.Run([]parser.ContentOp{
		op("cm", parser.NewInteger(1), parser.NewInteger(0), parser.NewInteger(0),
			parser.NewInteger(1), parser.NewReal(5), parser.NewReal(15)),
		op("T*"),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	assert.Equal(t, 5.0, *events[0].X)
	assert.Equal(t, 15.0, *events[0].Y)
}

func TestInterpreter_Re_AttachesCurrentRectToSubsequentEvents(t *testing.T) {
	in := NewInterpreter(ModeLiteral, nil)
	var events []TextEvent
	in.Run([]parser.ContentOp{
		op("re", parser.NewReal(1), parser.NewReal(2), parser.NewReal(30), parser.NewReal(40)),
		op("T*"),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	require.NotNil(t, events[0].Rect)
	assert.Equal(t, Rectangle{X: 1, Y: 2, Width: 30, Height: 40}, *events[0].Rect)
}

func TestInterpreter_ScanMCID_UpdatesOnDictWithMCID(t *testing.T) {
	in := NewInterpreter(ModeLiteral, nil)
	dict := parser.NewDictionary()
	dict.Set("MCID", parser.NewInteger(7))

	var events []TextEvent
	in.Run([]parser.ContentOp{
		op("BDC", parser.NewName("P"), dict),
		op("T*"),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	require.NotNil(t, events[0].MCID)
	assert.Equal(t, 7, *events[0].MCID)
}

func TestInterpreter_ScanMCID_ScannedOnEveryOperator(t *testing.T) {
	in := NewInterpreter(ModeLiteral, nil)
	dict := parser.NewDictionary()
	dict.Set("MCID", parser.NewInteger(3))

	var events []TextEvent
	// The MCID carrying dict arrives on an unrelated operator; scanMCID
	// still picks it up since every operand list is scanned.
	in.Run([]parser.ContentOp{
		op("gs", dict),
		op("T*"),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	require.NotNil(t, events[0].MCID)
	assert.Equal(t, 3, *events[0].MCID)
}

func TestInterpreter_NilFontSet_CMapRouteDecodesToEmpty(t *testing.T) {
	in := NewInterpreter(ModeHex, nil)
	var events []TextEvent
	in.Run([]parser.ContentOp{
		tfFont("F1"),
		op("Tj", parser.NewHexString("0041")),
	}, func(e TextEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	assert.Equal(t, "", events[0].Text)
}

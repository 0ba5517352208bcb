package parser

import (
	"bytes"
	"log/slog"
	"strconv"

	"github.com/notsnake/pdftables/logging"
)

// ContentOp is one operand-list/operator pair from a content stream, e.g.
// the "12 0 0 12 100 200" operands followed by the "cm" operator.
//
// Reference: PDF 1.7 specification, Section 8.2 (Content Streams).
type ContentOp struct {
	Operands []PdfObject
	Operator string
}

// TokenizeContentStream turns a page's (already decoded) content-stream
// bytes into a flat sequence of operand/operator pairs. Malformed array and
// dictionary operands are skipped rather than aborting the whole stream,
// matching the rest of this package's tolerant-parsing stance; a lexical
// error at the top level ends tokenization, and the operations read up to
// that point are returned.
//
// Content-stream operand syntax is a subset of object syntax: numbers,
// strings, names, arrays, and dictionaries, with no indirect references or
// streams. A bare keyword ends the current operand list and is the
// operator for it, except for the "BI ... ID <binary> EI" inline-image
// form, whose binary section is skipped wholesale since no image data is
// ever needed here.
func TokenizeContentStream(data []byte) []ContentOp {
	lx := NewLexer(bytes.NewReader(data))
	var ops []ContentOp
	var operands []PdfObject

	for {
		tok, err := lx.NextToken()
		if err != nil {
			break
		}

		switch tok.Type {
		case TokenEOF:
			return ops

		case TokenInteger:
			v, perr := strconv.ParseInt(tok.Value, 10, 64)
			if perr == nil {
				operands = append(operands, NewInteger(v))
			}

		case TokenReal:
			v, perr := strconv.ParseFloat(tok.Value, 64)
			if perr == nil {
				operands = append(operands, NewReal(v))
			}

		case TokenString:
			operands = append(operands, NewString(tok.Value))

		case TokenHexString:
			operands = append(operands, NewHexString(tok.Value))

		case TokenName:
			operands = append(operands, NewName(tok.Value))

		case TokenBoolean:
			operands = append(operands, NewBoolean(tok.Value == "true"))

		case TokenNull:
			operands = append(operands, NewNull())

		case TokenArrayStart:
			arr, aerr := tokenizeArray(lx)
			if aerr == nil {
				operands = append(operands, arr)
			} else {
				logging.Logger().Debug("content stream: skipping malformed array operand", slog.Any("err", aerr))
			}

		case TokenDictStart:
			dict, derr := tokenizeDict(lx)
			if derr == nil {
				operands = append(operands, dict)
			} else {
				logging.Logger().Debug("content stream: skipping malformed dictionary operand", slog.Any("err", derr))
			}

		case TokenKeyword:
			if tok.Value == "BI" {
				skipInlineImage(lx)
				operands = nil
				continue
			}
			ops = append(ops, ContentOp{Operands: operands, Operator: tok.Value})
			operands = nil

		default:
			// TokenArrayEnd/TokenDictEnd with no matching start: ignore.
		}
	}
	return ops
}

// tokenizeArray parses a content-stream array operand (e.g. a TJ operand),
// reusing the same primitive grammar as TokenizeContentStream's top level.
func tokenizeArray(lx *Lexer) (*Array, error) {
	arr := NewArray()
	for {
		tok, err := lx.NextToken()
		if err != nil {
			return arr, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return arr, nil
		case TokenInteger:
			if v, perr := strconv.ParseInt(tok.Value, 10, 64); perr == nil {
				arr.Append(NewInteger(v))
			}
		case TokenReal:
			if v, perr := strconv.ParseFloat(tok.Value, 64); perr == nil {
				arr.Append(NewReal(v))
			}
		case TokenString:
			arr.Append(NewString(tok.Value))
		case TokenHexString:
			arr.Append(NewHexString(tok.Value))
		case TokenName:
			arr.Append(NewName(tok.Value))
		case TokenBoolean:
			arr.Append(NewBoolean(tok.Value == "true"))
		case TokenNull:
			arr.Append(NewNull())
		case TokenArrayStart:
			nested, err := tokenizeArray(lx)
			if err == nil {
				arr.Append(nested)
			}
		case TokenDictStart:
			nested, err := tokenizeDict(lx)
			if err == nil {
				arr.Append(nested)
			}
		}
	}
}

// tokenizeDict parses a content-stream dictionary operand (e.g. the
// property-list operand of a BDC/DP operator carrying /MCID).
func tokenizeDict(lx *Lexer) (*Dictionary, error) {
	dict := NewDictionary()
	for {
		keyTok, err := lx.NextToken()
		if err != nil {
			return dict, err
		}
		if keyTok.Type == TokenDictEnd {
			return dict, nil
		}
		if keyTok.Type == TokenEOF {
			return dict, nil
		}
		if keyTok.Type != TokenName {
			continue
		}

		valTok, err := lx.NextToken()
		if err != nil {
			return dict, err
		}
		switch valTok.Type {
		case TokenInteger:
			if v, perr := strconv.ParseInt(valTok.Value, 10, 64); perr == nil {
				dict.Set(keyTok.Value, NewInteger(v))
			}
		case TokenReal:
			if v, perr := strconv.ParseFloat(valTok.Value, 64); perr == nil {
				dict.Set(keyTok.Value, NewReal(v))
			}
		case TokenString:
			dict.Set(keyTok.Value, NewString(valTok.Value))
		case TokenHexString:
			dict.Set(keyTok.Value, NewHexString(valTok.Value))
		case TokenName:
			dict.Set(keyTok.Value, NewName(valTok.Value))
		case TokenBoolean:
			dict.Set(keyTok.Value, NewBoolean(valTok.Value == "true"))
		case TokenNull:
			dict.Set(keyTok.Value, NewNull())
		case TokenArrayStart:
			if nested, err := tokenizeArray(lx); err == nil {
				dict.Set(keyTok.Value, nested)
			}
		case TokenDictStart:
			if nested, err := tokenizeDict(lx); err == nil {
				dict.Set(keyTok.Value, nested)
			}
		}
	}
}

// skipInlineImage discards everything up to and including the "EI" keyword
// that closes a "BI ... ID <binary> EI" inline image operator.
func skipInlineImage(lx *Lexer) {
	for {
		tok, err := lx.NextToken()
		if err != nil || tok.Type == TokenEOF {
			return
		}
		if tok.Type == TokenKeyword && tok.Value == "EI" {
			return
		}
	}
}

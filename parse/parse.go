// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package parse implements the Procyon event parser (P2): a pushdown
// automaton layered over package lex that consumes one token per step and
// surfaces a stream of typed Events. The transition logic is ported from
// the grammar described by the reference implementation rather than read
// out of a generated table (no packed parse table ships with this module;
// see DESIGN.md), but the shape is the same one a compiled table would
// have: each parser state reacts to an incoming token kind by some
// combination of raising an error, accumulating a fragment, emitting an
// event, capturing a pending key, and pushing follow-up states.
package parse

import (
	"strconv"
	"strings"

	"github.com/arescentral/procyon/internal/utf8x"
	"github.com/arescentral/procyon/lex"
	"github.com/arescentral/procyon/pnerr"
	"github.com/arescentral/procyon/token"
)

// maxDepth bounds the parser's state stack (§3: "Parser stack depth is
// capped at 64").
const maxDepth = 64

// frameKind names one row of the (unwritten) parse table: what the
// automaton expects to see when this frame reaches the top of the stack.
type frameKind uint8

const (
	fDocStart  frameKind = iota // expects the opening LINE_IN
	fValueLong                 // expects a value-starting token, long context
	fValueShort                // expects a value-starting token, short context

	fArrayCont // long array: expects LINE_EQ (next item) or LINE_OUT (close)
	fArrayItem // long array: expects STAR leading the next item

	fMapCont // long map: expects LINE_EQ (next entry) or LINE_OUT (close)
	fMapKey  // long map: expects KEY/QKEY leading the next entry

	fStringCont // long string: expects LINE_EQ (another segment) or LINE_OUT (close)
	fStringSeg  // long string: expects a >/|/! lead token
	fStringDone // after '!': expects only the closing LINE_OUT

	fDataCont // long data: expects LINE_EQ (another $ line) or LINE_OUT (close)
	fDataSeg  // long data: expects a continuing DATA token

	fShortArrayFirst // short array: expects a value or ']'
	fShortArrayNext  // short array: expects ',' or ']'
	fShortArrayValue // short array: expects a value (no ']' allowed, post-comma)

	fShortMapFirst // short map: expects a key or '}'
	fShortMapNext  // short map: expects ',' or '}'
	fShortMapKey   // short map: expects a key (no '}' allowed, post-comma)

	fValueNested // long value on its own indent level, after an absorbed LINE_IN
	fLevelOut    // expects the LINE_OUT closing a nested scalar's indent level
)

// Parser is a pull-based pushdown automaton over a Lexer's token stream.
// Call Next repeatedly; each call returns exactly one Event or reports
// end of input / error.
type Parser struct {
	lex   *lex.Lexer
	stack []frameKind

	key    string
	hasKey bool

	accData []byte
	accStr  strings.Builder
}

// New returns a parser that drives l.
func New(l *lex.Lexer) *Parser {
	return &Parser{lex: l, stack: []frameKind{fDocStart}}
}

// Next returns the next event in source order, or ok=false once the top
// level value is complete (or the input is exhausted). Errors from the
// lexer or grammar violations are reported as *pnerr.DecodeError.
func (p *Parser) Next() (Event, bool, error) {
	for {
		tok, lexOK := p.lex.Next()
		if !lexOK {
			return Event{}, false, nil
		}
		if tok.Kind == token.ERROR {
			return Event{}, false, &pnerr.DecodeError{Code: tok.ErrCode, Line: tok.Line, Column: tok.Column}
		}
		if len(p.stack) == 0 {
			// §4.5 step 6: the final LINE_OUT(s) are drained even
			// though the top-level value is already complete.
			return Event{}, false, nil
		}

		top := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]

		ev, emitted, err := p.step(top, tok)
		if err != nil {
			return Event{}, false, err
		}
		if emitted {
			return ev, true, nil
		}
	}
}

// push appends states to the stack in grammar order (left-to-right in the
// slice is "next popped first"), checking the recursion bound.
func (p *Parser) push(tok token.Token, states ...frameKind) error {
	for i := len(states) - 1; i >= 0; i-- {
		p.stack = append(p.stack, states[i])
	}
	if len(p.stack) > maxDepth {
		return p.fail(pnerr.RECURSION, tok)
	}
	return nil
}

// fail builds a positioned decode error for tok. Per §4.5 step 1, errors
// triggered by a virtual LINE_IN/LINE_EQ/LINE_OUT token point at the end
// of the previous line rather than at the synthetic token itself.
func (p *Parser) fail(code pnerr.Code, tok token.Token) error {
	if tok.Kind == token.LINE_IN || tok.Kind == token.LINE_EQ || tok.Kind == token.LINE_OUT {
		return &pnerr.DecodeError{Code: code, Line: maxInt(1, tok.Line-1), Column: maxInt(1, p.lex.PrevWidth())}
	}
	return &pnerr.DecodeError{Code: code, Line: tok.Line, Column: tok.Column}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func isScalarValueToken(k token.Kind) bool {
	switch k {
	case token.NULL, token.TRUE, token.FALSE, token.INF, token.NEG_INF, token.NAN,
		token.INT, token.FLOAT, token.STR:
		return true
	}
	return false
}

// step applies the transition for (state, tok): the heart of the table.
func (p *Parser) step(state frameKind, tok token.Token) (Event, bool, error) {
	switch state {
	case fDocStart:
		if tok.Kind != token.LINE_IN {
			return Event{}, false, p.fail(pnerr.INTERNAL, tok)
		}
		return Event{}, false, p.push(tok, fValueLong)

	case fValueLong:
		return p.valueLong(tok)
	case fValueShort:
		return p.valueShort(tok)

	case fArrayCont:
		switch tok.Kind {
		case token.LINE_EQ:
			return Event{}, false, p.push(tok, fArrayItem)
		case token.LINE_OUT:
			return p.emit(ARRAY_OUT, Long, nil), true, nil
		default:
			return Event{}, false, p.fail(pnerr.SIBLING, tok)
		}
	case fArrayItem:
		if tok.Kind != token.STAR {
			return Event{}, false, p.fail(pnerr.SIBLING, tok)
		}
		return Event{}, false, p.push(tok, fValueLong, fArrayCont)

	case fMapCont:
		switch tok.Kind {
		case token.LINE_EQ:
			return Event{}, false, p.push(tok, fMapKey)
		case token.LINE_OUT:
			return p.emit(MAP_OUT, Long, nil), true, nil
		default:
			return Event{}, false, p.fail(pnerr.SIBLING, tok)
		}
	case fMapKey:
		if tok.Kind != token.KEY && tok.Kind != token.QKEY {
			return Event{}, false, p.fail(pnerr.MAP_KEY, tok)
		}
		if err := p.captureKey(tok); err != nil {
			return Event{}, false, err
		}
		return Event{}, false, p.push(tok, fValueLong, fMapCont)

	case fStringCont:
		switch tok.Kind {
		case token.LINE_EQ:
			return Event{}, false, p.push(tok, fStringSeg)
		case token.LINE_OUT:
			p.accStr.WriteByte('\n')
			return p.emit(STRING, Long, p.flushStr()), true, nil
		default:
			return Event{}, false, p.fail(pnerr.SIBLING, tok)
		}
	case fStringSeg:
		switch tok.Kind {
		case token.STR_WRAP, token.STR_WRAP_EMPTY:
			// Text on a '>' line joins text on the line above with a
			// space; otherwise the two lines are separated by a newline.
			payload := longStringPayload(tok.Text)
			if acc := p.accStr.String(); payload != "" && acc != "" && acc[len(acc)-1] != '\n' {
				p.accStr.WriteByte(' ')
			} else {
				p.accStr.WriteByte('\n')
			}
			p.accStr.WriteString(payload)
			return Event{}, false, p.push(tok, fStringCont)
		case token.STR_PIPE, token.STR_PIPE_EMPTY:
			p.accStr.WriteByte('\n')
			p.accStr.WriteString(longStringPayload(tok.Text))
			return Event{}, false, p.push(tok, fStringCont)
		case token.STR_BANG:
			return Event{}, false, p.push(tok, fStringDone)
		default:
			return Event{}, false, p.fail(pnerr.SIBLING, tok)
		}
	case fStringDone:
		switch tok.Kind {
		case token.LINE_OUT:
			return p.emit(STRING, Long, p.flushStr()), true, nil
		case token.LINE_EQ:
			return Event{}, false, p.fail(pnerr.BANG_SUFFIX, tok)
		default:
			return Event{}, false, p.fail(pnerr.BANG_LAST, tok)
		}

	case fDataCont:
		switch tok.Kind {
		case token.LINE_EQ:
			return Event{}, false, p.push(tok, fDataSeg)
		case token.LINE_OUT:
			return p.emit(DATA, Long, p.flushData()), true, nil
		default:
			return Event{}, false, p.fail(pnerr.SIBLING, tok)
		}
	case fDataSeg:
		if tok.Kind != token.DATA {
			return Event{}, false, p.fail(pnerr.SIBLING, tok)
		}
		if err := p.appendHex(tok); err != nil {
			return Event{}, false, err
		}
		return Event{}, false, p.push(tok, fDataCont)

	case fShortArrayFirst:
		if tok.Kind == token.ARRAY_OUT {
			return p.emit(ARRAY_OUT, Short, nil), true, nil
		}
		return p.dispatchShortValue(tok, fShortArrayNext)
	case fShortArrayNext:
		switch tok.Kind {
		case token.COMMA:
			return Event{}, false, p.push(tok, fShortArrayValue)
		case token.ARRAY_OUT:
			return p.emit(ARRAY_OUT, Short, nil), true, nil
		default:
			return Event{}, false, p.fail(pnerr.ARRAY_END, tok)
		}
	case fShortArrayValue:
		return p.dispatchShortValue(tok, fShortArrayNext)

	case fShortMapFirst:
		if tok.Kind == token.MAP_OUT {
			return p.emit(MAP_OUT, Short, nil), true, nil
		}
		return p.shortMapKey(tok)
	case fShortMapNext:
		switch tok.Kind {
		case token.COMMA:
			return Event{}, false, p.push(tok, fShortMapKey)
		case token.MAP_OUT:
			return p.emit(MAP_OUT, Short, nil), true, nil
		default:
			return Event{}, false, p.fail(pnerr.MAP_END, tok)
		}
	case fShortMapKey:
		return p.shortMapKey(tok)

	case fValueNested:
		// Long strings, data and containers close on their own level's
		// LINE_OUT; a scalar or short container leaves it to fLevelOut.
		if isScalarValueToken(tok.Kind) || tok.Kind == token.ARRAY_IN || tok.Kind == token.MAP_IN {
			if err := p.push(tok, fLevelOut); err != nil {
				return Event{}, false, err
			}
		}
		return p.valueLong(tok)
	case fLevelOut:
		if tok.Kind != token.LINE_OUT {
			return Event{}, false, p.fail(pnerr.SIBLING, tok)
		}
		return Event{}, false, nil
	}
	return Event{}, false, p.fail(pnerr.INTERNAL, tok)
}

func (p *Parser) shortMapKey(tok token.Token) (Event, bool, error) {
	if tok.Kind != token.KEY && tok.Kind != token.QKEY {
		return Event{}, false, p.fail(pnerr.MAP_KEY, tok)
	}
	if err := p.captureKey(tok); err != nil {
		return Event{}, false, err
	}
	return Event{}, false, p.push(tok, fValueShort, fShortMapNext)
}

// dispatchShortValue parses a value in short context and arranges for
// after to run once it completes.
func (p *Parser) dispatchShortValue(tok token.Token, after frameKind) (Event, bool, error) {
	switch {
	case isScalarValueToken(tok.Kind):
		ev, err := p.scalarEvent(tok, Short)
		if err != nil {
			return Event{}, false, err
		}
		return ev, true, p.push(tok, after)
	case tok.Kind == token.DATA:
		ev, err := p.dataEvent(tok, Short)
		if err != nil {
			return Event{}, false, err
		}
		return ev, true, p.push(tok, after)
	case tok.Kind == token.ARRAY_IN:
		ev := p.emit(ARRAY_IN, Short, nil)
		return ev, true, p.push(tok, fShortArrayFirst, after)
	case tok.Kind == token.MAP_IN:
		ev := p.emit(MAP_IN, Short, nil)
		return ev, true, p.push(tok, fShortMapFirst, after)
	default:
		return Event{}, false, p.fail(pnerr.SHORT, tok)
	}
}

func (p *Parser) valueShort(tok token.Token) (Event, bool, error) {
	switch {
	case isScalarValueToken(tok.Kind):
		ev, err := p.scalarEvent(tok, Short)
		return ev, err == nil, err
	case tok.Kind == token.DATA:
		ev, err := p.dataEvent(tok, Short)
		return ev, err == nil, err
	case tok.Kind == token.ARRAY_IN:
		return p.emit(ARRAY_IN, Short, nil), true, p.push(tok, fShortArrayFirst)
	case tok.Kind == token.MAP_IN:
		return p.emit(MAP_IN, Short, nil), true, p.push(tok, fShortMapFirst)
	default:
		return Event{}, false, p.fail(pnerr.SHORT, tok)
	}
}

func (p *Parser) valueLong(tok token.Token) (Event, bool, error) {
	switch {
	case isScalarValueToken(tok.Kind):
		ev, err := p.scalarEvent(tok, Short)
		return ev, err == nil, err
	case tok.Kind == token.ARRAY_IN:
		return p.emit(ARRAY_IN, Short, nil), true, p.push(tok, fShortArrayFirst)
	case tok.Kind == token.MAP_IN:
		return p.emit(MAP_IN, Short, nil), true, p.push(tok, fShortMapFirst)
	case tok.Kind == token.DATA:
		if err := p.appendHex(tok); err != nil {
			return Event{}, false, err
		}
		return Event{}, false, p.push(tok, fDataCont)
	case tok.Kind == token.STAR:
		return p.emit(ARRAY_IN, Long, nil), true, p.push(tok, fValueLong, fArrayCont)
	case tok.Kind == token.KEY, tok.Kind == token.QKEY:
		// This key belongs to the map's first entry, not to the map
		// itself: the MAP_IN event carries whatever key was already
		// pending (the slot this map occupies in its own parent, if
		// any), while the key just read becomes pending for the
		// entry value parsed under fValueLong below.
		outerKey, outerHasKey := p.key, p.hasKey
		if err := p.captureKey(tok); err != nil {
			return Event{}, false, err
		}
		ev := Event{Kind: MAP_IN, Form: Long, Key: outerKey, HasKey: outerHasKey}
		return ev, true, p.push(tok, fValueLong, fMapCont)
	case tok.Kind == token.STR_WRAP, tok.Kind == token.STR_WRAP_EMPTY:
		p.accStr.WriteString(longStringPayload(tok.Text))
		return Event{}, false, p.push(tok, fStringCont)
	case tok.Kind == token.STR_PIPE, tok.Kind == token.STR_PIPE_EMPTY:
		p.accStr.WriteString(longStringPayload(tok.Text))
		return Event{}, false, p.push(tok, fStringCont)
	case tok.Kind == token.STR_BANG:
		return Event{}, false, p.push(tok, fStringDone)
	case tok.Kind == token.LINE_IN:
		// Two distinct cases land here. A STAR item's value on the same
		// line: lex.Lexer.scanToken's STAR case calls reindent to measure
		// that value's column, and the side effect surfaces as a genuine
		// LINE_IN on the very next token. A map value nested on a line
		// below its key: an ordinary deeper-indent LINE_IN. Either way,
		// absorb it and expect the actual value under fValueNested, which
		// also accounts for the LINE_OUT that closes this level.
		return Event{}, false, p.push(tok, fValueNested)
	default:
		return Event{}, false, p.fail(pnerr.LONG, tok)
	}
}

// captureKey decodes a KEY/QKEY token into the single pending key, per
// the invariant that a key is set before exactly one following event.
func (p *Parser) captureKey(tok token.Token) error {
	text := tok.Text[:len(tok.Text)-1] // drop trailing ':'
	if tok.Kind == token.QKEY {
		s, err := decodeShortString(text, tok)
		if err != nil {
			return err
		}
		p.key = s
	} else {
		p.key = text
	}
	p.hasKey = true
	return nil
}

// emit constructs an event, attaching and clearing the pending key.
func (p *Parser) emit(kind EventKind, form Form, value any) Event {
	ev := Event{Kind: kind, Form: form, Value: value, Key: p.key, HasKey: p.hasKey}
	p.key = ""
	p.hasKey = false
	return ev
}

func (p *Parser) scalarEvent(tok token.Token, form Form) (Event, error) {
	switch tok.Kind {
	case token.NULL:
		return p.emit(NULL, form, nil), nil
	case token.TRUE:
		return p.emit(BOOL, form, true), nil
	case token.FALSE:
		return p.emit(BOOL, form, false), nil
	case token.INF:
		return p.emit(FLOAT, form, posInf), nil
	case token.NEG_INF:
		return p.emit(FLOAT, form, negInf), nil
	case token.NAN:
		return p.emit(FLOAT, form, nanVal), nil
	case token.INT:
		i, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return Event{}, &pnerr.DecodeError{Code: pnerr.INT_OVERFLOW, Line: tok.Line, Column: tok.Column}
		}
		return p.emit(INT, form, i), nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			code := pnerr.INVALID_FLOAT
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				code = pnerr.FLOAT_OVERFLOW
			}
			return Event{}, &pnerr.DecodeError{Code: code, Line: tok.Line, Column: tok.Column}
		}
		return p.emit(FLOAT, form, f), nil
	case token.STR:
		s, err := decodeShortString(tok.Text, tok)
		if err != nil {
			return Event{}, err
		}
		return p.emit(STRING, form, s), nil
	}
	return Event{}, p.fail(pnerr.INTERNAL, tok)
}

func (p *Parser) dataEvent(tok token.Token, form Form) (Event, error) {
	b, err := decodeHex(tok.Text[1:], tok)
	if err != nil {
		return Event{}, err
	}
	return p.emit(DATA, form, b), nil
}

func (p *Parser) appendHex(tok token.Token) error {
	b, err := decodeHex(tok.Text[1:], tok)
	if err != nil {
		return err
	}
	p.accData = append(p.accData, b...)
	return nil
}

func (p *Parser) flushData() []byte {
	b := p.accData
	p.accData = nil
	return b
}

func (p *Parser) flushStr() string {
	s := p.accStr.String()
	p.accStr.Reset()
	return s
}

// longStringPayload strips the lead character and at most one following
// separator (space or tab) from a STR_WRAP/STR_PIPE token's text, per
// parse.py's _long_string_value.
func longStringPayload(text string) string {
	if len(text) <= 1 {
		return ""
	}
	if text[1] == ' ' || text[1] == '\t' {
		return text[2:]
	}
	return text[1:]
}

func decodeHex(s string, tok token.Token) ([]byte, error) {
	out := make([]byte, 0, len(s)/2)
	hi := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			continue
		}
		v := hexVal(c)
		if hi < 0 {
			hi = v
			continue
		}
		out = append(out, byte(hi<<4|v))
		hi = -1
	}
	if hi >= 0 {
		return nil, &pnerr.DecodeError{Code: pnerr.PARTIAL, Line: tok.Line, Column: tok.Column}
	}
	return out, nil
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}

// decodeShortString decodes a quoted short-string token's text (including
// the surrounding quotes) per §4.5: \b \f \n \r \t \" \\ \/, \uXXXX,
// \UXXXXXXXX. The lexer has already validated escape well-formedness
// (§4.2); surrogate scalar values are preserved via utf8x so they survive
// to the serializer's §8 surrogate check.
func decodeShortString(text string, tok token.Token) (string, error) {
	body := text[1 : len(text)-1]
	var out strings.Builder
	buf := make([]byte, 0, 4)
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'b':
			out.WriteByte('\b')
		case 'f':
			out.WriteByte('\f')
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case '"':
			out.WriteByte('"')
		case '\\':
			out.WriteByte('\\')
		case '/':
			out.WriteByte('/')
		case 'u':
			cp, err := strconv.ParseUint(body[i+1:i+5], 16, 32)
			if err != nil {
				return "", &pnerr.DecodeError{Code: pnerr.BADUESC, Line: tok.Line, Column: tok.Column}
			}
			i += 4
			r := rune(cp)
			if utf8x.IsSurrogate(r) {
				buf = utf8x.EncodeSurrogate(buf[:0], r)
				out.Write(buf)
			} else {
				out.WriteRune(r)
			}
		case 'U':
			cp, err := strconv.ParseUint(body[i+1:i+9], 16, 32)
			if err != nil {
				return "", &pnerr.DecodeError{Code: pnerr.BADUESC, Line: tok.Line, Column: tok.Column}
			}
			i += 8
			out.WriteRune(rune(cp))
		default:
			return "", &pnerr.DecodeError{Code: pnerr.BADESC, Line: tok.Line, Column: tok.Column}
		}
	}
	return out.String(), nil
}

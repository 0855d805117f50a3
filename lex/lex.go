// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package lex implements the Procyon lexer: a line-buffered scanner that
// produces one token per call to Next, interleaving the virtual
// indentation tokens LINE_IN / LINE_EQ / LINE_OUT with the real tokens
// scanned from the current line.
//
// The control flow (line advance, indent-stack bookkeeping, error
// positioning) is ported directly from the reference implementation; the
// inner token recognizer is hand-written against the grammar described in
// the surface syntax rather than against a generated transition table,
// since no packed table ships with this module (see DESIGN.md).
package lex

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/arescentral/procyon/internal/classify"
	"github.com/arescentral/procyon/pnerr"
	"github.com/arescentral/procyon/token"
)

var numberRe = regexp.MustCompile(`^[+-]?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Lexer scans a complete Procyon document held in memory. It has no
// concept of partial/streaming input beyond whole lines (§5: suspension
// points are at line boundaries); this implementation simply holds every
// line up front.
type Lexer struct {
	lines   [][]byte
	lineIdx int

	lineno  int
	started bool

	tokenType            token.Kind
	tokenBegin, tokenEnd int
	lineBegin, lineEnd   int
	buffer               []byte
	prevWidth            int

	indent int
	eq     bool
	levels []int

	errCode   pnerr.Code
	errColumn int
}

// New returns a lexer over data, a complete in-memory Procyon document.
func New(data []byte) *Lexer {
	return &Lexer{
		lines:     splitLines(data),
		lineno:    1,
		tokenType: token.LINE_IN,
		indent:    -1,
		levels:    []int{-1},
	}
}

func splitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	parts := bytes.Split(data, []byte("\n"))
	if n := len(parts); n > 0 && len(parts[n-1]) == 0 {
		parts = parts[:n-1]
	}
	return parts
}

// PrevWidth returns the byte width (excluding the terminating newline) of
// the most recently completed line, for callers positioning errors that
// attach to a virtual LINE_IN/LINE_EQ/LINE_OUT token (§4.5 step 1).
func (l *Lexer) PrevWidth() int {
	if l.prevWidth == 0 {
		return 0
	}
	return l.prevWidth - 1
}

// Next returns the next token, or ok=false once the indent stack has
// fully unwound and there is nothing left to scan.
func (l *Lexer) Next() (tok token.Token, ok bool) {
	if l.started {
		if len(l.levels) == 1 {
			return token.Token{}, false
		}
	} else {
		l.started = true
	}

	if l.lineEnd == l.lineBegin {
		if l.nextLine() {
			return l.makeToken(), true
		}
	} else if l.updateLexerLevel() {
		return l.makeToken(), true
	}

	for {
		for l.tokenEnd < l.lineEnd && (l.buffer[l.tokenEnd] == '\t' || l.buffer[l.tokenEnd] == ' ') {
			l.tokenEnd++
		}
		if l.buffer[l.tokenEnd] == '\n' {
			if !l.nextLine() {
				l.fail(pnerr.INTERNAL, l.tokenEnd)
			}
			return l.makeToken(), true
		}
		l.tokenBegin = l.tokenEnd
		if l.scanToken() {
			continue // comment consumed; rescan for a real token
		}
		return l.makeToken(), true
	}
}

func (l *Lexer) makeToken() token.Token {
	t := token.Token{Kind: l.tokenType, Line: l.lineno}
	switch l.tokenType {
	case token.LINE_IN, token.LINE_EQ, token.LINE_OUT:
		// virtual: no backing bytes
	case token.ERROR:
		t.ErrCode = l.errCode
		t.Column = l.errColumn
	default:
		t.Column = l.tokenBegin + 1
		t.Text = string(l.buffer[l.tokenBegin:l.tokenEnd])
	}
	return t
}

func (l *Lexer) nextLine() bool {
	for {
		if len(l.buffer) > 0 {
			l.lineno++
		}
		l.prevWidth = len(l.buffer)

		if l.lineIdx >= len(l.lines) {
			l.buffer = nil
			l.tokenBegin, l.tokenEnd, l.lineBegin, l.lineEnd = 0, 0, 0, 0
			l.indent = 0
			if !l.updateLexerLevel() {
				l.levels = l.levels[:len(l.levels)-1]
				l.tokenType = token.LINE_OUT
			}
			return true
		}

		raw := l.lines[l.lineIdx]
		l.lineIdx++
		l.buffer = make([]byte, 0, len(raw)+1)
		l.buffer = append(l.buffer, raw...)
		l.buffer = append(l.buffer, '\n')

		l.tokenBegin, l.tokenEnd, l.lineBegin = 0, 0, 0
		l.lineEnd = l.lineBegin + len(l.buffer)
		l.indent = 0
		if l.reindent() {
			return l.updateLexerLevel()
		}
		// blank (whitespace-only) line: loop to the next one
	}
}

func (l *Lexer) updateLexerLevel() bool {
	top := l.levels[len(l.levels)-1]
	if l.indent > top {
		l.eq = false
		if l.tokenType == token.LINE_OUT {
			l.indent = top
			return l.fail(pnerr.OUTDENT, l.tokenEnd)
		}
		l.levels = append(l.levels, l.indent)
		l.tokenType = token.LINE_IN
		return true
	}
	if l.indent < top {
		l.levels = l.levels[:len(l.levels)-1]
		l.tokenType = token.LINE_OUT
		return true
	}
	if l.eq {
		l.eq = false
		l.tokenType = token.LINE_EQ
		return true
	}
	return false
}

// reindent scans forward from the current token_end looking for the next
// significant column, per §4.3's column-counting rule. It leaves l.indent
// and l.eq set as a side effect for the next updateLexerLevel call.
func (l *Lexer) reindent() bool {
	indent := l.indent + l.tokenEnd - l.tokenBegin
	i := l.tokenEnd
	for i < l.lineEnd {
		switch l.buffer[i] {
		case ' ':
			indent++
		case '\t':
			indent = (indent + 2) &^ 1
		case '\n', '#':
			return false
		default:
			l.indent = indent
			l.eq = true
			l.tokenEnd = i
			return true
		}
		i++
	}
	return false
}

func (l *Lexer) fail(code pnerr.Code, at int) bool {
	if code == pnerr.BADESC || code == pnerr.BADUESC {
		for at > 0 && l.buffer[at] != '\\' {
			at--
		}
	}
	l.tokenType = token.ERROR
	l.errCode = code
	l.errColumn = at + 1
	l.tokenEnd = l.lineEnd - 1
	return true
}

// scanEscape validates the character(s) following a backslash already
// consumed at i-1, per §4.5: one of the single-character escapes, or a
// \uXXXX / \UXXXXXXXX run of hex digits. It returns the cursor just past
// the escape and true on success.
func (l *Lexer) scanEscape(i int) (int, bool) {
	switch l.buffer[i] {
	case 'b', 'f', 'n', 'r', 't', '"', '\\', '/':
		return i + 1, true
	case 'u':
		return l.scanHexEscape(i+1, 4)
	case 'U':
		return l.scanHexEscape(i+1, 8)
	default:
		l.fail(pnerr.BADESC, i)
		return 0, false
	}
}

func (l *Lexer) scanHexEscape(i, n int) (int, bool) {
	for k := 0; k < n; k++ {
		if i >= l.lineEnd-1 || l.buffer[i] == '\n' || !isHexDigit(l.buffer[i]) {
			l.fail(pnerr.BADUESC, i)
			return 0, false
		}
		i++
	}
	return i, true
}

func (l *Lexer) setSingle(k token.Kind) {
	l.tokenType = k
	l.tokenEnd = l.tokenBegin + 1
}

// scanToken recognizes one real token starting at l.tokenBegin. It
// returns true only when it consumed a comment, meaning the caller should
// loop and scan again; otherwise a token (possibly ERROR) is ready.
func (l *Lexer) scanToken() bool {
	b := l.buffer[l.tokenBegin]
	switch classify.Of(b) {
	case classify.Star:
		l.tokenType = token.STAR
		l.tokenEnd = l.tokenBegin + 1
		l.reindent()
		l.tokenEnd = l.tokenBegin + 1
	case classify.LBracket:
		l.setSingle(token.ARRAY_IN)
	case classify.RBracket:
		l.setSingle(token.ARRAY_OUT)
	case classify.LBrace:
		l.setSingle(token.MAP_IN)
	case classify.RBrace:
		l.setSingle(token.MAP_OUT)
	case classify.Comma:
		l.setSingle(token.COMMA)
	case classify.Bang:
		l.setSingle(token.STR_BANG)
	case classify.Gt:
		l.scanLeadLine(token.STR_WRAP, token.STR_WRAP_EMPTY)
	case classify.Pipe:
		l.scanLeadLine(token.STR_PIPE, token.STR_PIPE_EMPTY)
	case classify.Hash:
		return l.scanComment()
	case classify.Dollar:
		l.scanData()
	case classify.DQuote:
		l.scanQuoted()
	case classify.Digit, classify.Plus, classify.Minus, classify.Letter,
		classify.Dot, classify.Underscore, classify.FwdSlash:
		l.scanWord()
	case classify.Ctrl:
		l.fail(pnerr.CTRL, l.tokenBegin)
	case classify.UTF8Cont, classify.UTF8Illegal:
		l.fail(pnerr.UTF8_HEAD, l.tokenBegin)
	case classify.UTF8Lead2, classify.UTF8LeadE0, classify.UTF8Lead3,
		classify.UTF8LeadED, classify.UTF8LeadF0, classify.UTF8Lead4, classify.UTF8LeadF4:
		l.fail(pnerr.NONASCII, l.tokenBegin)
	default:
		l.fail(pnerr.BADCHAR, l.tokenBegin)
	}
	return false
}

func (l *Lexer) scanComment() bool {
	end := l.tokenBegin + 1
	for end < l.lineEnd && l.buffer[end] != '\n' {
		end++
	}
	if !l.validateUTF8Range(l.tokenBegin+1, end) {
		return false
	}
	l.tokenEnd = end
	return true
}

func (l *Lexer) scanLeadLine(nonEmpty, empty token.Kind) {
	end := l.tokenBegin + 1
	for end < l.lineEnd && l.buffer[end] != '\n' {
		end++
	}
	if !l.validateUTF8Range(l.tokenBegin+1, end) {
		return
	}
	l.tokenEnd = end
	if end == l.tokenBegin+1 {
		l.tokenType = empty
	} else {
		l.tokenType = nonEmpty
	}
}

func isKeyChar(b byte) bool {
	switch classify.Of(b) {
	case classify.Letter, classify.Digit, classify.Dot, classify.Underscore, classify.FwdSlash, classify.Plus, classify.Minus:
		return true
	}
	return false
}

func (l *Lexer) scanWord() {
	end := l.tokenBegin
	for end < l.lineEnd && isKeyChar(l.buffer[end]) {
		end++
	}
	if end < l.lineEnd && l.buffer[end] == ':' {
		l.tokenType = token.KEY
		l.tokenEnd = end + 1
		return
	}

	word := string(l.buffer[l.tokenBegin:end])
	switch word {
	case "null":
		l.tokenType = token.NULL
	case "true":
		l.tokenType = token.TRUE
	case "false":
		l.tokenType = token.FALSE
	case "inf":
		l.tokenType = token.INF
	case "-inf":
		l.tokenType = token.NEG_INF
	case "nan":
		l.tokenType = token.NAN
	default:
		if numberRe.MatchString(word) {
			if strings.ContainsAny(word, ".eE") {
				l.tokenType = token.FLOAT
			} else {
				l.tokenType = token.INT
			}
		} else {
			l.fail(pnerr.BADWORD, l.tokenBegin)
			return
		}
	}
	l.tokenEnd = end
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func (l *Lexer) scanData() {
	i := l.tokenBegin + 1
	for {
		for i < l.lineEnd && (l.buffer[i] == ' ' || l.buffer[i] == '\t') {
			i++
		}
		if i >= l.lineEnd || l.buffer[i] == '\n' {
			break
		}
		if !isHexDigit(l.buffer[i]) {
			l.fail(pnerr.DATACHAR, i)
			return
		}
		if i+1 >= l.lineEnd || l.buffer[i+1] == '\n' {
			l.fail(pnerr.PARTIAL, i)
			return
		}
		if !isHexDigit(l.buffer[i+1]) {
			l.fail(pnerr.DATACHAR, i+1)
			return
		}
		i += 2
	}
	l.tokenType = token.DATA
	l.tokenEnd = i
}

func (l *Lexer) scanQuoted() {
	i := l.tokenBegin + 1
	for {
		if i >= l.lineEnd-1 || l.buffer[i] == '\n' {
			l.fail(pnerr.STREOL, i)
			return
		}
		b := l.buffer[i]
		switch {
		case b == '"':
			i++
			if i < l.lineEnd-1 && l.buffer[i] == ':' {
				i++
				l.tokenType = token.QKEY
			} else {
				l.tokenType = token.STR
			}
			l.tokenEnd = i
			return
		case b == '\\':
			i++
			if i >= l.lineEnd-1 || l.buffer[i] == '\n' {
				l.fail(pnerr.STREOL, i)
				return
			}
			var ok bool
			i, ok = l.scanEscape(i)
			if !ok {
				return
			}
		case b < 0x20:
			l.fail(pnerr.CTRL, i)
			return
		case b >= 0x80:
			c := classify.Of(b)
			if !classify.IsUTF8Lead(c) {
				l.fail(pnerr.UTF8_HEAD, i)
				return
			}
			n, lo, hi := classify.TailLen(c)
			i++
			for k := 0; k < n; k++ {
				if i >= l.lineEnd-1 || l.buffer[i] < lo || l.buffer[i] > hi {
					l.fail(pnerr.UTF8_TAIL, i)
					return
				}
				lo, hi = 0x80, 0xBF
				i++
			}
		default:
			i++
		}
	}
}

// validateUTF8Range checks [start,end) of the current buffer for
// well-formed UTF-8, per the restricted lead-byte sub-ranges of §4.2.
func (l *Lexer) validateUTF8Range(start, end int) bool {
	i := start
	for i < end {
		b := l.buffer[i]
		switch {
		case b < 0x20:
			l.fail(pnerr.CTRL, i)
			return false
		case b < 0x80:
			i++
		default:
			c := classify.Of(b)
			if !classify.IsUTF8Lead(c) {
				l.fail(pnerr.UTF8_HEAD, i)
				return false
			}
			n, lo, hi := classify.TailLen(c)
			j := i + 1
			for k := 0; k < n; k++ {
				if j >= end || l.buffer[j] < lo || l.buffer[j] > hi {
					l.fail(pnerr.UTF8_TAIL, j)
					return false
				}
				lo, hi = 0x80, 0xBF
				j++
			}
			i = j
		}
	}
	return true
}

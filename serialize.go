// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package procyon

import (
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/arescentral/procyon/internal/numfmt"
	"github.com/arescentral/procyon/internal/utf8x"
	"github.com/arescentral/procyon/pnerr"
)

// Converter rewrites a value immediately before it is classified and
// serialized (§6.5, §9 "Converter composition"). It runs once per tree
// node encountered on the path actually taken by the encoder: the root,
// and every child of a long-form array or map (a child folded into an
// already-short array or map is emitted as-is, matching dump.py's own
// asymmetry between _dump_short_array/_dump_short_map, which never
// re-invoke the converter, and _dump_long_array/_dump_long_map, which
// do). Returning v unchanged is a no-op.
type Converter func(Value) (Value, error)

// Converters composes steps left-to-right into one Converter, mirroring
// the source's tuple-of-callables converter form.
func Converters(steps ...Converter) Converter {
	return func(v Value) (Value, error) {
		var err error
		for _, step := range steps {
			v, err = step(v)
			if err != nil {
				return Value{}, err
			}
		}
		return v, nil
	}
}

// ConverterByKind dispatches to a per-Kind converter, mirroring the
// source's dict-keyed converter form (converter[type] -> callable). A
// Kind absent from m passes the value through unchanged.
func ConverterByKind(m map[Kind]Converter) Converter {
	return func(v Value) (Value, error) {
		if step, ok := m[v.Kind]; ok {
			return step(v)
		}
		return v, nil
	}
}

var unquotedKeyRe = regexp.MustCompile(`^[A-Za-z0-9._/+-]*$`)

// encoder holds one Dump call's style and in-progress cycle markers
// (§4.9): arrays are tracked by the address of their backing storage,
// maps by their pointer identity.
type encoder struct {
	alwaysShort  bool
	colon, comma string
	convert      Converter

	arrMarkers map[uintptr]bool
	mapMarkers map[*Map]bool
}

func newEncoder(style Style, converter Converter) *encoder {
	e := &encoder{
		convert:    converter,
		arrMarkers: make(map[uintptr]bool),
		mapMarkers: make(map[*Map]bool),
	}
	switch style {
	case StyleShort:
		e.alwaysShort = true
		e.colon, e.comma = ": ", ", "
	case StyleMinified:
		e.alwaysShort = true
		e.colon, e.comma = ":", ","
	default:
		e.alwaysShort = false
		e.colon, e.comma = ": ", ", "
	}
	return e
}

// Dump writes the canonical text form of v to w (§6.5). Style selects
// between the default (each value's own short/long eligibility), forced
// short, and minified renderings; converter, if non-nil, rewrites values
// on the way down the tree.
func Dump(w io.Writer, v Value, style Style, converter Converter) error {
	e := newEncoder(style, converter)
	var b strings.Builder

	root, err := e.applyConverter(v)
	if err != nil {
		return err
	}
	if e.shouldDumpShort(root) {
		err = e.dumpShort(&b, root)
	} else {
		err = e.dumpLong(&b, root, "")
	}
	if err != nil {
		return err
	}
	if !e.alwaysShort {
		b.WriteByte('\n')
	}
	_, err = io.WriteString(w, b.String())
	return err
}

// Dumps is Dump into a string.
func Dumps(v Value, style Style, converter Converter) (string, error) {
	var b strings.Builder
	if err := Dump(&b, v, style, converter); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *encoder) applyConverter(v Value) (Value, error) {
	if e.convert == nil {
		return v, nil
	}
	return e.convert(v)
}

// shouldDumpShort implements the value classifier (S2, §4.8).
func (e *encoder) shouldDumpShort(v Value) bool {
	if e.alwaysShort {
		return true
	}
	switch v.Kind {
	case KindNull, KindBool, KindInt, KindFloat:
		return true
	case KindData:
		return len(v.Data) <= 4
	case KindString:
		return shouldDumpShortString(v.Str)
	case KindArray:
		return shouldDumpShortArray(v.Array)
	case KindMap:
		return shouldDumpShortMap(v.Map)
	default:
		return false
	}
}

// shouldDumpShortString mirrors dump.py's _should_dump_short_string: a
// control character (including a literal tab, which would otherwise be
// unreadable inside a wrapped long-form paragraph) forces short form so
// it is escaped rather than embedded raw; a forced escape also applies to
// a smuggled surrogate half, so every surrogate-bearing string is routed
// through dumpShortString's per-code-point check instead of slipping
// past it inside a long-form string that no caller independently
// classified (§8: "strings containing \uD800..\uDFFF fail to serialise",
// unconditionally).
func shouldDumpShortString(s string) bool {
	if containsForcedShortByte(s) || containsSurrogate(s) {
		return true
	}
	if strings.ContainsRune(s, '\n') {
		return false
	}
	return codePointLen(s) < 72
}

func containsForcedShortByte(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b <= 0x09 || (b >= 0x0B && b <= 0x1F) || b == 0x7F {
			return true
		}
	}
	return false
}

func containsSurrogate(s string) bool {
	for _, cp := range utf8x.CodePoints(s) {
		if utf8x.IsSurrogate(cp) {
			return true
		}
	}
	return false
}

// shouldDumpShortArray and shouldDumpShortMap mirror the source exactly:
// only a null/bool/int/float member permits the shallow short form, so a
// container nesting a string, data, array, or map child (however short
// that child might individually render) forces the parent long.
func shouldDumpShortArray(a []Value) bool {
	for _, x := range a {
		if !isShallowScalar(x.Kind) {
			return false
		}
	}
	return true
}

func shouldDumpShortMap(m *Map) bool {
	short := true
	m.Range(func(_ string, v Value) bool {
		if !isShallowScalar(v.Kind) {
			short = false
			return false
		}
		return true
	})
	return short
}

func isShallowScalar(k Kind) bool {
	switch k {
	case KindNull, KindBool, KindInt, KindFloat:
		return true
	default:
		return false
	}
}

// dumpShort renders v in its one-line short form.
func (e *encoder) dumpShort(b *strings.Builder, v Value) error {
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(boolStr(v.Bool))
	case KindInt:
		b.WriteString(numfmt.Int(v.Int))
	case KindFloat:
		b.WriteString(numfmt.Float(v.Float))
	case KindData:
		dumpShortData(b, v.Data)
	case KindString:
		return dumpShortString(b, v.Str)
	case KindArray:
		return e.dumpShortArray(b, v.Array)
	case KindMap:
		return e.dumpShortMap(b, v.Map)
	default:
		return pnerr.ErrUnsupportedType
	}
	return nil
}

// dumpLong renders v in its multi-line long form at the given indent
// (the indent string already in force for v itself, not its children).
func (e *encoder) dumpLong(b *strings.Builder, v Value, indent string) error {
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(boolStr(v.Bool))
	case KindInt:
		b.WriteString(numfmt.Int(v.Int))
	case KindFloat:
		b.WriteString(numfmt.Float(v.Float))
	case KindData:
		dumpLongData(b, v.Data, indent)
	case KindString:
		return dumpLongString(b, v.Str, indent)
	case KindArray:
		return e.dumpLongArray(b, v.Array, indent)
	case KindMap:
		return e.dumpLongMap(b, v.Map, indent)
	default:
		return pnerr.ErrUnsupportedType
	}
	return nil
}

func boolStr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func dumpShortData(b *strings.Builder, d []byte) {
	b.WriteByte('$')
	for _, x := range d {
		fmt.Fprintf(b, "%02x", x)
	}
}

// dumpLongData mirrors dump.py's _dump_long_data: 32 bytes per line led
// by "$\t", a space every 4 bytes within a line.
func dumpLongData(b *strings.Builder, d []byte, indent string) {
	for i, x := range d {
		switch {
		case i == 0:
			b.WriteString("$\t")
		case i%32 == 0:
			b.WriteByte('\n')
			b.WriteString(indent)
			b.WriteString("$\t")
		case i%4 == 0:
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "%02x", x)
	}
}

// dumpShortString quotes and escapes s per §4.5/§4.7: seven backslash
// escapes (every single-character escape the lexer accepts except \/),
// \u/\U for anything else
// unprintable, and an error for any surrogate scalar value (§7, §8).
func dumpShortString(b *strings.Builder, s string) error {
	b.WriteByte('"')
	for _, cp := range utf8x.CodePoints(s) {
		switch cp {
		case '\b':
			b.WriteString(`\b`)
			continue
		case '\f':
			b.WriteString(`\f`)
			continue
		case '\n':
			b.WriteString(`\n`)
			continue
		case '\r':
			b.WriteString(`\r`)
			continue
		case '\t':
			b.WriteString(`\t`)
			continue
		case '"':
			b.WriteString(`\"`)
			continue
		case '\\':
			b.WriteString(`\\`)
			continue
		}
		if utf8x.IsSurrogate(cp) {
			return pnerr.ErrSurrogate
		}
		if !unicode.IsPrint(cp) {
			if cp < 0x10000 {
				fmt.Fprintf(b, `\u%04x`, cp)
			} else {
				fmt.Fprintf(b, `\U%08x`, cp)
			}
			continue
		}
		b.WriteRune(cp)
	}
	b.WriteByte('"')
	return nil
}

// dumpLongString mirrors dump.py's _dump_long_string: paragraphs split on
// "\n", each wrapped at 72 columns preferring a space break, rendered as
// a run of '>' (wrap) or '|' lead lines, with a trailing '!' appended
// when the original value did not itself end in a newline. A paragraph
// starts with '|' when it is non-empty and follows another non-empty
// paragraph; every other paragraph, the empty ones included, starts
// with '>'.
func dumpLongString(b *strings.Builder, s string, indent string) error {
	paragraphs := strings.Split(s, "\n")
	trailingNewline := paragraphs[len(paragraphs)-1] == ""
	if trailingNewline {
		paragraphs = paragraphs[:len(paragraphs)-1]
	}

	prefix := "\n" + indent
	havePrefix := false
	canUseGt := true
	for _, paragraph := range paragraphs {
		if havePrefix {
			b.WriteString(prefix)
		} else {
			havePrefix = true
		}

		if canUseGt || paragraph == "" {
			b.WriteByte('>')
		} else {
			b.WriteByte('|')
		}
		if paragraph == "" {
			canUseGt = true
			continue
		}
		canUseGt = false

		b.WriteByte('\t')
		lineHave := false
		linePrefix := "\n" + indent + ">\t"
		for _, line := range wrapLines(paragraph) {
			if lineHave {
				b.WriteString(linePrefix)
			} else {
				lineHave = true
			}
			b.WriteString(line)
		}
	}

	if !trailingNewline {
		b.WriteString(prefix)
		b.WriteByte('!')
	}
	return nil
}

// wrapLines mirrors dump.py's _wrap_lines: greedily take 73 code points,
// then back off to the nearest space (preferring one inside the taken
// chunk, falling back to one just past it) so a paragraph wraps without
// splitting a word whenever a break point exists.
func wrapLines(s string) []string {
	var out []string
	for {
		if codePointLen(s) <= 72 {
			out = append(out, s)
			return out
		}
		head, tail := splitAtCodePoint(s, 73)
		if idx := strings.LastIndex(head, " "); idx >= 0 {
			line, lineTail := head[:idx], head[idx+1:]
			if lineTail != "" || tail != "" {
				out = append(out, line)
				s = lineTail + tail
				continue
			}
			out = append(out, s)
			return out
		}
		if idx := strings.Index(tail, " "); idx >= 0 {
			lineTail, rest := tail[:idx], tail[idx+1:]
			out = append(out, head+lineTail)
			s = rest
			continue
		}
		out = append(out, s)
		return out
	}
}

func codePointLen(s string) int {
	return utf8.RuneCountInString(s)
}

func splitAtCodePoint(s string, n int) (string, string) {
	r := []rune(s)
	if n > len(r) {
		n = len(r)
	}
	return string(r[:n]), string(r[n:])
}

func (e *encoder) dumpShortArray(b *strings.Builder, a []Value) error {
	id, tracked := arrayIdent(a)
	if tracked {
		if e.arrMarkers[id] {
			return pnerr.ErrCircular
		}
		e.arrMarkers[id] = true
		defer delete(e.arrMarkers, id)
	}
	b.WriteByte('[')
	sep := ""
	for _, x := range a {
		if sep != "" {
			b.WriteString(sep)
		} else {
			sep = e.comma
		}
		if err := e.dumpShort(b, x); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

// dumpLongArray mirrors dump.py's _dump_long_array: each element sits
// under its own "*\t" lead, re-converted and re-classified independently
// of the array's own (already long) form.
func (e *encoder) dumpLongArray(b *strings.Builder, a []Value, indent string) error {
	id, tracked := arrayIdent(a)
	if tracked {
		if e.arrMarkers[id] {
			return pnerr.ErrCircular
		}
		e.arrMarkers[id] = true
		defer delete(e.arrMarkers, id)
	}
	prefix := "*\t"
	tailPrefix := "\n" + indent + "*\t"
	childIndent := indent + "\t"
	for _, x := range a {
		b.WriteString(prefix)
		prefix = tailPrefix
		x, err := e.applyConverter(x)
		if err != nil {
			return err
		}
		if e.shouldDumpShort(x) {
			err = e.dumpShort(b, x)
		} else {
			err = e.dumpLong(b, x, childIndent)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func arrayIdent(a []Value) (uintptr, bool) {
	if len(a) == 0 {
		return 0, false
	}
	return reflect.ValueOf(a).Pointer(), true
}

// dumpKey renders a map key unquoted when it matches the bare-key
// charset (§6.1), quoted short-string otherwise (§4.9).
func (e *encoder) dumpKey(k string) (string, error) {
	if unquotedKeyRe.MatchString(k) {
		return k, nil
	}
	var b strings.Builder
	if err := dumpShortString(&b, k); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *encoder) dumpShortMap(b *strings.Builder, m *Map) error {
	if m != nil {
		if e.mapMarkers[m] {
			return pnerr.ErrCircular
		}
		e.mapMarkers[m] = true
		defer delete(e.mapMarkers, m)
	}
	b.WriteByte('{')
	sep := ""
	var outerErr error
	m.Range(func(k string, v Value) bool {
		key, err := e.dumpKey(k)
		if err != nil {
			outerErr = err
			return false
		}
		if sep != "" {
			b.WriteString(sep)
		} else {
			sep = e.comma
		}
		b.WriteString(key)
		b.WriteString(e.colon)
		if err := e.dumpShort(b, v); err != nil {
			outerErr = err
			return false
		}
		return true
	})
	if outerErr != nil {
		return outerErr
	}
	b.WriteByte('}')
	return nil
}

// dumpLongMap mirrors dump.py's _dump_long_map: entries whose value
// renders short have their colons padded to a shared column
// (max-short-key-width + 3, i.e. ": " plus one more space of slack); an
// entry whose value renders long either starts on the next indented line
// or, for the degenerate empty-key case, right after a bare "\t".
func (e *encoder) dumpLongMap(b *strings.Builder, m *Map, indent string) error {
	if m != nil {
		if e.mapMarkers[m] {
			return pnerr.ErrCircular
		}
		e.mapMarkers[m] = true
		defer delete(e.mapMarkers, m)
	}

	tailPrefix := "\n" + indent
	childIndent := indent + "\t"

	type row struct {
		key   string
		value Value
		short bool
	}
	var rows []row
	maxShortKeyWidth := 0

	var rowErr error
	m.Range(func(k string, v Value) bool {
		key, err := e.dumpKey(k)
		if err != nil {
			rowErr = err
			return false
		}
		v, err = e.applyConverter(v)
		if err != nil {
			rowErr = err
			return false
		}
		short := e.shouldDumpShort(v)
		if short {
			if w := codePointLen(key); w > maxShortKeyWidth {
				maxShortKeyWidth = w
			}
		}
		rows = append(rows, row{key: key, value: v, short: short})
		return true
	})
	if rowErr != nil {
		return rowErr
	}

	prefix := ""
	for _, r := range rows {
		b.WriteString(prefix)
		prefix = tailPrefix

		if r.short {
			label := r.key + ":"
			b.WriteString(label)
			for i := codePointLen(label); i < maxShortKeyWidth+3; i++ {
				b.WriteByte(' ')
			}
			if err := e.dumpShort(b, r.value); err != nil {
				return err
			}
			continue
		}

		b.WriteString(r.key)
		if r.key != "" {
			b.WriteString(":\n")
			b.WriteString(childIndent)
		} else {
			b.WriteString(":\t")
		}
		if err := e.dumpLong(b, r.value, childIndent); err != nil {
			return err
		}
	}
	return nil
}

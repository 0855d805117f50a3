// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package pnjson bridges Procyon and JSON (§1, §6.5's "JSON encoder/
// decoder bridge"): ToJSON translates a Procyon document's parse event
// stream directly into JSON text without ever building a value tree,
// grounded in original_source/src/python/procyon/pn2json.py; FromJSON
// decodes JSON into a procyon.Value and hands it to Dump, grounded in
// json2pn.py's one-line "parse JSON, then run it through dump()".
package pnjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/arescentral/procyon"
	"github.com/arescentral/procyon/lex"
	"github.com/arescentral/procyon/parse"
)

// ToJSON reads a complete Procyon document from r and writes its JSON
// equivalent to w. It streams parse events straight to output, tracking
// short- and long-form nesting depth independently to decide where
// commas, newlines, and indentation belong, exactly as pn2json.py's
// to_json does.
func ToJSON(w io.Writer, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p := parse.New(lex.New(data))

	var out strings.Builder
	longDepth, shortDepth := 0, 0
	isFirstItem, isFirstEvent := true, true

	for {
		ev, ok, err := p.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		insideShort := shortDepth > 0
		isIn := ev.Kind == parse.ARRAY_IN || ev.Kind == parse.MAP_IN
		isOut := ev.Kind == parse.ARRAY_OUT || ev.Kind == parse.MAP_OUT

		switch {
		case isOut:
			if !insideShort {
				out.WriteByte('\n')
				out.WriteString(strings.Repeat("\t", longDepth-1))
			}
		case !isFirstItem:
			if insideShort {
				out.WriteString(", ")
			} else {
				out.WriteString(",\n")
				out.WriteString(strings.Repeat("\t", longDepth))
			}
		case !(insideShort || isFirstEvent):
			out.WriteByte('\n')
			out.WriteString(strings.Repeat("\t", longDepth))
		}

		if ev.HasKey {
			writeJSONString(&out, ev.Key)
			out.WriteString(": ")
		}
		if err := writeJSONEvent(&out, ev); err != nil {
			return err
		}

		isFirstEvent = false
		isFirstItem = isIn
		switch {
		case isIn:
			if ev.Form == parse.Short {
				shortDepth++
			} else {
				longDepth++
			}
		case isOut:
			if ev.Form == parse.Short {
				shortDepth--
			} else {
				longDepth--
			}
		}
	}
	out.WriteByte('\n')
	_, err = io.WriteString(w, out.String())
	return err
}

func writeJSONEvent(out *strings.Builder, ev parse.Event) error {
	switch ev.Kind {
	case parse.NULL:
		out.WriteString("null")
	case parse.BOOL:
		if ev.Value.(bool) {
			out.WriteString("true")
		} else {
			out.WriteString("false")
		}
	case parse.INT:
		out.WriteString(strconv.FormatInt(ev.Value.(int64), 10))
	case parse.FLOAT:
		s, err := jsonFloat(ev.Value.(float64))
		if err != nil {
			return err
		}
		out.WriteString(s)
	case parse.DATA:
		out.WriteByte('"')
		for _, b := range ev.Value.([]byte) {
			fmt.Fprintf(out, "%02x", b)
		}
		out.WriteByte('"')
	case parse.STRING:
		writeJSONString(out, ev.Value.(string))
	case parse.ARRAY_IN:
		out.WriteByte('[')
	case parse.ARRAY_OUT:
		out.WriteByte(']')
	case parse.MAP_IN:
		out.WriteByte('{')
	case parse.MAP_OUT:
		out.WriteByte('}')
	}
	return nil
}

// jsonFloat mirrors pn2json.py's _jsonify_scalar: JSON has no spelling
// for NaN/Infinity, so nan maps to "null" and the infinities map to the
// oversized-exponent literals "1e999"/"-1e999" that every JSON number
// parser reads back as +/-Infinity.
func jsonFloat(f float64) (string, error) {
	switch {
	case math.IsNaN(f):
		return "null", nil
	case math.IsInf(f, 1):
		return "1e999", nil
	case math.IsInf(f, -1):
		return "-1e999", nil
	}
	b, err := json.Marshal(f)
	return string(b), err
}

func writeJSONString(out *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	out.WriteString(strings.TrimSuffix(buf.String(), "\n"))
}

// FromJSON reads a complete JSON document from r, decodes it into a
// Procyon value tree (preserving object key order via token-by-token
// decoding rather than encoding/json's order-losing map[string]any), and
// writes its canonical Procyon form to w.
func FromJSON(w io.Writer, r io.Reader) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	v, err := decodeToken(dec, tok)
	if err != nil {
		return err
	}
	return procyon.Dump(w, v, procyon.StyleDefault, nil)
}

func decodeToken(dec *json.Decoder, tok json.Token) (procyon.Value, error) {
	switch t := tok.(type) {
	case nil:
		return procyon.Null(), nil
	case bool:
		return procyon.Bool(t), nil
	case json.Number:
		return decodeNumber(t)
	case string:
		return procyon.String(t), nil
	case json.Delim:
		switch t {
		case '[':
			return decodeArray(dec)
		case '{':
			return decodeObject(dec)
		}
	}
	return procyon.Value{}, fmt.Errorf("pnjson: unexpected token %v", tok)
}

func decodeNumber(n json.Number) (procyon.Value, error) {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return procyon.Value{}, err
		}
		return procyon.Float(f), nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return procyon.Value{}, fmt.Errorf("pnjson: integer %s is outside Procyon's signed 64-bit range", s)
	}
	return procyon.Int(i), nil
}

func decodeArray(dec *json.Decoder) (procyon.Value, error) {
	var items []procyon.Value
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return procyon.Value{}, err
		}
		v, err := decodeToken(dec, tok)
		if err != nil {
			return procyon.Value{}, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return procyon.Value{}, err
	}
	return procyon.NewArray(items), nil
}

func decodeObject(dec *json.Decoder) (procyon.Value, error) {
	m := procyon.NewOrderedMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return procyon.Value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return procyon.Value{}, fmt.Errorf("pnjson: object key is not a string: %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return procyon.Value{}, err
		}
		v, err := decodeToken(dec, valTok)
		if err != nil {
			return procyon.Value{}, err
		}
		m.Set(key, v)
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return procyon.Value{}, err
	}
	return procyon.NewMap(m), nil
}

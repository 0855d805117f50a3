// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package procyon

import (
	"io"

	"github.com/arescentral/procyon/lex"
	"github.com/arescentral/procyon/parse"
	"github.com/arescentral/procyon/pnerr"
)

// frame is one in-progress container while building the tree: it mirrors
// the parser's own stack one level up, plus the key pending for a map's
// next entry.
type frame struct {
	v       Value
	pending string
}

// Load reads a complete Procyon document from r and builds its value
// tree, grounded on decode.py's event-driven builder: a stack of
// in-progress containers (plus pending keys for maps) mirrors the
// parser's own stack, so container nesting costs nothing beyond what the
// parser already pays for.
func Load(r io.Reader) (Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Value{}, err
	}
	return Loads(data)
}

// Loads builds a value tree from a complete in-memory document.
func Loads(data []byte) (Value, error) {
	p := parse.New(lex.New(data))

	var stack []frame
	var root Value
	haveRoot := false

	setPending := func(ev parse.Event) {
		if ev.HasKey && len(stack) > 0 {
			stack[len(stack)-1].pending = ev.Key
		}
	}

	attach := func(v Value) {
		if len(stack) == 0 {
			root = v
			haveRoot = true
			return
		}
		top := &stack[len(stack)-1]
		switch top.v.Kind {
		case KindArray:
			top.v.Array = append(top.v.Array, v)
		case KindMap:
			top.v.Map.Set(top.pending, v)
			top.pending = ""
		}
	}

	formOf := func(ev parse.Event) Form {
		if ev.Form == parse.Long {
			return FormLong
		}
		return FormShort
	}

	for {
		ev, ok, err := p.Next()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			break
		}

		switch ev.Kind {
		case parse.NULL:
			setPending(ev)
			attach(Value{Kind: KindNull, Form: formOf(ev)})
		case parse.BOOL:
			setPending(ev)
			attach(Value{Kind: KindBool, Bool: ev.Value.(bool), Form: formOf(ev)})
		case parse.INT:
			setPending(ev)
			attach(Value{Kind: KindInt, Int: ev.Value.(int64), Form: formOf(ev)})
		case parse.FLOAT:
			setPending(ev)
			attach(Value{Kind: KindFloat, Float: ev.Value.(float64), Form: formOf(ev)})
		case parse.DATA:
			setPending(ev)
			attach(Value{Kind: KindData, Data: ev.Value.([]byte), Form: formOf(ev)})
		case parse.STRING:
			setPending(ev)
			attach(Value{Kind: KindString, Str: ev.Value.(string), Form: formOf(ev)})
		case parse.ARRAY_IN:
			setPending(ev)
			stack = append(stack, frame{v: Value{Kind: KindArray, Form: formOf(ev)}})
		case parse.MAP_IN:
			setPending(ev)
			stack = append(stack, frame{v: Value{Kind: KindMap, Map: NewOrderedMap(), Form: formOf(ev)}})
		case parse.ARRAY_OUT, parse.MAP_OUT:
			done := stack[len(stack)-1].v
			stack = stack[:len(stack)-1]
			attach(done)
		}
	}

	if !haveRoot {
		return Value{}, &pnerr.DecodeError{Code: pnerr.INTERNAL, Line: 1, Column: 1}
	}
	return root, nil
}

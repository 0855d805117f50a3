// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package procyon_test

import (
	"math"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/arescentral/procyon"
	"github.com/arescentral/procyon/pnerr"
)

// Pinned against original_source/src/python/test/load_test.py: loads()
// reduces the parser's event stream to a value tree via an explicit
// container stack, and these cases are transcribed from that suite's own
// assertions (test_constants, test_integer, test_data, test_xstring,
// test_xlist, test_map).
func loadString(t *testing.T, s string) procyon.Value {
	t.Helper()
	v, err := procyon.Loads([]byte(s))
	if err != nil {
		t.Fatalf("Loads(%q): %v", s, err)
	}
	return v
}

func TestLoadConstants(t *testing.T) {
	if v := loadString(t, "null"); !v.IsNull() {
		t.Errorf("null: got %v", v)
	}
	if v := loadString(t, "true"); !v.Bool {
		t.Errorf("true: got %v", v)
	}
	if v := loadString(t, "false"); v.Bool {
		t.Errorf("false: got %v", v)
	}
	if v := loadString(t, "inf"); v.Float != math.Inf(1) {
		t.Errorf("inf: got %v", v.Float)
	}
	if v := loadString(t, "-inf"); v.Float != math.Inf(-1) {
		t.Errorf("-inf: got %v", v.Float)
	}
	if v := loadString(t, "nan"); !math.IsNaN(v.Float) {
		t.Errorf("nan: got %v", v.Float)
	}
	if _, err := procyon.Loads([]byte("floop")); err == nil {
		t.Error("floop: expected a decode error")
	}
}

func TestLoadInteger(t *testing.T) {
	if v := loadString(t, "9223372036854775807"); v.Int != math.MaxInt64 {
		t.Errorf("max int: got %d", v.Int)
	}
	if v := loadString(t, "-9223372036854775808"); v.Int != math.MinInt64 {
		t.Errorf("min int: got %d", v.Int)
	}
	if _, err := procyon.Loads([]byte("9223372036854775808")); !errIs(err, pnerr.INT_OVERFLOW) {
		t.Errorf("overflow: got %v", err)
	}
	if _, err := procyon.Loads([]byte("-9223372036854775809")); !errIs(err, pnerr.INT_OVERFLOW) {
		t.Errorf("underflow: got %v", err)
	}
}

func errIs(err error, code pnerr.Code) bool {
	de, ok := err.(*pnerr.DecodeError)
	return ok && de.Code == code
}

func TestLoadData(t *testing.T) {
	if v := loadString(t, "$"); len(v.Data) != 0 {
		t.Errorf("empty data: got %v", v.Data)
	}
	if _, err := procyon.Loads([]byte("$0")); err == nil {
		t.Error("odd nibble: expected an error")
	}
	v := loadString(t, "$00112233")
	if diff := deep.Equal(v.Data, []byte{0x00, 0x11, 0x22, 0x33}); diff != nil {
		t.Errorf("data: %v", diff)
	}
	multi := loadString(t, "$ 00\n$ 01\n")
	if diff := deep.Equal(multi.Data, []byte{0x00, 0x01}); diff != nil {
		t.Errorf("multi-line data: %v", diff)
	}
	withComments := loadString(t, "# 00\n$ 01\n# 02\n$ 03\n# 04\n")
	if diff := deep.Equal(withComments.Data, []byte{0x01, 0x03}); diff != nil {
		t.Errorf("data with comments: %v", diff)
	}
}

func TestLoadStringEscapes(t *testing.T) {
	if v := loadString(t, `""`); v.Str != "" {
		t.Errorf("empty: got %q", v.Str)
	}
	if v := loadString(t, `"\/\"\\\b\f\n\r\t"`); v.Str != "/\"\\\b\f\n\r\t" {
		t.Errorf("escapes: got %q", v.Str)
	}
	if _, err := procyon.Loads([]byte(`"\v"`)); !errIs(err, pnerr.BADESC) {
		t.Errorf("bad escape: got %v", err)
	}
	if v := loadString(t, `"ģ"`); v.Str != "ģ" {
		t.Errorf("non-ASCII: got %q", v.Str)
	}
}

func TestLoadLongString(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want string
	}{
		{">", "\n"},
		{"|", "\n"},
		{"!", ""},
		{">>", ">\n"},
		{"| one\n| two", "one\ntwo\n"},
		{"| one\n> two\n!\n", "one two"},
		{
			">\n> Line two\n> of three.\n>\n",
			"\nLine two of three.\n\n",
		},
		{
			"> One.\n>\n> Two.\n!\n",
			"One.\n\nTwo.",
		},
	} {
		if v := loadString(t, tc.src); v.Str != tc.want {
			t.Errorf("loads(%q) = %q, want %q", tc.src, v.Str, tc.want)
		}
	}
	if _, err := procyon.Loads([]byte("!!")); err == nil {
		t.Error("!! : expected an error")
	}
	if _, err := procyon.Loads([]byte("!\n>\n")); err == nil {
		t.Error("! then > : expected an error")
	}
}

func TestLoadArray(t *testing.T) {
	v := loadString(t, "[1, [2, [3]]]")
	want := procyon.NewArray([]procyon.Value{
		procyon.Int(1),
		procyon.NewArray([]procyon.Value{
			procyon.Int(2),
			procyon.NewArray([]procyon.Value{procyon.Int(3)}),
		}),
	})
	if diff := deep.Equal(flattenArray(v), flattenArray(want)); diff != nil {
		t.Errorf("nested array: %v", diff)
	}

	for _, bad := range []string{"[", "[1", "[1,", "[}", "[1}", "[1, }"} {
		if _, err := procyon.Loads([]byte(bad)); err == nil {
			t.Errorf("loads(%q): expected an error", bad)
		}
	}
}

func TestLoadLongArray(t *testing.T) {
	v := loadString(t, "* 1\n* * 2\n  * * 3\n")
	want := loadString(t, "[1, [2, [3]]]")
	if diff := deep.Equal(flattenArray(v), flattenArray(want)); diff != nil {
		t.Errorf("long array: %v", diff)
	}

	withComments := loadString(t, "* 1\n# :)\n* 2\n  # :(\n* 3\n# :|\n")
	if diff := deep.Equal(flattenArray(withComments), []any{int64(1), int64(2), int64(3)}); diff != nil {
		t.Errorf("array with comments: %v", diff)
	}

	for _, bad := range []string{"* 1\n  * 2\n    * 3\n", "* * 1\n * 2\n", "*"} {
		if _, err := procyon.Loads([]byte(bad)); err == nil {
			t.Errorf("loads(%q): expected an error", bad)
		}
	}
}

// flattenArray reduces a (possibly nested) array Value to plain int64s
// or nested slices so deep.Equal can compare it without caring about
// Form metadata.
func flattenArray(v procyon.Value) any {
	if v.Kind != procyon.KindArray {
		if v.Kind == procyon.KindInt {
			return v.Int
		}
		return v
	}
	out := make([]any, len(v.Array))
	for i, x := range v.Array {
		out[i] = flattenArray(x)
	}
	return out
}

func TestLoadMap(t *testing.T) {
	v := loadString(t, "{one: 1, two: 2, three: 3}")
	if v.Map.Len() != 3 {
		t.Fatalf("len = %d", v.Map.Len())
	}
	if diff := deep.Equal(v.Map.Keys(), []string{"one", "two", "three"}); diff != nil {
		t.Errorf("key order: %v", diff)
	}
	one, _ := v.Map.Get("one")
	if one.Int != 1 {
		t.Errorf("one = %v", one)
	}

	nested := loadString(t, "{0: {1: {2: 3}}}")
	inner, ok := nested.Map.Get("0")
	if !ok || inner.Kind != procyon.KindMap {
		t.Fatalf("nested map: %v", nested)
	}
}

func TestLoadLongMapKeyOrderAndAlignment(t *testing.T) {
	v := loadString(t, "one: 1\ntwo:  2\n")
	if diff := deep.Equal(v.Map.Keys(), []string{"one", "two"}); diff != nil {
		t.Errorf("key order: %v", diff)
	}
	out, err := procyon.Dumps(v, procyon.StyleDefault, nil)
	if err != nil {
		t.Fatalf("Dumps: %v", err)
	}
	want := "one:  1\ntwo:  2\n"
	if out != want {
		t.Errorf("round-trip = %q, want %q", out, want)
	}
}

func TestLoadRecursionLimit(t *testing.T) {
	// 63 leading '*' before null is accepted; 64 is RECURSION (§8).
	ok := strings.Repeat("* ", 63) + "null\n"
	if _, err := procyon.Loads([]byte(ok)); err != nil {
		t.Errorf("63 deep: %v", err)
	}
	bad := strings.Repeat("* ", 64) + "null\n"
	if _, err := procyon.Loads([]byte(bad)); !errIs(err, pnerr.RECURSION) {
		t.Errorf("64 deep: got %v, want RECURSION", err)
	}
}

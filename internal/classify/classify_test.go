// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package classify_test

import (
	"testing"

	"github.com/arescentral/procyon/internal/classify"
)

func TestStructuralBytes(t *testing.T) {
	for b, want := range map[byte]classify.Class{
		'\t':  classify.Tab,
		'\n':  classify.Newline,
		' ':   classify.Space,
		'0':   classify.Digit,
		'a':   classify.Letter,
		'Z':   classify.Letter,
		'+':   classify.Plus,
		'-':   classify.Minus,
		'.':   classify.Dot,
		'_':   classify.Underscore,
		'/':   classify.FwdSlash,
		'"':   classify.DQuote,
		'\\':  classify.Backslash,
		'$':   classify.Dollar,
		'#':   classify.Hash,
		'[':   classify.LBracket,
		']':   classify.RBracket,
		'{':   classify.LBrace,
		'}':   classify.RBrace,
		',':   classify.Comma,
		':':   classify.Colon,
		'*':   classify.Star,
		'>':   classify.Gt,
		'|':   classify.Pipe,
		'!':   classify.Bang,
		0x00:  classify.Ctrl,
		0x1F:  classify.Ctrl,
		0x7F:  classify.Ctrl,
	} {
		if got := classify.Of(b); got != want {
			t.Errorf("Of(%#02x) = %v, want %v", b, got, want)
		}
	}
}

func TestUTF8LeadRanges(t *testing.T) {
	for _, tc := range []struct {
		b    byte
		n    int
		lo   byte
		hi   byte
		lead bool
	}{
		{0xC2, 1, 0x80, 0xBF, true},
		{0xDF, 1, 0x80, 0xBF, true},
		{0xE0, 2, 0xA0, 0xBF, true},
		{0xE1, 2, 0x80, 0xBF, true},
		{0xED, 2, 0x80, 0x9F, true},
		{0xEE, 2, 0x80, 0xBF, true},
		{0xF0, 3, 0x90, 0xBF, true},
		{0xF1, 3, 0x80, 0xBF, true},
		{0xF4, 3, 0x80, 0x8F, true},
		{0x41, 0, 0, 0, false}, // ordinary ASCII letter
		{0xC0, 0, 0, 0, false}, // illegal
		{0xC1, 0, 0, 0, false}, // illegal
		{0xF5, 0, 0, 0, false}, // illegal
	} {
		c := classify.Of(tc.b)
		if got := classify.IsUTF8Lead(c); got != tc.lead {
			t.Errorf("IsUTF8Lead(%#02x) = %v, want %v", tc.b, got, tc.lead)
		}
		if !tc.lead {
			continue
		}
		n, lo, hi := classify.TailLen(c)
		if n != tc.n || lo != tc.lo || hi != tc.hi {
			t.Errorf("TailLen(%#02x) = (%d, %#02x, %#02x), want (%d, %#02x, %#02x)",
				tc.b, n, lo, hi, tc.n, tc.lo, tc.hi)
		}
	}
}

func TestContinuationAndIllegalBytes(t *testing.T) {
	for b := 0x80; b <= 0xBF; b++ {
		if got := classify.Of(byte(b)); got != classify.UTF8Cont {
			t.Errorf("Of(%#02x) = %v, want UTF8Cont", b, got)
		}
	}
	for _, b := range []byte{0xC0, 0xC1, 0xF5, 0xFF} {
		if got := classify.Of(b); got != classify.UTF8Illegal {
			t.Errorf("Of(%#02x) = %v, want UTF8Illegal", b, got)
		}
	}
}

// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package utf8x_test

import (
	"testing"

	"github.com/arescentral/procyon/internal/utf8x"
)

func TestIsSurrogate(t *testing.T) {
	for _, cp := range []rune{0xD800, 0xDBFF, 0xDC00, 0xDFFF} {
		if !utf8x.IsSurrogate(cp) {
			t.Errorf("IsSurrogate(%#04x) = false, want true", cp)
		}
	}
	for _, cp := range []rune{0xD7FF, 0xE000, 'a'} {
		if utf8x.IsSurrogate(cp) {
			t.Errorf("IsSurrogate(%#04x) = true, want false", cp)
		}
	}
}

func TestEncodeDecodeSurrogateRoundTrips(t *testing.T) {
	for _, cp := range []rune{0xD800, 0xDBFF, 0xDC00, 0xDFFF} {
		buf := utf8x.EncodeSurrogate(nil, cp)
		if len(buf) != 3 {
			t.Fatalf("EncodeSurrogate(%#04x) length = %d, want 3", cp, len(buf))
		}
		got := utf8x.CodePoints(string(buf))
		if len(got) != 1 || got[0] != cp {
			t.Errorf("CodePoints(encode(%#04x)) = %v", cp, got)
		}
	}
}

func TestCodePointsOrdinaryText(t *testing.T) {
	got := utf8x.CodePoints("a½→🈀")
	want := []rune{'a', '½', '→', '🈀'}
	if len(got) != len(want) {
		t.Fatalf("CodePoints length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNeedsEscape(t *testing.T) {
	for _, cp := range []rune{0x00, 0x1F, 0x7F, 0xD800} {
		if !utf8x.NeedsEscape(cp) {
			t.Errorf("NeedsEscape(%#04x) = false, want true", cp)
		}
	}
	for _, cp := range []rune{'a', '½', '→'} {
		if utf8x.NeedsEscape(cp) {
			t.Errorf("NeedsEscape(%q) = true, want false", cp)
		}
	}
}

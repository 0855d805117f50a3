// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package procyon

// Style controls how Dump lays a value tree back out as text (§6.5).
type Style uint8

const (
	// StyleDefault lets the classifier (S2) pick each value's rendering
	// from its current shape alone. It does not reproduce the form a
	// value happened to be read in (Value.Form is descriptive metadata,
	// not an instruction to Dump): re-dumping a long-form four-byte data
	// literal or a short-enough long-form string canonicalises it to the
	// shorter spelling, matching the reference encoder, which carries no
	// memory of source layout at all.
	StyleDefault Style = iota
	// StyleShort renders every value in short form, whatever its size
	// or nesting; it never falls back to long form.
	StyleShort
	// StyleMinified is StyleShort with no padding or optional spacing:
	// the smallest valid rendering.
	StyleMinified
)

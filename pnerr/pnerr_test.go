// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package pnerr_test

import (
	"errors"
	"testing"

	"github.com/arescentral/procyon/pnerr"
)

func TestDecodeErrorFormat(t *testing.T) {
	err := &pnerr.DecodeError{Code: pnerr.OUTDENT, Line: 3, Column: 5}
	want := "3:5: unindent does not match any outer indentation level"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDecodeErrorIsCode(t *testing.T) {
	err := &pnerr.DecodeError{Code: pnerr.BADWORD, Line: 1, Column: 1}
	if !errors.Is(err, pnerr.BADWORD) {
		t.Error("errors.Is(err, BADWORD) = false, want true")
	}
	if errors.Is(err, pnerr.BADESC) {
		t.Error("errors.Is(err, BADESC) = true, want false")
	}
}

func TestUnknownCodeMessage(t *testing.T) {
	if got := pnerr.Code(255).Message(); got != "unknown error" {
		t.Errorf("Message() = %q", got)
	}
}

func TestSerializationErrorsAreSentinels(t *testing.T) {
	if pnerr.ErrCircular.Error() != "circular reference detected" {
		t.Errorf("ErrCircular = %q", pnerr.ErrCircular.Error())
	}
	if !errors.Is(pnerr.ErrSurrogate, pnerr.ErrSurrogate) {
		t.Error("ErrSurrogate does not compare equal to itself")
	}
}

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package errors_test

import (
	"context"
	goerrors "errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/grailbio/pubfetch/errors"
)

func TestError(t *testing.T) {
	_, err := os.Open("/dev/notexist")
	e1 := errors.E(errors.NotExist, "opening file", err)
	if got, want := e1.Error(), "opening file: resource does not exist: open /dev/notexist: no such file or directory"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	e2 := errors.E(err)
	if got, want := e2.Error(), "resource does not exist: open /dev/notexist: no such file or directory"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	for _, e := range []error{e1, e2} {
		if !errors.Is(errors.NotExist, e) {
			t.Errorf("error %v should be NotExist", e)
		}
	}
}

func TestErrorChaining(t *testing.T) {
	_, err := os.Open("/dev/notexist")
	err = errors.E("failed to open file", err)
	err = errors.E(errors.Temporary, "cannot proceed", err)
	if got, want := err.Error(), "cannot proceed: resource does not exist (temporary):\n\tfailed to open file: open /dev/notexist: no such file or directory"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClassify(t *testing.T) {
	for _, c := range []struct {
		err  error
		kind errors.Kind
	}{
		{fs.ErrNotExist, errors.NotExist},
		{fmt.Errorf("read chapter1.xhtml: %w", fs.ErrClosed), errors.Closed},
		{&fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}, errors.NotAllowed},
		{context.Canceled, errors.Canceled},
		{context.DeadlineExceeded, errors.Timeout},
		{goerrors.New("no idea"), errors.Other},
	} {
		if got, want := errors.Recover(errors.E(c.err)).Kind, c.kind; got != want {
			t.Errorf("error %v: got %v, want %v", c.err, got, want)
		}
	}
}

func TestIsWrapped(t *testing.T) {
	inner := errors.E(errors.Closed, "archive book.epub")
	wrapped := fmt.Errorf("reading entry: %w", inner)
	if !errors.Is(errors.Closed, wrapped) {
		t.Errorf("error %v should be Closed", wrapped)
	}
	if errors.Is(errors.NotExist, wrapped) {
		t.Errorf("error %v should not be NotExist", wrapped)
	}
	if !goerrors.Is(errors.E("outer", fs.ErrNotExist), fs.ErrNotExist) {
		t.Error("Unwrap does not expose the cause")
	}
}

type temporaryError string

func (t temporaryError) Error() string   { return string(t) }
func (t temporaryError) Temporary() bool { return true }

func TestIsTemporary(t *testing.T) {
	for _, c := range []struct {
		err       error
		temporary bool
	}{
		{errors.E(context.Canceled), false},
		{goerrors.New("no idea"), false},
		{temporaryError(""), true},
		{errors.E(temporaryError(""), errors.NotExist), true},
		{errors.E(errors.Temporary, "failed to open socket"), true},
		{errors.E("no idea"), false},
		{errors.E(errors.Fatal, "fatal error"), false},
	} {
		if got, want := errors.IsTemporary(c.err), c.temporary; got != want {
			t.Errorf("error %v: got %v, want %v", c.err, got, want)
		}
		if c.temporary {
			continue
		}
		if !errors.IsTemporary(errors.E(c.err, errors.Temporary)) {
			t.Errorf("error %v: temporary conversion failed", c.err)
		}
	}
}

func TestMatch(t *testing.T) {
	err := errors.E(errors.NotExist, "missing.xhtml", errors.E("lookup"))
	for _, c := range []struct {
		pattern error
		match   bool
	}{
		{errors.E(errors.NotExist), true},
		{errors.E(errors.Closed), false},
		{errors.E("missing.xhtml"), true},
		{errors.E("chapter1.xhtml"), false},
		{errors.E(errors.NotExist, "missing.xhtml", errors.E("lookup")), true},
	} {
		if got, want := errors.Match(c.pattern, err), c.match; got != want {
			t.Errorf("match %v against %v: got %v, want %v", c.pattern, err, got, want)
		}
	}
}

func TestVisit(t *testing.T) {
	cause := goerrors.New("eof")
	err := errors.E("a", errors.E("b", cause))
	var n int
	errors.Visit(err, func(error) { n++ })
	if got, want := n, 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package multierror collects the errors of operations that all run to
// completion regardless of each other's failures, such as closing every
// backend of a composite fetcher.
package multierror

import (
	"fmt"
	"strings"
	"sync"
)

// MultiError gathers up to a fixed number of errors and counts the rest.
// It is safe for concurrent use. Usage:
//
//	errs := multierror.NewMultiError(len(closers))
//	for _, c := range closers {
//		errs.Add(c.Close(ctx))
//	}
//	return errs.ErrorOrNil()
type MultiError struct {
	mu      sync.Mutex
	errs    []error
	dropped int
}

// NewMultiError returns a MultiError that keeps at most max errors.
func NewMultiError(max int) *MultiError {
	return &MultiError{errs: make([]error, 0, max)}
}

// Add records err. Nil errors are ignored; a *MultiError is flattened
// into its errors.
func (me *MultiError) Add(err error) *MultiError {
	if err == nil || me == nil {
		return me
	}
	me.mu.Lock()
	defer me.mu.Unlock()
	if multi, ok := err.(*MultiError); ok {
		multi.mu.Lock()
		errs, dropped := multi.errs, multi.dropped
		multi.mu.Unlock()
		for _, e := range errs {
			me.add(e)
		}
		me.dropped += dropped
		return me
	}
	me.add(err)
	return me
}

func (me *MultiError) add(err error) {
	if len(me.errs) == cap(me.errs) {
		me.dropped++
		return
	}
	me.errs = append(me.errs, err)
}

// Unwrap returns the kept errors, so that the standard errors.Is and
// errors.As look into each of them.
func (me *MultiError) Unwrap() []error {
	me.mu.Lock()
	defer me.mu.Unlock()
	return append([]error(nil), me.errs...)
}

// Error implements error. A single error is printed as is; several are
// printed one per line, in brackets.
func (me *MultiError) Error() string {
	if me == nil {
		return ""
	}
	me.mu.Lock()
	defer me.mu.Unlock()
	switch len(me.errs) {
	case 0:
		return ""
	case 1:
		if me.dropped == 0 {
			return me.errs[0].Error()
		}
	}
	s := make([]string, len(me.errs))
	for i, e := range me.errs {
		s[i] = e.Error()
	}
	msg := "[" + strings.Join(s, "\n") + "]"
	if me.dropped > 0 {
		msg += fmt.Sprintf(" [plus %d other error(s)]", me.dropped)
	}
	return msg
}

// ErrorOrNil returns nil if no error was added, me otherwise.
func (me *MultiError) ErrorOrNil() error {
	if me == nil {
		return nil
	}
	me.mu.Lock()
	defer me.mu.Unlock()
	if len(me.errs) == 0 {
		return nil
	}
	return me
}

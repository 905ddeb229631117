// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package log provides simple level logging for the fetchers and
// sniffers in this module. Log output is implemented by an
// outputter, which by default outputs to Go's logging package. Hosts
// that have their own logging can install an Outputter so that
// output from this module is unified with theirs.
//
// Library code logs sparingly: Debug for handle lifecycle (archives
// opened and closed), Error for failures that are swallowed during
// cleanup and therefore cannot be returned to a caller.
//
// If a binary wishes to configure logging levels by standard flags,
// it should call log.AddFlags before flag.Parse.
package log

import (
	"fmt"
	"os"
	"sync/atomic"
)

// An Outputter receives the messages logged through this package.
type Outputter interface {
	// Level is the most verbose level the outputter accepts.
	Level() Level
	// Output emits s, logged at level. Calldepth counts the stack
	// frames between the caller that logged s and Output, for
	// outputters that report source locations.
	Output(calldepth int, level Level, s string) error
}

type outputterBox struct{ Outputter }

var out atomic.Pointer[outputterBox]

func init() {
	out.Store(&outputterBox{gologOutputter{}})
}

func current() Outputter { return out.Load().Outputter }

// SetOutputter installs o as the destination of log messages and
// returns the previous one. It is safe to call while other goroutines
// log; messages in flight may go to either outputter.
func SetOutputter(o Outputter) Outputter {
	return out.Swap(&outputterBox{o}).Outputter
}

// GetOutputter returns the installed outputter.
func GetOutputter() Outputter { return current() }

// At tells whether messages at level are currently emitted.
func At(level Level) bool {
	return level <= current().Level()
}

// Output sends s to the installed outputter at level. Calldepth is
// relative to the caller of Output.
func Output(calldepth int, level Level, s string) error {
	return current().Output(calldepth+1, level, s)
}

// A Level is a log verbosity level. A message at level M is emitted
// when the outputter's level L satisfies M <= L, so higher levels are
// chattier.
type Level int

const (
	// Off emits nothing.
	Off = Level(-3)
	// Error is for failures that cannot be returned to a caller.
	Error = Level(-2)
	// Info is the default level.
	Info = Level(0)
	// Debug is for handle lifecycle and other tracing.
	Debug = Level(1)
)

var levelNames = map[Level]string{Off: "off", Error: "error", Info: "info", Debug: "debug"}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) emit(s func() string) {
	if o := current(); l <= o.Level() {
		_ = o.Output(3, l, s())
	}
}

// Print logs at level l, formatting in the manner of fmt.Sprint.
func (l Level) Print(v ...interface{}) {
	l.emit(func() string { return fmt.Sprint(v...) })
}

// Println logs at level l, formatting in the manner of fmt.Sprintln.
func (l Level) Println(v ...interface{}) {
	l.emit(func() string { return fmt.Sprintln(v...) })
}

// Printf logs at level l, formatting in the manner of fmt.Sprintf.
func (l Level) Printf(format string, v ...interface{}) {
	l.emit(func() string { return fmt.Sprintf(format, v...) })
}

// Print logs at the Info level, formatting in the manner of fmt.Sprint.
func Print(v ...interface{}) {
	Info.emit(func() string { return fmt.Sprint(v...) })
}

// Printf logs at the Info level, formatting in the manner of
// fmt.Sprintf.
func Printf(format string, v ...interface{}) {
	Info.emit(func() string { return fmt.Sprintf(format, v...) })
}

// Fatal logs at the Error level, formatting in the manner of
// fmt.Sprint, and exits with status 1. It is meant for binaries;
// library code returns errors instead.
func Fatal(v ...interface{}) {
	_ = current().Output(2, Error, fmt.Sprint(v...))
	os.Exit(1)
}

// Outputf sends a message formatted in the manner of fmt.Sprintf to o,
// bypassing the installed outputter.
func Outputf(o Outputter, level Level, format string, v ...interface{}) {
	_ = o.Output(2, level, fmt.Sprintf(format, v...))
}

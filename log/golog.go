// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package log

import (
	"flag"
	"fmt"
	"io"
	golog "log"
	"sync/atomic"
)

// golevel is the level of the default outputter, which writes to Go's
// standard logger.
var golevel atomic.Int64

func init() {
	golevel.Store(int64(Info))
}

var flagsAdded atomic.Bool

// AddFlags registers the -log level flag on flag.CommandLine. It must
// be called at most once, before flag.Parse.
func AddFlags() {
	if !flagsAdded.CompareAndSwap(false, true) {
		panic("log.AddFlags: called twice")
	}
	flag.Var(new(levelFlag), "log", "set log level (off, error, info, debug)")
}

// Flags of the standard logger, for SetFlags.
const (
	Ldate         = golog.Ldate
	Ltime         = golog.Ltime
	Lmicroseconds = golog.Lmicroseconds
	Lshortfile    = golog.Lshortfile
	LUTC          = golog.LUTC
	LstdFlags     = golog.LstdFlags
)

// SetFlags sets the output flags of Go's standard logger.
func SetFlags(flag int) { golog.SetFlags(flag) }

// SetOutput sets the destination of Go's standard logger.
func SetOutput(w io.Writer) { golog.SetOutput(w) }

// SetLevel sets the level of the default outputter.
func SetLevel(level Level) { golevel.Store(int64(level)) }

// ParseLevel parses a level name as printed by Level.String.
func ParseLevel(name string) (Level, error) {
	for l, n := range levelNames {
		if n == name {
			return l, nil
		}
	}
	return Off, fmt.Errorf("invalid log level %q", name)
}

// levelFlag is a flag.Getter over the default outputter's level.
type levelFlag struct{}

func (*levelFlag) String() string { return Level(golevel.Load()).String() }

func (*levelFlag) Set(name string) error {
	l, err := ParseLevel(name)
	if err != nil {
		return err
	}
	SetLevel(l)
	return nil
}

func (*levelFlag) Get() interface{} { return Level(golevel.Load()) }

type gologOutputter struct{}

func (gologOutputter) Level() Level { return Level(golevel.Load()) }

func (gologOutputter) Output(calldepth int, level Level, s string) error {
	if Level(golevel.Load()) < level {
		return nil
	}
	return golog.Output(calldepth+1, s)
}

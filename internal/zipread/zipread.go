// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package zipread opens zip central directories over context-ful
// ReaderAts. It is shared by the archive content sniffers and the
// archive fetcher so that both accept the same set of compression
// methods and ignore the same housekeeping entries.
package zipread

import (
	"context"
	stderrors "errors"
	"io"
	"path"
	"strings"

	"github.com/gobwas/glob"
	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/ioctx"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// DefaultIgnore lists entries that archiving tools add next to the
// real content. They are skipped when an archive's entries are
// classified and when an archive is listed.
var DefaultIgnore = []string{
	"__MACOSX/**",
	"**.DS_Store",
	"**Thumbs.db",
	"**thumbs.db",
	"**/",
}

// NewReader opens the zip central directory of r, which is size bytes
// long. It returns (nil, nil) when r is not a zip archive; other
// failures, typically I/O errors of r, are returned.
//
// The returned reader keeps using ctx for every read of r.
func NewReader(ctx context.Context, r ioctx.ReaderAt, size int64) (*zip.Reader, error) {
	return NewReaderAt(&ioctx.StdReaderAt{Ctx: ctx, ReaderAt: r}, size)
}

// NewReaderAt is NewReader for callers that rebind r.Ctx between uses
// of the returned reader.
func NewReaderAt(r *ioctx.StdReaderAt, size int64) (*zip.Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		if stderrors.Is(err, zip.ErrFormat) ||
			stderrors.Is(err, zip.ErrAlgorithm) ||
			stderrors.Is(err, zip.ErrChecksum) {
			return nil, nil
		}
		return nil, errors.E(err, "reading zip central directory")
	}
	// Deflate is handled by klauspost's flate by default; add zstd, which
	// some packagers use for large audio and image entries.
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, Decompressor(zstd.ZipMethodWinZip))
	zr.RegisterDecompressor(zstd.ZipMethodPKWare, Decompressor(zstd.ZipMethodPKWare))
	return zr, nil
}

// Decompressor returns the decompressor of the zip compression method,
// or nil if the method is not supported.
func Decompressor(method uint16) zip.Decompressor {
	switch method {
	case zip.Store:
		return io.NopCloser
	case zip.Deflate:
		return flate.NewReader
	case zstd.ZipMethodWinZip, zstd.ZipMethodPKWare:
		return zstd.ZipDecompressor()
	}
	return nil
}

// Matcher tells whether an entry name matches any of a set of glob
// patterns. Patterns use '/' as separator; "**" matches across
// directories.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles patterns. It returns an error of kind
// errors.Invalid for a malformed pattern.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := new(Matcher)
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.E(errors.Invalid, "compiling ignore pattern", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match tells whether name matches one of m's patterns. A nil Matcher
// matches nothing.
func (m *Matcher) Match(name string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

var defaultMatcher *Matcher

func init() {
	var err error
	if defaultMatcher, err = NewMatcher(DefaultIgnore); err != nil {
		panic(err)
	}
}

// Ignored tells whether name matches DefaultIgnore.
func Ignored(name string) bool {
	return defaultMatcher.Match(name)
}

// Ext returns the lowercase extension of an entry name, without the dot.
func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// Find returns the entry of zr named name, or nil.
func Find(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"context"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/format"
	"github.com/grailbio/pubfetch/sync/loadingcache"
)

// Opts describes what is already known about a file.
type Opts struct {
	// SourceURL is the remote location the file was downloaded from, if
	// any. It is informational.
	SourceURL string
	// MediaType is a declared media type, used as the only media type
	// hint when sniffing the file's format.
	MediaType string
	// Format, if not nil, is the file's known format. It is returned by
	// File.Format without any I/O.
	Format *format.Format
	// Engine sniffs the file's format. It defaults to format.Default().
	Engine *format.Engine
}

// File is a path on a local file system or a storage engine ("s3://..."),
// along with what is known of its content. The directory status and the
// format of the file are computed lazily, at most once, and cached:
// concurrent first callers share a single computation.
//
// IsDir and Format may block on I/O. Hosts with latency-sensitive
// goroutines (a UI loop, say) should call them elsewhere, or warm them
// ahead of time with Warm.
type File struct {
	path string
	opts Opts

	isDir  loadingcache.Value[bool]
	format loadingcache.Value[sniffed]
}

// sniffed is a cacheable format outcome; ok == false is a definitive
// "unknown format".
type sniffed struct {
	format format.Format
	ok     bool
}

// New returns a File for path. It performs no I/O. At most one Opts
// may be given.
func New(path string, opts ...Opts) *File {
	f := &File{path: path}
	switch len(opts) {
	case 0:
	case 1:
		f.opts = opts[0]
	default:
		panic("file.New: more than one Opts")
	}
	if f.opts.Format != nil {
		known := *f.opts.Format
		f.opts.Format = &known
	}
	return f
}

// Path returns the path given to New.
func (f *File) Path() string { return f.path }

// SourceURL returns the remote location the file was downloaded from,
// or "".
func (f *File) SourceURL() string { return f.opts.SourceURL }

// Name returns the last element of the path.
func (f *File) Name() string { return Base(f.path) }

// String returns a diagnostic string.
func (f *File) String() string { return f.path }

// IsDir tells whether the path is a directory. A path that does not
// exist is not a directory. Other failures are returned and the next
// call tries again.
func (f *File) IsDir(ctx context.Context) (bool, error) {
	return f.isDir.GetOrLoad(ctx, func(ctx context.Context) (bool, error) {
		info, err := Stat(ctx, f.path)
		if errors.Is(errors.NotExist, err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return info.IsDir(), nil
	})
}

// Format returns the format of the file. The known format given to New,
// if any, is returned as is. Otherwise the format is sniffed from the
// media type hint, the path's extension and, if needed, the file's
// content. ok is false when the format could not be determined; that
// outcome is cached like a found format. I/O errors are returned and
// not cached.
func (f *File) Format(ctx context.Context) (_ format.Format, ok bool, err error) {
	if f.opts.Format != nil && !f.opts.Format.IsZero() {
		return *f.opts.Format, true, nil
	}
	s, err := f.format.GetOrLoad(ctx, f.sniff)
	return s.format, s.ok, err
}

func (f *File) sniff(ctx context.Context) (_ sniffed, err error) {
	engine := f.opts.Engine
	if engine == nil {
		engine = format.Default()
	}
	var hints format.Hints
	if f.opts.MediaType != "" {
		hints.MediaTypes = []string{f.opts.MediaType}
	}
	if ext := format.Extension(f.path); ext != "" {
		hints.Extensions = []string{ext}
	}
	if fm, ok, err := engine.Sniff(ctx, hints, nil); err != nil || ok {
		return sniffed{fm, ok}, err
	}
	// Directories and missing files have no content to sniff.
	isDir, err := f.IsDir(ctx)
	if err != nil || isDir {
		return sniffed{}, err
	}
	r, err := Open(ctx, f.path)
	if errors.Is(errors.NotExist, err) {
		return sniffed{}, nil
	}
	if err != nil {
		return sniffed{}, err
	}
	defer errors.CleanUpCtx(ctx, r.Close, &err)
	fm, ok, err := engine.SniffContent(ctx, format.NewContext(hints, r))
	if err != nil {
		return sniffed{}, errors.E(err, "sniffing", f.path)
	}
	return sniffed{fm, ok}, nil
}

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package archive implements a fetcher.Fetcher over the entries of a zip
// package, such as an EPUB or a CBZ. The package is read in place through
// an ioctx.ReaderAt: a local file, an S3 object, or a resource of another
// fetcher for nested archives.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"sync"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/fetcher"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/pubfetch/format"
	"github.com/grailbio/pubfetch/internal/zipread"
	"github.com/grailbio/pubfetch/ioctx"
	"github.com/grailbio/pubfetch/log"
	"github.com/grailbio/pubfetch/sync/ctxsync"
	"github.com/grailbio/pubfetch/sync/loadingcache"
	"github.com/klauspost/compress/zip"
)

// DefaultIgnore lists the entries that Links omits unless Opts.Ignore
// says otherwise: macOS resource forks, Finder and Explorer metadata,
// and directory entries.
var DefaultIgnore = zipread.DefaultIgnore

// Opts controls a Fetcher.
type Opts struct {
	// Ignore lists glob patterns of entries omitted by Links. They can
	// still be resolved. Nil means DefaultIgnore; use an empty, non-nil
	// slice to list every entry.
	Ignore []string

	// Engine assigns media types to listed entries by extension. Nil
	// means format.Default().
	Engine *format.Engine
}

func mergeOpts(opts []Opts) (o Opts) {
	switch len(opts) {
	case 0:
	case 1:
		o = opts[0]
	default:
		panic(fmt.Sprintf("more than one options specified: %+v", opts))
	}
	if o.Ignore == nil {
		o.Ignore = DefaultIgnore
	}
	if o.Engine == nil {
		o.Engine = format.Default()
	}
	return
}

// Fetcher serves the entries of a zip package. It is safe for concurrent
// use.
type Fetcher struct {
	name   string
	r      ioctx.ReaderAt
	size   int64
	closer ioctx.Closer // nil if the caller owns r.
	engine *format.Engine
	ignore *zipread.Matcher

	// dirMu serializes uses of zr, whose reads go through std with the
	// context of the current caller.
	dirMu ctxsync.Mutex
	std   *ioctx.StdReaderAt
	zr    *zip.Reader

	entries map[string]*entry

	// mu is held for reading during entry reads and for writing by
	// Close, which waits for in-flight reads.
	mu     sync.RWMutex
	closed bool
}

type entry struct {
	f *zip.File
	// err is set when the entry's directory record cannot be trusted; the
	// entry is listed but cannot be read.
	err    error
	offset loadingcache.Value[int64]
}

// maxPrealloc bounds the buffer reserved up front for a compressed entry.
// Declared sizes are not trusted beyond it; the buffer grows as data is
// actually decompressed.
const maxPrealloc = 1 << 20

// checkEntry validates the sizes declared by f's directory record against
// a package of size bytes.
func checkEntry(f *zip.File, size int64) error {
	switch {
	case f.UncompressedSize64 > math.MaxInt64 || f.CompressedSize64 > math.MaxInt64:
		return errors.E(errors.Integrity, "archive: entry", f.Name, "declared size out of range")
	case f.CompressedSize64 > uint64(size):
		return errors.E(errors.Integrity, "archive: entry", f.Name, "declared size exceeds package")
	case f.Method == zip.Store && f.UncompressedSize64 != f.CompressedSize64:
		return errors.E(errors.Integrity, "archive: entry", f.Name, "stored entry sizes differ")
	}
	return nil
}

// New returns a Fetcher over the zip package r of size bytes. Name is
// used in messages. The caller keeps ownership of r and must not release
// it before closing the Fetcher.
//
// New returns an error of kind errors.NotSupported if r is not a zip
// archive.
func New(ctx context.Context, name string, r ioctx.ReaderAt, size int64, opts ...Opts) (*Fetcher, error) {
	o := mergeOpts(opts)
	ignore, err := zipread.NewMatcher(o.Ignore)
	if err != nil {
		return nil, err
	}
	std := &ioctx.StdReaderAt{Ctx: ctx, ReaderAt: r}
	zr, err := zipread.NewReaderAt(std, size)
	std.Ctx = context.Background()
	if err != nil {
		return nil, errors.E(err, "archive: open", name)
	}
	if zr == nil {
		return nil, errors.E(errors.NotSupported, "archive: open", name, "is not a zip archive")
	}
	a := &Fetcher{
		name:    name,
		r:       r,
		size:    size,
		engine:  o.Engine,
		ignore:  ignore,
		std:     std,
		zr:      zr,
		entries: make(map[string]*entry, len(zr.File)),
	}
	for _, f := range zr.File {
		if _, ok := a.entries[f.Name]; ok {
			continue
		}
		e := &entry{f: f, err: checkEntry(f, size)}
		if e.err != nil {
			log.Error.Printf("archive: %s: %v", name, e.err)
		}
		a.entries[f.Name] = e
	}
	log.Debug.Printf("archive: opened %s (%d entries)", name, len(zr.File))
	return a, nil
}

// Open opens the zip package at path through file.Open. The returned
// Fetcher owns the file and closes it on Close.
func Open(ctx context.Context, path string, opts ...Opts) (_ *Fetcher, err error) {
	r, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if cerr := r.Close(ctx); cerr != nil {
				log.Error.Printf("archive: close %s: %v", path, cerr)
			}
		}
	}()
	size, err := r.Size(ctx)
	if err != nil {
		return nil, errors.E(err, "archive: open", path)
	}
	a, err := New(ctx, path, r, size, opts...)
	if err != nil {
		return nil, err
	}
	a.closer = r
	return a, nil
}

// FromResource opens a zip package stored in a resource of another
// fetcher. The caller keeps ownership of res.
func FromResource(ctx context.Context, res fetcher.Resource, opts ...Opts) (*Fetcher, error) {
	src := fetcher.SourceOf(res)
	size, err := src.Size(ctx)
	if err != nil {
		return nil, errors.E(err, "archive: open", res.Link().Href)
	}
	return New(ctx, res.Link().Href, src, size, opts...)
}

// Links implements fetcher.Fetcher. It lists the file entries in archive
// order, except those matching Opts.Ignore. Each link's Type is derived
// from the entry's extension.
func (a *Fetcher) Links(ctx context.Context) ([]fetcher.Link, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, errors.E(errors.Closed, "archive: links", a.name)
	}
	var links []fetcher.Link
	for _, f := range a.zr.File {
		if a.ignore.Match(f.Name) || f.FileInfo().IsDir() {
			continue
		}
		link := fetcher.Link{Href: f.Name}
		if ft, ok := a.engine.SniffExtensions(zipread.Ext(f.Name)); ok {
			link.Type = ft.MediaType
		}
		links = append(links, link)
	}
	return links, nil
}

// Resolve implements fetcher.Fetcher.
func (a *Fetcher) Resolve(link fetcher.Link, _ fetcher.Parameters) fetcher.Resource {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return fetcher.Failure(link, errors.E(errors.Closed, "archive: resolve", link.Href))
	}
	e, ok := a.entries[link.Path()]
	if !ok || e.f.FileInfo().IsDir() {
		return fetcher.NotFound(link)
	}
	return &entryResource{a: a, e: e, link: link}
}

// Close implements fetcher.Fetcher. It waits for in-flight reads, then
// releases the package if the Fetcher owns it.
func (a *Fetcher) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	log.Debug.Printf("archive: closed %s", a.name)
	if a.closer == nil {
		return nil
	}
	if err := a.closer.Close(ctx); err != nil {
		return errors.E(err, "archive: close", a.name)
	}
	return nil
}

// dataOffset returns the offset of e's data in the package.
func (a *Fetcher) dataOffset(ctx context.Context, e *entry) (int64, error) {
	return e.offset.GetOrLoad(ctx, func(ctx context.Context) (int64, error) {
		if err := a.dirMu.Lock(ctx); err != nil {
			return 0, errors.E(err, "archive: read local header", e.f.Name)
		}
		defer a.dirMu.Unlock()
		a.std.Ctx = ctx
		defer func() { a.std.Ctx = context.Background() }()
		off, err := e.f.DataOffset()
		if err != nil {
			return 0, errors.E(err, "archive: read local header", e.f.Name)
		}
		return off, nil
	})
}

// read returns bytes [start, end) of e's uncompressed content.
func (a *Fetcher) read(ctx context.Context, e *entry, start, end int64) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, errors.E(errors.Closed, "archive: read", e.f.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.E(err, "archive: read", e.f.Name)
	}
	off, err := a.dataOffset(ctx, e)
	if err != nil {
		return nil, err
	}
	if off < 0 || off > a.size-int64(e.f.CompressedSize64) {
		return nil, errors.E(errors.Integrity, "archive: read", e.f.Name, "entry data exceeds package")
	}
	var buf []byte
	if e.f.Method == zip.Store {
		buf = make([]byte, end-start)
		n, err := ioctx.ReadFullAt(ctx, a.r, buf, off+start)
		if err != nil {
			return nil, errors.E(err, "archive: read", e.f.Name)
		}
		if n < len(buf) {
			return nil, errors.E(errors.Integrity, "archive: read", e.f.Name, "truncated entry")
		}
	} else {
		decomp := zipread.Decompressor(e.f.Method)
		if decomp == nil {
			return nil, errors.E(errors.NotSupported, "archive: read", e.f.Name,
				fmt.Sprintf("compression method %d", e.f.Method))
		}
		// The compressed stream is read through ctx; skipping to start
		// requires decompressing the bytes before it.
		section := io.NewSectionReader(ioctx.ToStdReaderAt(ctx, a.r), off, int64(e.f.CompressedSize64))
		rc := decomp(section)
		defer rc.Close() // nolint: errcheck
		if _, err := io.CopyN(io.Discard, rc, start); err != nil {
			return nil, entryError(ctx, err, e)
		}
		var b bytes.Buffer
		b.Grow(int(min(end-start, maxPrealloc)))
		n, err := b.ReadFrom(io.LimitReader(rc, end-start))
		if err != nil {
			return nil, entryError(ctx, err, e)
		}
		if n < end-start {
			return nil, entryError(ctx, io.ErrUnexpectedEOF, e)
		}
		buf = b.Bytes()
	}
	if start == 0 && end == int64(e.f.UncompressedSize64) && crc32.ChecksumIEEE(buf) != e.f.CRC32 {
		return nil, errors.E(errors.Integrity, "archive: read", e.f.Name, "checksum mismatch")
	}
	return buf, nil
}

// entryError annotates a decompression failure. A stream that ends early
// is a corrupt entry; other errors come from the package's reader.
func entryError(ctx context.Context, err error, e *entry) error {
	if ctx.Err() != nil {
		return errors.E(ctx.Err(), "archive: read", e.f.Name)
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.E(errors.Integrity, "archive: read", e.f.Name, "truncated entry")
	}
	return errors.E(err, "archive: read", e.f.Name)
}

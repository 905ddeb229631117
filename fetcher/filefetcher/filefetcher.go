// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package filefetcher implements a fetcher.Fetcher over files and
// directories: an exploded publication on the local file system, a key
// prefix in S3, or a few standalone files. Paths are accessed through
// the file package, so any registered file.Implementation works.
package filefetcher

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/fetcher"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/pubfetch/format"
	"github.com/grailbio/pubfetch/ioctx"
	"github.com/grailbio/pubfetch/log"
	"github.com/grailbio/pubfetch/sync/multierror"
)

// Opts controls a Fetcher.
type Opts struct {
	// Engine assigns media types to listed files by extension. Nil
	// means format.Default().
	Engine *format.Engine
}

type root struct {
	href string // No leading or trailing "/".
	path string
}

// Fetcher serves the files under a set of roots. It is safe for
// concurrent use.
type Fetcher struct {
	roots  []root
	engine *format.Engine

	mu     sync.Mutex
	closed bool
	open   map[*fileResource]struct{}
}

// New returns a Fetcher that maps href prefixes to paths. A link whose
// href equals a prefix resolves to its path; a link under a prefix, as
// in "prefix/rel", resolves to the file rel under the path. The longest
// matching prefix wins. The empty prefix matches every link.
//
// Example:
//
//	filefetcher.New(map[string]string{
//		"":          "/books/moby-dick",
//		"cover.jpg": "s3://covers/moby-dick.jpg",
//	})
func New(paths map[string]string, opts ...Opts) *Fetcher {
	var o Opts
	switch len(opts) {
	case 0:
	case 1:
		o = opts[0]
	default:
		panic(fmt.Sprintf("more than one options specified: %+v", opts))
	}
	if o.Engine == nil {
		o.Engine = format.Default()
	}
	f := &Fetcher{engine: o.Engine, open: make(map[*fileResource]struct{})}
	for href, p := range paths {
		f.roots = append(f.roots, root{href: strings.Trim(href, "/"), path: p})
	}
	sort.Slice(f.roots, func(i, j int) bool {
		if a, b := f.roots[i].href, f.roots[j].href; len(a) != len(b) {
			return len(a) > len(b)
		}
		return f.roots[i].href < f.roots[j].href
	})
	return f
}

// NewSingle returns a Fetcher serving the file at path as href.
func NewSingle(href, path string, opts ...Opts) *Fetcher {
	return New(map[string]string{href: path}, opts...)
}

// relative returns the part of p under href, or false if p is not href
// or under it. It refuses paths that escape the root through "..".
func relative(p, href string) (string, bool) {
	var rel string
	switch {
	case href == "":
		rel = p
	case p == href:
		return "", true
	case strings.HasPrefix(p, href+"/"):
		rel = p[len(href)+1:]
	default:
		return "", false
	}
	if rel == "" {
		return "", true
	}
	rel = path.Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return "", false
	}
	if rel == "." {
		rel = ""
	}
	return rel, true
}

// Resolve implements fetcher.Fetcher.
func (f *Fetcher) Resolve(link fetcher.Link, _ fetcher.Parameters) fetcher.Resource {
	p := link.Path()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fetcher.Failure(link, errors.E(errors.Closed, "filefetcher: resolve", link.Href))
	}
	for _, r := range f.roots {
		rel, ok := relative(p, r.href)
		if !ok {
			continue
		}
		target := r.path
		if rel != "" {
			target = file.Join(r.path, rel)
		}
		res := &fileResource{f: f, link: link, path: target}
		f.open[res] = struct{}{}
		return res
	}
	return fetcher.NotFound(link)
}

// Links implements fetcher.Fetcher. It lists every file under the
// roots, sorted by Href. Roots that do not exist are skipped.
func (f *Fetcher) Links(ctx context.Context) ([]fetcher.Link, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, errors.E(errors.Closed, "filefetcher: links")
	}
	var links []fetcher.Link
	seen := make(map[string]bool)
	add := func(href string) {
		if seen[href] {
			return
		}
		seen[href] = true
		link := fetcher.Link{Href: href}
		if ft, ok := f.engine.SniffExtensions(link.Extension()); ok {
			link.Type = ft.MediaType
		}
		links = append(links, link)
	}
	for _, r := range f.roots {
		info, err := file.Stat(ctx, r.path)
		if errors.Is(errors.NotExist, err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(r.href)
			continue
		}
		base, err := listBase(r.path)
		if err != nil {
			return nil, err
		}
		lister := file.List(ctx, r.path)
		for lister.Scan() {
			rel := strings.TrimPrefix(strings.TrimPrefix(lister.Path(), base), "/")
			if !strings.Contains(base, "://") {
				rel = filepath.ToSlash(rel)
			}
			add(path.Join(r.href, rel))
		}
		if err := lister.Err(); err != nil {
			return nil, errors.E(err, "filefetcher: list", r.path)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Href < links[j].Href })
	return links, nil
}

// listBase returns the prefix that file.List puts before the paths under
// dir.
func listBase(dir string) (string, error) {
	scheme, _, err := file.ParsePath(dir)
	if err != nil {
		return "", err
	}
	if scheme == "" {
		return filepath.Clean(dir), nil
	}
	return strings.TrimSuffix(dir, "/"), nil
}

// Close implements fetcher.Fetcher. It closes the resources issued by
// Resolve that are still open.
func (f *Fetcher) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	open := f.open
	f.open = nil
	f.mu.Unlock()

	errs := multierror.NewMultiError(len(open))
	for r := range open {
		errs.Add(r.Close(ctx))
	}
	return errs.ErrorOrNil()
}

// forget removes r from the open resources.
func (f *Fetcher) forget(r *fileResource) {
	f.mu.Lock()
	delete(f.open, r)
	f.mu.Unlock()
}

// fileResource opens its file on first access and keeps it open until
// closed.
type fileResource struct {
	f    *Fetcher
	link fetcher.Link
	path string

	mu     sync.Mutex
	closed bool
	r      file.Reader
	size   int64
}

func (r *fileResource) Link() fetcher.Link { return r.link }

// reader returns the open file and its size.
func (r *fileResource) reader(ctx context.Context) (ioctx.ReaderAt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, 0, errors.E(errors.Closed, "filefetcher: read", r.link.Href)
	}
	if r.r != nil {
		return r.r, r.size, nil
	}
	fr, err := file.Open(ctx, r.path)
	if errors.Is(errors.NotSupported, err) {
		return nil, 0, errors.E(errors.NotExist, "filefetcher: open", r.path, "is a directory")
	}
	if err != nil {
		return nil, 0, err
	}
	size, err := fr.Size(ctx)
	if err != nil {
		if cerr := fr.Close(ctx); cerr != nil {
			log.Error.Printf("filefetcher: close %s: %v", r.path, cerr)
		}
		if errors.Is(errors.NotSupported, err) {
			return nil, 0, errors.E(errors.NotExist, "filefetcher: open", r.path, "is a directory")
		}
		return nil, 0, err
	}
	r.r, r.size = fr, size
	return r.r, r.size, nil
}

func (r *fileResource) Length(ctx context.Context) (int64, error) {
	_, size, err := r.reader(ctx)
	return size, err
}

func (r *fileResource) Read(ctx context.Context, rng *fetcher.Range) ([]byte, error) {
	rd, size, err := r.reader(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := fetcher.ClampRange(rng, size)
	if err != nil {
		return nil, errors.E(err, "filefetcher: read", r.link.Href)
	}
	buf := make([]byte, end-start)
	n, err := ioctx.ReadFullAt(ctx, rd, buf, start)
	if err != nil {
		return nil, errors.E(err, "filefetcher: read", r.path)
	}
	return buf[:n], nil
}

func (r *fileResource) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	fr := r.r
	r.r = nil
	r.mu.Unlock()

	r.f.forget(r)
	if fr == nil {
		return nil
	}
	if err := fr.Close(ctx); err != nil {
		return errors.E(err, "filefetcher: close", r.path)
	}
	return nil
}

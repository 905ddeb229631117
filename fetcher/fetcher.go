// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package fetcher gives access to the resources of a publication
// without exposing where they are stored. A Fetcher resolves a Link to
// a Resource; backends serve resources from a zip package
// (fetcher/archive), a directory or single files (fetcher/filefetcher),
// memory, or any function (Proxy).
//
// Example:
//
//	f, err := archive.Open(ctx, "s3://books/moby-dick.epub")
//	if err != nil {
//		...
//	}
//	defer f.Close(ctx)
//	r := f.Resolve(fetcher.Link{Href: "OEBPS/chapter1.xhtml"}, fetcher.Parameters{})
//	defer r.Close(ctx)
//	html, err := fetcher.ReadAllString(ctx, r)
package fetcher

import (
	"context"
)

// Fetcher provides access to the resources of a publication. Fetchers
// are long lived and are closed exactly once by their owner; calls to
// Close after the first are no-ops returning nil.
//
// Implementations must be thread safe. Once a Fetcher is closed,
// Resolve returns resources that fail with errors.Closed, and resources
// issued before Close that depend on the released state fail their
// reads with errors.Closed too.
type Fetcher interface {
	// Links returns the resources the fetcher knows about, if it can
	// enumerate them. Fetchers that cannot return nil.
	Links(ctx context.Context) ([]Link, error)

	// Resolve returns the resource at link. Resolve does no I/O and
	// never fails: when no resource exists at link, the returned
	// Resource fails its reads with errors.NotExist.
	Resolve(link Link, params Parameters) Resource

	// Close releases the fetcher's handles.
	Close(ctx context.Context) error
}

type emptyFetcher struct{}

// Empty returns a Fetcher with no resources.
func Empty() Fetcher { return emptyFetcher{} }

func (emptyFetcher) Links(context.Context) ([]Link, error)    { return nil, nil }
func (emptyFetcher) Resolve(link Link, _ Parameters) Resource { return NotFound(link) }
func (emptyFetcher) Close(context.Context) error              { return nil }

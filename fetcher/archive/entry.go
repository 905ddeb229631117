// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package archive

import (
	"context"
	"sync/atomic"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/fetcher"
)

// entryResource is a file entry of the package. Ranged reads of stored
// entries read only the range; compressed entries are decompressed from
// their start.
type entryResource struct {
	a      *Fetcher
	e      *entry
	link   fetcher.Link
	closed atomic.Bool
}

func (r *entryResource) Link() fetcher.Link { return r.link }

func (r *entryResource) Length(context.Context) (int64, error) {
	if r.closed.Load() {
		return 0, errors.E(errors.Closed, "archive: length", r.link.Href)
	}
	r.a.mu.RLock()
	defer r.a.mu.RUnlock()
	if r.a.closed {
		return 0, errors.E(errors.Closed, "archive: length", r.link.Href)
	}
	if r.e.err != nil {
		return 0, r.e.err
	}
	return int64(r.e.f.UncompressedSize64), nil
}

func (r *entryResource) Read(ctx context.Context, rng *fetcher.Range) ([]byte, error) {
	if r.closed.Load() {
		return nil, errors.E(errors.Closed, "archive: read", r.link.Href)
	}
	if r.e.err != nil {
		return nil, r.e.err
	}
	start, end, err := fetcher.ClampRange(rng, int64(r.e.f.UncompressedSize64))
	if err != nil {
		return nil, errors.E(err, "archive: read", r.link.Href)
	}
	return r.a.read(ctx, r.e, start, end)
}

func (r *entryResource) Close(context.Context) error {
	r.closed.Store(true)
	return nil
}

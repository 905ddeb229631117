// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fetcher

import (
	"context"
	"sync/atomic"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/sync/loadingcache"
)

// BytesFunc computes the content of a resource.
type BytesFunc func(ctx context.Context) ([]byte, error)

type bytesResource struct {
	link Link
	// state is nil once the resource is closed.
	state atomic.Pointer[bytesState]
}

type bytesState struct {
	load BytesFunc
	data loadingcache.Value[[]byte]
}

// Bytes returns a Resource serving data. The caller must not modify data
// afterwards.
func Bytes(link Link, data []byte) Resource {
	return Lazy(link, func(context.Context) ([]byte, error) { return data, nil })
}

// Lazy returns a Resource whose content is computed by load on first
// access. A successful result is kept until the resource is closed,
// which releases it along with load; failures are retried on the next
// access.
func Lazy(link Link, load BytesFunc) Resource {
	r := &bytesResource{link: link}
	r.state.Store(&bytesState{load: load})
	return r
}

func (r *bytesResource) Link() Link { return r.link }

func (r *bytesResource) get(ctx context.Context) ([]byte, error) {
	st := r.state.Load()
	if st == nil {
		return nil, errors.E(errors.Closed, "read", r.link.Href)
	}
	return st.data.GetOrLoad(ctx, func(ctx context.Context) ([]byte, error) {
		b, err := st.load(ctx)
		if err != nil {
			return nil, errors.E(err, "read", r.link.Href)
		}
		return b, nil
	})
}

func (r *bytesResource) Length(ctx context.Context) (int64, error) {
	b, err := r.get(ctx)
	return int64(len(b)), err
}

func (r *bytesResource) Read(ctx context.Context, rng *Range) ([]byte, error) {
	b, err := r.get(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := ClampRange(rng, int64(len(b)))
	if err != nil {
		return nil, errors.E(err, "read", r.link.Href)
	}
	out := make([]byte, end-start)
	copy(out, b[start:end])
	return out, nil
}

func (r *bytesResource) Close(context.Context) error {
	r.state.Store(nil)
	return nil
}

type failureResource struct {
	link   Link
	err    error
	closed atomic.Bool
}

// Failure returns a Resource whose Length and Read return err. Fetchers
// use it so that Resolve never fails: the error is reported when the
// content is accessed.
func Failure(link Link, err error) Resource {
	return &failureResource{link: link, err: err}
}

// NotFound returns a Failure resource with an error of kind
// errors.NotExist.
func NotFound(link Link) Resource {
	return Failure(link, errors.E(errors.NotExist, "resource not found", link.Href))
}

func (r *failureResource) Link() Link { return r.link }

func (r *failureResource) fail() error {
	if r.closed.Load() {
		return errors.E(errors.Closed, "read", r.link.Href)
	}
	return r.err
}

func (r *failureResource) Length(context.Context) (int64, error)        { return 0, r.fail() }
func (r *failureResource) Read(context.Context, *Range) ([]byte, error) { return nil, r.fail() }

func (r *failureResource) Close(context.Context) error {
	r.closed.Store(true)
	return nil
}

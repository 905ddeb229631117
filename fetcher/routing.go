// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fetcher

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/log"
	"github.com/grailbio/pubfetch/sync/multierror"
)

// Route sends the links accepted by Accepts to Fetcher.
type Route struct {
	Accepts func(Link) bool
	Fetcher Fetcher
}

type routing struct {
	routes []Route
	closed atomic.Bool
}

// Routing returns a Fetcher that resolves each link with the first route
// that accepts it. Links no route accepts are not found. Closing the
// routing fetcher closes every route's fetcher.
func Routing(routes ...Route) Fetcher {
	return &routing{routes: routes}
}

// Links returns the links listed by each route's fetcher that the route
// accepts, sorted by Href.
func (r *routing) Links(ctx context.Context) ([]Link, error) {
	if r.closed.Load() {
		return nil, errors.E(errors.Closed, "links")
	}
	var links []Link
	for _, route := range r.routes {
		l, err := route.Fetcher.Links(ctx)
		if err != nil {
			return nil, err
		}
		for _, link := range l {
			if route.Accepts(link) {
				links = append(links, link)
			}
		}
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Href < links[j].Href })
	return links, nil
}

func (r *routing) Resolve(link Link, params Parameters) Resource {
	if r.closed.Load() {
		return Failure(link, errors.E(errors.Closed, "resolve", link.Href))
	}
	for _, route := range r.routes {
		if route.Accepts(link) {
			return route.Fetcher.Resolve(link, params)
		}
	}
	return NotFound(link)
}

func (r *routing) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	errs := multierror.NewMultiError(len(r.routes))
	for _, route := range r.routes {
		if err := route.Fetcher.Close(ctx); err != nil {
			log.Error.Printf("fetcher: closing route: %v", err)
			errs.Add(err)
		}
	}
	return errs.ErrorOrNil()
}

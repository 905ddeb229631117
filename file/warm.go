// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Warm computes the directory status and the format of files in the
// background, with at most parallelism files in flight (no limit if
// parallelism <= 0), so that later calls return without blocking. It
// returns the first error encountered; files that failed can be warmed
// again.
func Warm(ctx context.Context, parallelism int, files ...*File) error {
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for _, f := range files {
		f := f
		g.Go(func() error {
			if _, err := f.IsDir(ctx); err != nil {
				return err
			}
			_, _, err := f.Format(ctx)
			return err
		})
	}
	return g.Wait()
}

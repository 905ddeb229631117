// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fetcher

import (
	"context"
	"fmt"

	"github.com/grailbio/pubfetch/errors"
)

// Resource gives access to the content of one publication resource.
// The caller that obtained a Resource owns it and must close it.
//
// Length and Read may block on I/O. Implementations must be thread safe.
type Resource interface {
	// Link returns the link the resource was resolved from.
	Link() Link

	// Length returns the size of the content in bytes.
	Length(ctx context.Context) (int64, error)

	// Read returns the bytes in rng, or the whole content if rng is
	// nil. A range that extends past the end of the content is
	// truncated to it.
	Read(ctx context.Context, rng *Range) ([]byte, error)

	// Close releases the resource. Close is idempotent: calls after the
	// first return nil. Length and Read fail with errors.Closed after
	// Close.
	Close(ctx context.Context) error
}

// Range is a half-open byte range [Start, End).
type Range struct {
	Start, End int64
}

// Len returns the number of bytes in r.
func (r Range) Len() int64 { return r.End - r.Start }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// ClampRange returns the bounds of rng within content of the given
// length. A nil rng covers the whole content. A range starting at or
// past the end is empty. ClampRange returns an error of kind
// errors.Invalid if rng has a negative start or ends before it starts.
func ClampRange(rng *Range, length int64) (start, end int64, err error) {
	if rng == nil {
		return 0, length, nil
	}
	if rng.Start < 0 || rng.End < rng.Start {
		return 0, 0, errors.E(errors.Invalid, "invalid range", rng.String())
	}
	start, end = rng.Start, rng.End
	if end > length {
		end = length
	}
	if start > end {
		start = end
	}
	return start, end, nil
}

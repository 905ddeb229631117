// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fetcher

import (
	"context"
	"io"

	"github.com/grailbio/pubfetch/format"
)

type resourceSource struct{ r Resource }

// SourceOf returns r as a format.Source, for content sniffing or for
// opening a nested archive. Each ReadAt is one ranged Read of r.
func SourceOf(r Resource) format.Source { return resourceSource{r} }

func (s resourceSource) ReadAt(ctx context.Context, dst []byte, off int64) (int, error) {
	b, err := s.r.Read(ctx, &Range{Start: off, End: off + int64(len(dst))})
	if err != nil {
		return 0, err
	}
	n := copy(dst, b)
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

func (s resourceSource) Size(ctx context.Context) (int64, error) { return s.r.Length(ctx) }

// SniffFormat determines the format of r with engine, or with
// format.Default() if engine is nil. The declared media type and the
// extension of r's link are tried before the content.
func SniffFormat(ctx context.Context, engine *format.Engine, r Resource) (format.Format, bool, error) {
	if engine == nil {
		engine = format.Default()
	}
	return engine.Sniff(ctx, r.Link().Hints(), SourceOf(r))
}

// ReadAllString reads the whole content of r as a string.
func ReadAllString(ctx context.Context, r Resource) (string, error) {
	b, err := r.Read(ctx, nil)
	return string(b), err
}

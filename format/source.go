// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

import (
	"bytes"
	"context"

	"github.com/grailbio/pubfetch/ioctx"
)

// Source gives content sniffers lazy random access to the bytes being
// sniffed. Reading from a Source may block (a file read, a remote
// object fetch); sniffers read only what they need.
type Source interface {
	ioctx.ReaderAt
	// Size returns the total length of the content in bytes.
	Size(ctx context.Context) (int64, error)
}

type bytesSource struct {
	*bytes.Reader
}

// Bytes returns a Source over an in-memory buffer. The caller must not
// modify b afterwards.
func Bytes(b []byte) Source { return bytesSource{bytes.NewReader(b)} }

func (s bytesSource) ReadAt(_ context.Context, dst []byte, off int64) (int, error) {
	return s.Reader.ReadAt(dst, off)
}

func (s bytesSource) Size(context.Context) (int64, error) { return s.Reader.Size(), nil }

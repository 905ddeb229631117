// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package ziptest builds zip archives for tests.
package ziptest

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// Entry is one archive member. Names ending in "/" are directories.
type Entry struct {
	Name    string
	Content string
	// Method is the compression method; zero means zip.Store.
	Method uint16
}

// Build returns a zip archive holding entries, in order.
func Build(t testing.TB, entries ...Entry) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	for _, e := range entries {
		f, err := w.CreateHeader(&zip.FileHeader{Name: e.Name, Method: e.Method})
		require.NoError(t, err)
		if e.Content != "" {
			_, err = f.Write([]byte(e.Content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// EPUB returns a minimal EPUB container.
func EPUB(t testing.TB) []byte {
	return Build(t,
		Entry{Name: "mimetype", Content: "application/epub+zip"},
		Entry{Name: "META-INF/container.xml", Content: `<?xml version="1.0"?><container/>`, Method: zip.Deflate},
		Entry{Name: "OEBPS/chapter1.xhtml", Content: "<html/>", Method: zip.Deflate},
	)
}

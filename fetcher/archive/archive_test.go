// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package archive_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/fetcher"
	"github.com/grailbio/pubfetch/fetcher/archive"
	"github.com/grailbio/pubfetch/format"
	"github.com/grailbio/pubfetch/internal/ziptest"
	"github.com/grailbio/pubfetch/ioctx"
	"github.com/grailbio/testutil"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const chapter = "<html><body>Call me Ishmael. Some years ago, never mind how long precisely.</body></html>"

func testArchive(t *testing.T) []byte {
	return ziptest.Build(t,
		ziptest.Entry{Name: "mimetype", Content: "application/epub+zip"},
		ziptest.Entry{Name: "OEBPS/chapter1.xhtml", Content: chapter, Method: zip.Deflate},
		ziptest.Entry{Name: "OEBPS/chapter2.xhtml", Content: chapter, Method: zstd.ZipMethodWinZip},
		ziptest.Entry{Name: "images/"},
		ziptest.Entry{Name: "images/cover.png", Content: "not really a png"},
		ziptest.Entry{Name: "empty.txt"},
		ziptest.Entry{Name: "__MACOSX/images/._cover.png", Content: "fork"},
		ziptest.Entry{Name: ".DS_Store", Content: "finder"},
	)
}

func newFetcher(t *testing.T, b []byte, opts ...archive.Opts) *archive.Fetcher {
	a, err := archive.New(context.Background(), "test.epub", ioctx.FromStdReaderAt(bytes.NewReader(b)), int64(len(b)), opts...)
	require.NoError(t, err)
	return a
}

func hrefs(links []fetcher.Link) []string {
	var h []string
	for _, l := range links {
		h = append(h, l.Href)
	}
	return h
}

func TestLinks(t *testing.T) {
	ctx := context.Background()
	a := newFetcher(t, testArchive(t))
	links, err := a.Links(ctx)
	require.NoError(t, err)
	assert.Equal(t, []fetcher.Link{
		{Href: "mimetype"},
		{Href: "OEBPS/chapter1.xhtml", Type: format.XHTML.MediaType},
		{Href: "OEBPS/chapter2.xhtml", Type: format.XHTML.MediaType},
		{Href: "images/cover.png", Type: format.PNG.MediaType},
		{Href: "empty.txt"},
	}, links)
	require.NoError(t, a.Close(ctx))

	a = newFetcher(t, testArchive(t), archive.Opts{Ignore: []string{}})
	links, err = a.Links(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"mimetype",
		"OEBPS/chapter1.xhtml",
		"OEBPS/chapter2.xhtml",
		"images/cover.png",
		"empty.txt",
		"__MACOSX/images/._cover.png",
		".DS_Store",
	}, hrefs(links))
	require.NoError(t, a.Close(ctx))

	_, err = archive.New(ctx, "x", ioctx.FromStdReaderAt(bytes.NewReader(nil)), 0, archive.Opts{Ignore: []string{"[bad"}})
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
}

func TestRead(t *testing.T) {
	ctx := context.Background()
	a := newFetcher(t, testArchive(t))
	defer a.Close(ctx) // nolint: errcheck

	for _, href := range []string{"OEBPS/chapter1.xhtml", "/OEBPS/chapter2.xhtml", "OEBPS/chapter1.xhtml#id"} {
		r := a.Resolve(fetcher.Link{Href: href}, fetcher.Parameters{})
		n, err := r.Length(ctx)
		require.NoError(t, err, href)
		assert.Equal(t, int64(len(chapter)), n, href)
		got, err := fetcher.ReadAllString(ctx, r)
		require.NoError(t, err, href)
		assert.Equal(t, chapter, got, href)
		assert.NoError(t, r.Close(ctx))
	}

	r := a.Resolve(fetcher.Link{Href: "empty.txt"}, fetcher.Parameters{})
	got, err := fetcher.ReadAllString(ctx, r)
	assert.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestReadRange(t *testing.T) {
	ctx := context.Background()
	a := newFetcher(t, testArchive(t))
	defer a.Close(ctx) // nolint: errcheck

	for _, href := range []string{"OEBPS/chapter1.xhtml", "OEBPS/chapter2.xhtml", "images/cover.png"} {
		r := a.Resolve(fetcher.Link{Href: href}, fetcher.Parameters{})
		n, err := r.Length(ctx)
		require.NoError(t, err)
		all, err := r.Read(ctx, nil)
		require.NoError(t, err)
		for _, rng := range []fetcher.Range{{Start: 0, End: 4}, {Start: 3, End: 9}, {Start: n - 2, End: n}, {Start: n - 2, End: n + 100}, {Start: n + 5, End: n + 10}, {Start: 4, End: 4}} {
			got, err := r.Read(ctx, &rng)
			require.NoError(t, err, "%s %v", href, rng)
			start, end := rng.Start, rng.End
			if end > n {
				end = n
			}
			if start > end {
				start = end
			}
			assert.Equal(t, string(all[start:end]), string(got), "%s %v", href, rng)
		}
		_, err = r.Read(ctx, &fetcher.Range{Start: 5, End: 2})
		assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
		_, err = r.Read(ctx, &fetcher.Range{Start: -1, End: 2})
		assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	a := newFetcher(t, testArchive(t))
	defer a.Close(ctx) // nolint: errcheck
	for _, href := range []string{"missing.xhtml", "images/", "images", ""} {
		r := a.Resolve(fetcher.Link{Href: href}, fetcher.Parameters{})
		_, err := r.Length(ctx)
		assert.True(t, errors.Is(errors.NotExist, err), "%s: %v", href, err)
		_, err = r.Read(ctx, nil)
		assert.True(t, errors.Is(errors.NotExist, err), "%s: %v", href, err)
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	a := newFetcher(t, testArchive(t))
	before := a.Resolve(fetcher.Link{Href: "OEBPS/chapter1.xhtml"}, fetcher.Parameters{})
	_, err := before.Read(ctx, &fetcher.Range{Start: 0, End: 6})
	require.NoError(t, err)

	require.NoError(t, a.Close(ctx))
	require.NoError(t, a.Close(ctx))

	_, err = before.Read(ctx, nil)
	assert.True(t, errors.Is(errors.Closed, err), "%v", err)
	_, err = before.Length(ctx)
	assert.True(t, errors.Is(errors.Closed, err), "%v", err)
	after := a.Resolve(fetcher.Link{Href: "OEBPS/chapter1.xhtml"}, fetcher.Parameters{})
	_, err = after.Read(ctx, nil)
	assert.True(t, errors.Is(errors.Closed, err), "%v", err)
	_, err = a.Links(ctx)
	assert.True(t, errors.Is(errors.Closed, err), "%v", err)

	// Closing a resource is idempotent, and it fails its reads after.
	a = newFetcher(t, testArchive(t))
	r := a.Resolve(fetcher.Link{Href: "mimetype"}, fetcher.Parameters{})
	assert.NoError(t, r.Close(ctx))
	assert.NoError(t, r.Close(ctx))
	_, err = r.Read(ctx, nil)
	assert.True(t, errors.Is(errors.Closed, err), "%v", err)
	assert.NoError(t, a.Close(ctx))
}

func TestCorruptEntry(t *testing.T) {
	ctx := context.Background()
	b := ziptest.Build(t, ziptest.Entry{Name: "a.txt", Content: "hello world"})
	i := bytes.Index(b, []byte("hello world"))
	require.True(t, i > 0)
	b[i] = 'j'
	a := newFetcher(t, b)
	r := a.Resolve(fetcher.Link{Href: "a.txt"}, fetcher.Parameters{})
	_, err := r.Read(ctx, nil)
	assert.True(t, errors.Is(errors.Integrity, err), "%v", err)
	// A partial read is not verified.
	got, err := r.Read(ctx, &fetcher.Range{Start: 1, End: 5})
	assert.NoError(t, err)
	assert.Equal(t, "ello", string(got))
	assert.NoError(t, a.Close(ctx))
}

// rawArchive returns an archive with a single entry whose header, sizes
// included, is written as given.
func rawArchive(t *testing.T, fh *zip.FileHeader, data []byte) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.CreateRaw(fh)
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDeclaredSizes(t *testing.T) {
	ctx := context.Background()
	var deflated bytes.Buffer
	fw, err := flate.NewWriter(&deflated, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write([]byte(chapter))
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	for _, c := range []struct {
		name      string
		fh        zip.FileHeader
		data      []byte
		badLength bool
		// want is the error returned by a full read.
		want error
	}{
		{"size out of range",
			zip.FileHeader{Method: zip.Store, CompressedSize64: 3, UncompressedSize64: 1 << 63}, []byte("abc"), true,
			errors.E(errors.Integrity, "archive: entry a.txt declared size out of range")},
		{"stored sizes differ",
			zip.FileHeader{Method: zip.Store, CompressedSize64: 3, UncompressedSize64: 1 << 40}, []byte("abc"), true,
			errors.E(errors.Integrity, "archive: entry a.txt stored entry sizes differ")},
		{"stored larger than package",
			zip.FileHeader{Method: zip.Store, CompressedSize64: 1 << 20, UncompressedSize64: 1 << 20}, []byte("abc"), true,
			errors.E(errors.Integrity, "archive: entry a.txt declared size exceeds package")},
		{"declared larger than deflated",
			zip.FileHeader{Method: zip.Deflate, CompressedSize64: uint64(deflated.Len()), UncompressedSize64: 3 << 30}, deflated.Bytes(), false,
			errors.E(errors.Integrity, "archive: read a.txt truncated entry")},
	} {
		t.Run(c.name, func(t *testing.T) {
			fh := c.fh
			fh.Name = "a.txt"
			a := newFetcher(t, rawArchive(t, &fh, c.data))
			defer a.Close(ctx) // nolint: errcheck
			r := a.Resolve(fetcher.Link{Href: "a.txt"}, fetcher.Parameters{})
			n, err := r.Length(ctx)
			if c.badLength {
				assert.True(t, errors.Is(errors.Integrity, err), "%v", err)
			} else {
				assert.NoError(t, err)
				assert.EqualValues(t, 3<<30, n)
			}
			_, err = r.Read(ctx, nil)
			assert.True(t, errors.Match(c.want, err), "got %v, want %v", err, c.want)
			_, err = r.Read(ctx, &fetcher.Range{Start: 1, End: 2})
			if c.badLength {
				assert.True(t, errors.Is(errors.Integrity, err), "%v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotZip(t *testing.T) {
	ctx := context.Background()
	b := []byte(strings.Repeat("not a zip ", 10))
	_, err := archive.New(ctx, "x", ioctx.FromStdReaderAt(bytes.NewReader(b)), int64(len(b)))
	assert.True(t, errors.Is(errors.NotSupported, err), "%v", err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "moby.epub")
	require.NoError(t, os.WriteFile(path, ziptest.EPUB(t), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "moby.txt"), []byte("plain text, not a zip"), 0600))

	a, err := archive.Open(ctx, path)
	require.NoError(t, err)
	r := a.Resolve(fetcher.Link{Href: "mimetype"}, fetcher.Parameters{})
	got, err := fetcher.ReadAllString(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "application/epub+zip", got)
	require.NoError(t, a.Close(ctx))
	_, err = r.Read(ctx, nil)
	assert.True(t, errors.Is(errors.Closed, err), "%v", err)

	_, err = archive.Open(ctx, filepath.Join(tempDir, "missing.epub"))
	assert.True(t, errors.Is(errors.NotExist, err), "%v", err)
	_, err = archive.Open(ctx, filepath.Join(tempDir, "moby.txt"))
	assert.True(t, errors.Is(errors.NotSupported, err), "%v", err)
}

func TestNested(t *testing.T) {
	ctx := context.Background()
	inner := ziptest.Build(t,
		ziptest.Entry{Name: "page1.png", Content: "\x89PNG\r\n\x1a\npage one"},
		ziptest.Entry{Name: "page2.png", Content: "\x89PNG\r\n\x1a\npage two", Method: zip.Deflate},
	)
	outer := ziptest.Build(t,
		ziptest.Entry{Name: "comics/issue1.cbz", Content: string(inner)},
		ziptest.Entry{Name: "comics/issue2.cbz", Content: string(inner), Method: zip.Deflate},
	)
	a := newFetcher(t, outer)
	defer a.Close(ctx) // nolint: errcheck

	for _, href := range []string{"comics/issue1.cbz", "comics/issue2.cbz"} {
		res := a.Resolve(fetcher.Link{Href: href}, fetcher.Parameters{})
		got, ok, err := fetcher.SniffFormat(ctx, nil, res)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, format.CBZ, got)

		nested, err := archive.FromResource(ctx, res)
		require.NoError(t, err, href)
		links, err := nested.Links(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"page1.png", "page2.png"}, hrefs(links))
		page, err := fetcher.ReadAllString(ctx, nested.Resolve(links[1], fetcher.Parameters{}))
		require.NoError(t, err)
		assert.Equal(t, "\x89PNG\r\n\x1a\npage two", page)
		assert.NoError(t, nested.Close(ctx))
		// The nested fetcher does not own the outer resource.
		_, err = res.Length(ctx)
		assert.NoError(t, err)
		assert.NoError(t, res.Close(ctx))
	}
}

func TestConcurrentReads(t *testing.T) {
	ctx := context.Background()
	a := newFetcher(t, testArchive(t))
	defer a.Close(ctx) // nolint: errcheck
	var g errgroup.Group
	for i := 0; i < 32; i++ {
		i := i
		g.Go(func() error {
			href := fmt.Sprintf("OEBPS/chapter%d.xhtml", 1+i%2)
			r := a.Resolve(fetcher.Link{Href: href}, fetcher.Parameters{})
			defer r.Close(ctx) // nolint: errcheck
			got, err := r.Read(ctx, &fetcher.Range{Start: int64(i), End: int64(i + 10)})
			if err != nil {
				return err
			}
			if want := chapter[i : i+10]; string(got) != want {
				return fmt.Errorf("%s: got %q, want %q", href, got, want)
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
}

func TestCanceledRead(t *testing.T) {
	a := newFetcher(t, testArchive(t))
	defer a.Close(context.Background()) // nolint: errcheck
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := a.Resolve(fetcher.Link{Href: "OEBPS/chapter1.xhtml"}, fetcher.Parameters{})
	_, err := r.Read(ctx, nil)
	assert.True(t, errors.Is(errors.Canceled, err), "%v", err)
}

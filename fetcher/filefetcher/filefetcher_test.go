// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package filefetcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/fetcher"
	"github.com/grailbio/pubfetch/fetcher/filefetcher"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/pubfetch/file/s3file"
	"github.com/grailbio/pubfetch/format"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/s3test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chapter = "<html><body>Call me Ishmael.</body></html>"

// setup writes an exploded publication and a cover next to it, and
// returns their paths.
func setup(t *testing.T) (dir, book, cover string, cleanup func()) {
	dir, cleanup = testutil.TempDir(t, "", "")
	book = filepath.Join(dir, "moby")
	for name, data := range map[string]string{
		"moby/mimetype":             "application/epub+zip",
		"moby/OEBPS/chapter1.xhtml": chapter,
		"moby/OEBPS/style.css":      "body {}",
		"cover.png":                 "\x89PNG\r\n\x1a\ncover",
		"secret.txt":                "do not serve",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
		require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	}
	return dir, book, filepath.Join(dir, "cover.png"), cleanup
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	_, book, cover, cleanup := setup(t)
	defer cleanup()
	f := filefetcher.New(map[string]string{"": book, "/images/cover.png": cover})
	defer f.Close(ctx) // nolint: errcheck

	for _, c := range []struct{ href, want string }{
		{"OEBPS/chapter1.xhtml", chapter},
		{"/OEBPS/chapter1.xhtml?q=1", chapter},
		{"OEBPS/./style.css", "body {}"},
		{"images/cover.png", "\x89PNG\r\n\x1a\ncover"},
	} {
		r := f.Resolve(fetcher.Link{Href: c.href}, fetcher.Parameters{})
		got, err := fetcher.ReadAllString(ctx, r)
		require.NoError(t, err, c.href)
		assert.Equal(t, c.want, got, c.href)
		n, err := r.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(len(c.want)), n)
		assert.NoError(t, r.Close(ctx))
	}

	r := f.Resolve(fetcher.Link{Href: "OEBPS/chapter1.xhtml"}, fetcher.Parameters{})
	got, err := r.Read(ctx, &fetcher.Range{Start: 12, End: 16})
	require.NoError(t, err)
	assert.Equal(t, "Call", string(got))
	got, err = r.Read(ctx, &fetcher.Range{Start: int64(len(chapter)) - 7, End: 1000})
	require.NoError(t, err)
	assert.Equal(t, "</html>", string(got))
	_, err = r.Read(ctx, &fetcher.Range{Start: 3, End: 1})
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
	assert.NoError(t, r.Close(ctx))
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	_, book, cover, cleanup := setup(t)
	defer cleanup()
	f := filefetcher.New(map[string]string{"book": book, "cover.png": cover})
	defer f.Close(ctx) // nolint: errcheck

	for _, href := range []string{
		"book/missing.xhtml",
		"book/OEBPS",
		"book",
		"book/../secret.txt",
		"../secret.txt",
		"other/chapter1.xhtml",
	} {
		r := f.Resolve(fetcher.Link{Href: href}, fetcher.Parameters{})
		_, err := r.Read(ctx, nil)
		assert.True(t, errors.Is(errors.NotExist, err), "%s: %v", href, err)
		assert.NoError(t, r.Close(ctx))
	}
}

func TestLinks(t *testing.T) {
	ctx := context.Background()
	dir, book, cover, cleanup := setup(t)
	defer cleanup()
	f := filefetcher.New(map[string]string{
		"":          book,
		"cover.png": cover,
		"gone":      filepath.Join(dir, "gone"),
	})
	links, err := f.Links(ctx)
	require.NoError(t, err)
	assert.Equal(t, []fetcher.Link{
		{Href: "OEBPS/chapter1.xhtml", Type: format.XHTML.MediaType},
		{Href: "OEBPS/style.css"},
		{Href: "cover.png", Type: format.PNG.MediaType},
		{Href: "mimetype"},
	}, links)
	require.NoError(t, f.Close(ctx))
	_, err = f.Links(ctx)
	assert.True(t, errors.Is(errors.Closed, err), "%v", err)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	_, book, _, cleanup := setup(t)
	defer cleanup()
	f := filefetcher.NewSingle("", book)

	opened := f.Resolve(fetcher.Link{Href: "mimetype"}, fetcher.Parameters{})
	_, err := opened.Length(ctx)
	require.NoError(t, err)
	unopened := f.Resolve(fetcher.Link{Href: "OEBPS/chapter1.xhtml"}, fetcher.Parameters{})

	require.NoError(t, f.Close(ctx))
	require.NoError(t, f.Close(ctx))

	for _, r := range []fetcher.Resource{opened, unopened, f.Resolve(fetcher.Link{Href: "mimetype"}, fetcher.Parameters{})} {
		_, err := r.Read(ctx, nil)
		assert.True(t, errors.Is(errors.Closed, err), "%v", err)
		assert.NoError(t, r.Close(ctx))
	}
}

func TestSniff(t *testing.T) {
	ctx := context.Background()
	_, book, _, cleanup := setup(t)
	defer cleanup()
	f := filefetcher.NewSingle("", book)
	defer f.Close(ctx) // nolint: errcheck

	// The link's declared type beats the extension and the content.
	r := f.Resolve(fetcher.Link{Href: "OEBPS/chapter1.xhtml", Type: "text/html"}, fetcher.Parameters{})
	got, ok, err := fetcher.SniffFormat(ctx, nil, r)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, format.HTML, got)

	r = f.Resolve(fetcher.Link{Href: "OEBPS/chapter1.xhtml"}, fetcher.Parameters{})
	got, ok, err = fetcher.SniffFormat(ctx, nil, r)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, format.XHTML, got)
}

func TestS3(t *testing.T) {
	ctx := context.Background()
	client := s3test.NewClient(t, "books")
	client.SetFileContentAt("moby/OEBPS/chapter1.xhtml", &testutil.ByteContent{Data: []byte(chapter)}, "")
	client.SetFileContentAt("moby/mimetype", &testutil.ByteContent{Data: []byte("application/epub+zip")}, "")
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewClientProvider(client), s3file.Options{})
	})

	f := filefetcher.NewSingle("", "s3://books/moby/")
	defer f.Close(ctx) // nolint: errcheck
	links, err := f.Links(ctx)
	require.NoError(t, err)
	assert.Equal(t, []fetcher.Link{
		{Href: "OEBPS/chapter1.xhtml", Type: format.XHTML.MediaType},
		{Href: "mimetype"},
	}, links)

	got, err := fetcher.ReadAllString(ctx, f.Resolve(links[0], fetcher.Parameters{}))
	require.NoError(t, err)
	assert.Equal(t, chapter, got)

	_, err = f.Resolve(fetcher.Link{Href: "OEBPS/missing.xhtml"}, fetcher.Parameters{}).Read(ctx, nil)
	assert.True(t, errors.Is(errors.NotExist, err), "%v", err)
}

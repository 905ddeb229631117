// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fetcher_test

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/grailbio/pubfetch/fetcher"
	"github.com/grailbio/pubfetch/format"
	"github.com/grailbio/testutil/expect"
)

func TestLinkPath(t *testing.T) {
	for _, c := range []struct{ href, path, ext string }{
		{"OEBPS/chapter1.xhtml", "OEBPS/chapter1.xhtml", "xhtml"},
		{"/OEBPS/Chapter1.XHTML", "OEBPS/Chapter1.XHTML", "xhtml"},
		{"images/cover.jpg?w=200#top", "images/cover.jpg", "jpg"},
		{"mimetype", "mimetype", ""},
		{"", "", ""},
	} {
		link := fetcher.Link{Href: c.href}
		expect.EQ(t, link.Path(), c.path, c.href)
		expect.EQ(t, link.Extension(), c.ext, c.href)
	}
}

func TestLinkHints(t *testing.T) {
	link := fetcher.Link{Href: "cover.png", Type: "image/png", Rels: []string{"cover", "thumbnail"}}
	if diff := deep.Equal(link.Hints(), format.Hints{MediaTypes: []string{"image/png"}, Extensions: []string{"png"}}); diff != nil {
		t.Error(diff)
	}
	expect.True(t, link.HasRel("cover"))
	expect.False(t, link.HasRel("alternate"))
	expect.EQ(t, link.String(), "cover.png (image/png)")

	bare := fetcher.Link{Href: "mimetype"}
	if diff := deep.Equal(bare.Hints(), format.Hints{}); diff != nil {
		t.Error(diff)
	}
	expect.EQ(t, bare.String(), "mimetype")
}

func TestParameters(t *testing.T) {
	var empty fetcher.Parameters
	expect.EQ(t, empty.Len(), 0)
	_, ok := empty.Get("password")
	expect.False(t, ok)

	p := empty.With("password", "secret").With("lang", "en")
	q := p.With("password", "other")
	expect.EQ(t, empty.Len(), 0)
	expect.EQ(t, p.Keys(), []string{"lang", "password"})
	v, ok := p.Get("password")
	expect.True(t, ok)
	expect.EQ(t, v, "secret")
	v, _ = q.Get("password")
	expect.EQ(t, v, "other")
	expect.EQ(t, q.Len(), 2)
}

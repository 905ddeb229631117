package file_test

import (
	"fmt"
	"testing"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/testutil/expect"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		elems []string
		want  string
	}{
		{
			[]string{"foo/"}, // trailing separator removed from first element.
			"foo",
		},
		{
			[]string{"foo", "bar"}, // join adds separator
			"foo/bar",
		},
		{
			[]string{"/foo", "bar/"}, // leading separator is retained in first element.
			"/foo/bar",
		},
		{
			[]string{"http://foo/", "/bar"}, // separators inside the element are retained.
			"http://foo/bar",
		},
		{
			[]string{"s3://", "/bar"},
			"s3://bar",
		},
		{
			[]string{"s3://books/moby", "OEBPS/", "/chapter1.xhtml"},
			"s3://books/moby/OEBPS/chapter1.xhtml",
		},
	}
	for i, test := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			expect.EQ(t, file.Join(test.elems...), test.want)
		})
	}
}

func TestBase(t *testing.T) {
	for path, want := range map[string]string{
		"/books/moby-dick.epub":     "moby-dick.epub",
		"books/moby":                "moby",
		"s3://":                     "s3://",
		"s3://bucket":               "bucket",
		"s3://bucket/dir/book.epub": "book.epub",
		"s3://bucket/dir/exploded/": "exploded",
		"https://host/a/b.pdf":      "b.pdf",
	} {
		expect.EQ(t, file.Base(path), want)
	}
}

func TestParsePath(t *testing.T) {
	scheme, suffix, err := file.ParsePath("s3://bucket/key")
	expect.NoError(t, err)
	expect.EQ(t, scheme, "s3")
	expect.EQ(t, suffix, "bucket/key")

	scheme, suffix, err = file.ParsePath("/local/path")
	expect.NoError(t, err)
	expect.EQ(t, scheme, "")
	expect.EQ(t, suffix, "/local/path")

	_, _, err = file.ParsePath("s3:/bucket")
	expect.True(t, errors.Is(errors.Invalid, err))
}

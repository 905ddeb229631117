// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

import (
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/grailbio/pubfetch/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaType(t *testing.T) {
	for _, c := range []struct {
		s    string
		want mediaType
	}{
		{"text/html", mediaType{"text/html", "text/html"}},
		{"TEXT/HTML; Charset=UTF-8", mediaType{"text/html", "text/html;charset=utf-8"}},
		{"application/atom+xml;type=entry;profile=opds-catalog", mediaType{"application/atom+xml", "application/atom+xml;profile=opds-catalog;type=entry"}},
	} {
		got, ok := parseMediaType(c.s)
		require.True(t, ok, c.s)
		assert.Equal(t, c.want, got, c.s)
	}
	for _, s := range []string{"", "html", "text/html; ===", "/"} {
		_, ok := parseMediaType(s)
		assert.False(t, ok, s)
	}
	assert.Equal(t, "application/pdf", NormalizeMediaType("Application/PDF; x=y"))
	assert.Equal(t, "", NormalizeMediaType("nonsense"))
}

func TestRegistryFirstRowWins(t *testing.T) {
	a := Format{Name: "A", MediaType: "application/x-a", FileExtension: "shared"}
	b := Format{Name: "B", MediaType: "application/x-b;v=2", FileExtension: "shared"}
	r, err := NewRegistry(
		Row{Format: a, MediaTypes: []string{"application/x-b"}},
		Row{Format: b, Extensions: []string{".B"}},
	)
	require.NoError(t, err)

	f, ok := r.ForExtension("SHARED")
	assert.True(t, ok)
	assert.Equal(t, a, f)
	f, ok = r.ForExtension("b")
	assert.True(t, ok)
	assert.Equal(t, b, f)

	// The exact match beats the base match claimed by the earlier row.
	f, ok = r.ForMediaType("application/x-b; v=2")
	assert.True(t, ok)
	assert.Equal(t, b, f)
	f, ok = r.ForMediaType("application/x-b; v=3")
	assert.True(t, ok)
	assert.Equal(t, a, f)

	_, ok = r.ForExtension("")
	assert.False(t, ok)
	_, ok = r.ForMediaType("garbage")
	assert.False(t, ok)
}

func TestRegistryRegister(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	err = r.Register(Row{Format: Format{Name: "No media type"}})
	assert.True(t, errors.Is(errors.Invalid, err))
	err = r.Register(Row{Format: Format{Name: "Bad", MediaType: "bad"}})
	assert.True(t, errors.Is(errors.Invalid, err))
	err = r.Register(Row{Format: EPUB, MediaTypes: []string{"not/a; valid=\"media"}})
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Empty(t, r.Rows())

	require.NoError(t, r.Register(Row{Format: EPUB}))
	if diff := deep.Equal(r.Rows(), []Row{{Format: EPUB}}); diff != nil {
		t.Error(diff)
	}
}

func TestDefaultTable(t *testing.T) {
	r := DefaultRegistry()
	for _, row := range DefaultTable() {
		f, ok := r.ForMediaType(row.Format.MediaType)
		require.True(t, ok, row.Format.Name)
		assert.Equal(t, row.Format, f, row.Format.Name)
		if row.NoExtensionMatch {
			continue
		}
		f, ok = r.ForExtension(row.Format.FileExtension)
		require.True(t, ok, row.Format.Name)
		assert.Equal(t, row.Format, f, row.Format.Name)
	}
	// Manifests share their extension with plain JSON.
	f, ok := r.ForExtension("json")
	assert.True(t, ok)
	assert.Equal(t, JSON, f)
}

func TestLoadTable(t *testing.T) {
	rows, err := LoadTable(strings.NewReader(`
- name: Comic Book Archive (RAR)
  mediaType: application/vnd.comicbook-rar
  extension: .CBR
  mediaTypes: [application/x-rar-compressed]
- name: Manifest
  mediaType: application/x-manifest+json
  extension: json
  noExtensionMatch: true
`))
	require.NoError(t, err)
	want := []Row{
		{
			Format:     Format{Name: "Comic Book Archive (RAR)", MediaType: "application/vnd.comicbook-rar", FileExtension: "cbr"},
			MediaTypes: []string{"application/x-rar-compressed"},
		},
		{
			Format:           Format{Name: "Manifest", MediaType: "application/x-manifest+json", FileExtension: "json"},
			NoExtensionMatch: true,
		},
	}
	if diff := deep.Equal(rows, want); diff != nil {
		t.Error(diff)
	}

	r, err := NewRegistry(rows...)
	require.NoError(t, err)
	f, ok := r.ForExtension("cbr")
	assert.True(t, ok)
	assert.Equal(t, want[0].Format, f)
	_, ok = r.ForExtension("json")
	assert.False(t, ok)

	rows, err = LoadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)

	for _, bad := range []string{
		"- name: X\n  mediaType: nonsense\n",
		"- mediaType: application/x-y\n",
		"- name: X\n  mediaType: application/x-y\n  color: blue\n",
		"name: not a list\n",
	} {
		_, err := LoadTable(strings.NewReader(bad))
		assert.True(t, errors.Is(errors.Invalid, err), bad)
	}
}

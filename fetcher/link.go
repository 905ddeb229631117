// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fetcher

import (
	"sort"
	"strings"

	"github.com/grailbio/pubfetch/format"
)

// Link points to a resource of a publication. Links are values: the
// methods below never modify the receiver, and callers must not modify
// Rels after handing a Link to a Fetcher.
type Link struct {
	// Href locates the resource, relative to the publication root, for
	// example "OEBPS/chapter1.xhtml". A leading "/" is ignored.
	Href string
	// Type is the declared media type of the resource, or empty.
	Type string
	// Title is a human readable title, or empty.
	Title string
	// Rels are the relations of the resource to the publication, for
	// example "cover".
	Rels []string
}

// Path returns Href without its leading "/", query and fragment.
func (l Link) Path() string {
	p := l.Href
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.TrimPrefix(p, "/")
}

// Extension returns the lowercase extension of the link's path, without
// the dot, or "" if it has none.
func (l Link) Extension() string {
	return format.Extension(l.Path())
}

// HasRel tells whether rel is one of the link's relations.
func (l Link) HasRel(rel string) bool {
	for _, r := range l.Rels {
		if r == rel {
			return true
		}
	}
	return false
}

// Hints returns the format hints carried by the link: its declared media
// type and its extension.
func (l Link) Hints() format.Hints {
	var hints format.Hints
	if l.Type != "" {
		hints.MediaTypes = []string{l.Type}
	}
	if ext := l.Extension(); ext != "" {
		hints.Extensions = []string{ext}
	}
	return hints
}

func (l Link) String() string {
	if l.Type == "" {
		return l.Href
	}
	return l.Href + " (" + l.Type + ")"
}

// Parameters is an immutable set of string hints passed along with a
// link to Fetcher.Resolve, for example the password of a protected
// resource. The zero value is empty and ready to use.
type Parameters struct {
	m map[string]string
}

// With returns a copy of p where key is set to value.
func (p Parameters) With(key, value string) Parameters {
	m := make(map[string]string, len(p.m)+1)
	for k, v := range p.m {
		m[k] = v
	}
	m[key] = value
	return Parameters{m}
}

// Get returns the value of key.
func (p Parameters) Get(key string) (string, bool) {
	v, ok := p.m[key]
	return v, ok
}

// Keys returns the keys of p, sorted.
func (p Parameters) Keys() []string {
	keys := make([]string, 0, len(p.m))
	for k := range p.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys in p.
func (p Parameters) Len() int { return len(p.m) }

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

import (
	"fmt"
	"strings"
	"sync"

	"github.com/grailbio/pubfetch/errors"
)

// Row is one entry of a registry: a Format and the signals that
// identify it without looking at content.
type Row struct {
	Format Format
	// MediaTypes lists alternative media types, besides
	// Format.MediaType, that identify the format.
	MediaTypes []string
	// Extensions lists alternative file extensions, besides
	// Format.FileExtension, that identify the format. Extensions are
	// case-insensitive and may be given with or without a leading dot.
	Extensions []string
	// NoExtensionMatch excludes Format.FileExtension from extension
	// lookups. It is set for formats, like JSON manifests, whose
	// canonical extension is shared by a more generic format.
	NoExtensionMatch bool
}

// Registry maps media types and file extensions to Formats. Lookups
// are resolved in registration order: when two rows claim the same
// signal, the row registered first wins. A Registry is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rows  []Row
	exact map[string]int
	base  map[string]int
	ext   map[string]int
}

// NewRegistry returns a registry with the given rows. It returns an
// error of kind errors.Invalid if a row is malformed.
func NewRegistry(rows ...Row) (*Registry, error) {
	r := &Registry{
		exact: make(map[string]int),
		base:  make(map[string]int),
		ext:   make(map[string]int),
	}
	for _, row := range rows {
		if err := r.Register(row); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the registry seeded with DefaultTable. The
// same instance is returned on every call; rows registered on it are
// visible to Default().
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		var err error
		if defaultRegistry, err = NewRegistry(DefaultTable()...); err != nil {
			panic(fmt.Sprintf("format: default table: %v", err))
		}
	})
	return defaultRegistry
}

// Register appends row to the registry. Signals already claimed by
// an earlier row keep resolving to that row.
func (r *Registry) Register(row Row) error {
	if row.Format.IsZero() || row.Format.MediaType == "" {
		return errors.E(errors.Invalid, "register format: missing media type")
	}
	mts := append([]string{row.Format.MediaType}, row.MediaTypes...)
	parsed := make([]mediaType, len(mts))
	for i, s := range mts {
		mt, ok := parseMediaType(s)
		if !ok {
			return errors.E(errors.Invalid, fmt.Sprintf("register format %s: bad media type %q", row.Format.Name, s))
		}
		parsed[i] = mt
	}
	var exts []string
	if !row.NoExtensionMatch && row.Format.FileExtension != "" {
		exts = append(exts, row.Format.FileExtension)
	}
	exts = append(exts, row.Extensions...)

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := len(r.rows)
	r.rows = append(r.rows, row)
	for _, mt := range parsed {
		if _, ok := r.exact[mt.exact]; !ok {
			r.exact[mt.exact] = idx
		}
		if _, ok := r.base[mt.base]; !ok {
			r.base[mt.base] = idx
		}
	}
	for _, ext := range exts {
		ext = normalizeExtension(ext)
		if ext == "" {
			continue
		}
		if _, ok := r.ext[ext]; !ok {
			r.ext[ext] = idx
		}
	}
	return nil
}

// Rows returns a copy of the registry's rows in registration order.
func (r *Registry) Rows() []Row {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Row(nil), r.rows...)
}

// ForMediaType returns the format identified by media type s. An exact
// match (type, subtype and parameters, case-insensitively) is preferred
// over a match that ignores parameters.
func (r *Registry) ForMediaType(s string) (Format, bool) {
	mt, ok := parseMediaType(s)
	if !ok {
		return Format{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.exact[mt.exact]; ok {
		return r.rows[i].Format, true
	}
	if i, ok := r.base[mt.base]; ok {
		return r.rows[i].Format, true
	}
	return Format{}, false
}

// ForExtension returns the format identified by file extension ext,
// case-insensitively, with or without a leading dot.
func (r *Registry) ForExtension(ext string) (Format, bool) {
	ext = normalizeExtension(ext)
	if ext == "" {
		return Format{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.ext[ext]; ok {
		return r.rows[i].Format, true
	}
	return Format{}, false
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

import (
	"context"
	"sync"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/log"
)

// Hints are the cheap signals of a sniff call.
type Hints struct {
	// Format, if set and non-zero, is trusted as is; nothing else is
	// consulted.
	Format *Format
	// MediaTypes are declared media types, most trusted first.
	MediaTypes []string
	// Extensions are candidate file extensions, with or without a
	// leading dot, most trusted first.
	Extensions []string
}

// Sniffer is a content sniffer. It inspects the content exposed by a
// Context and returns a confident match, or ok == false for "no
// opinion". A non-nil error aborts the sniff call; sniffers return
// errors only when the content could not be read.
type Sniffer interface {
	Sniff(ctx context.Context, c *Context) (f Format, ok bool, err error)
}

// SnifferFunc adapts a function to the Sniffer interface.
type SnifferFunc func(ctx context.Context, c *Context) (Format, bool, error)

// Sniff implements Sniffer.
func (fn SnifferFunc) Sniff(ctx context.Context, c *Context) (Format, bool, error) {
	return fn(ctx, c)
}

// Engine resolves hints and content to a single Format. An Engine is
// stateless apart from its registry and sniffers; it is safe for
// concurrent use, and identical inputs always give identical results.
type Engine struct {
	registry *Registry
	sniffers []Sniffer
}

// New returns an engine that resolves hints against registry and runs
// sniffers, in order, on content.
func New(registry *Registry, sniffers ...Sniffer) *Engine {
	return &Engine{registry: registry, sniffers: append([]Sniffer(nil), sniffers...)}
}

var (
	defaultEngineOnce sync.Once
	defaultEngine     *Engine
)

// Default returns the engine over DefaultRegistry and DefaultSniffers.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = New(DefaultRegistry(), DefaultSniffers()...)
	})
	return defaultEngine
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Sniff returns the format identified by hints and, if needed, src.
// Signals are consulted from most to least trusted, and the first
// confident match wins:
//
//  1. hints.Format, returned unchanged;
//  2. each media type hint, in order, matched exactly and then without
//     parameters;
//  3. each extension hint, in order, case-insensitively;
//  4. the content sniffers, in order, if src is not nil.
//
// Content is read only in step 4. When nothing matches, Sniff returns
// ok == false and a nil error; an error is returned only when src
// cannot be read.
//
// Step 4 may block on I/O. Hosts with latency-sensitive goroutines
// should call Sniff from a background goroutine.
func (e *Engine) Sniff(ctx context.Context, hints Hints, src Source) (Format, bool, error) {
	if hints.Format != nil && !hints.Format.IsZero() {
		return *hints.Format, true, nil
	}
	if f, ok := e.SniffMediaTypes(hints.MediaTypes...); ok {
		return f, true, nil
	}
	if f, ok := e.SniffExtensions(hints.Extensions...); ok {
		return f, true, nil
	}
	if src == nil {
		return Format{}, false, nil
	}
	return e.SniffContent(ctx, NewContext(hints, src))
}

// SniffMediaTypes returns the format of the first media type, in
// order, known to the registry.
func (e *Engine) SniffMediaTypes(mediaTypes ...string) (Format, bool) {
	for _, mt := range mediaTypes {
		if f, ok := e.registry.ForMediaType(mt); ok {
			return f, true
		}
	}
	return Format{}, false
}

// SniffExtensions returns the format of the first extension, in order,
// known to the registry.
func (e *Engine) SniffExtensions(extensions ...string) (Format, bool) {
	for _, ext := range extensions {
		if f, ok := e.registry.ForExtension(ext); ok {
			return f, true
		}
	}
	return Format{}, false
}

// SniffContent runs the engine's content sniffers on c and returns the
// first confident match.
func (e *Engine) SniffContent(ctx context.Context, c *Context) (Format, bool, error) {
	for _, s := range e.sniffers {
		if err := ctx.Err(); err != nil {
			return Format{}, false, errors.E(err, "sniff")
		}
		f, ok, err := s.Sniff(ctx, c)
		if err != nil {
			return Format{}, false, err
		}
		if ok {
			log.Debug.Printf("format: content sniffed as %v", f)
			return f, true, nil
		}
	}
	return Format{}, false, nil
}

// Of sniffs the format of the content at path with the default engine.
// mediaType, if not empty, is used as the only media type hint, and
// the extension of path as the only extension hint. src may be nil.
func Of(ctx context.Context, path, mediaType string, src Source) (Format, bool, error) {
	var hints Hints
	if mediaType != "" {
		hints.MediaTypes = []string{mediaType}
	}
	if ext := Extension(path); ext != "" {
		hints.Extensions = []string{ext}
	}
	return Default().Sniff(ctx, hints, src)
}

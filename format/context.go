// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/internal/zipread"
	"github.com/grailbio/pubfetch/ioctx"
	"github.com/klauspost/compress/zip"
)

var (
	// PeekSize bounds the leading bytes inspected by magic-number and
	// markup sniffers.
	PeekSize = 64 << 10
	// MaxDocumentSize bounds the documents (JSON manifests, archive
	// entries) that sniffers parse in full. Larger documents get no
	// opinion rather than an unbounded read.
	MaxDocumentSize int64 = 4 << 20
)

// Context is handed to content sniffers. It exposes the hints of the
// sniff call and lazily computed views of the content: a bounded
// prefix, the XML root element, a JSON object, the zip central
// directory. Each view is computed at most once per Context, so
// sniffers can share the cost of reading.
//
// A Context belongs to a single Sniff call and is not safe for
// concurrent use.
type Context struct {
	hints Hints
	src   *recordingSource

	size       int64
	sizeLoaded bool

	prefix       []byte
	prefixLoaded bool

	doc       []byte
	docLoaded bool

	xmlRoot   xml.Name
	xmlOK     bool
	xmlLoaded bool

	jsonObj    map[string]interface{}
	jsonLoaded bool

	zip       *zip.Reader
	zipLoaded bool
}

// recordingSource remembers the last I/O error of the wrapped Source,
// so that a failure of a structural parser (zip, flate) can be told
// apart from corrupt content.
type recordingSource struct {
	Source
	err error
}

func (s *recordingSource) ReadAt(ctx context.Context, dst []byte, off int64) (int, error) {
	n, err := s.Source.ReadAt(ctx, dst, off)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// NewContext returns a Context for sniffing src with hints. src may be
// nil, in which case every content view is empty.
func NewContext(hints Hints, src Source) *Context {
	c := &Context{hints: hints}
	if src != nil {
		c.src = &recordingSource{Source: src}
	}
	return c
}

// MediaTypes returns the media-type hints of the sniff call.
func (c *Context) MediaTypes() []string { return append([]string(nil), c.hints.MediaTypes...) }

// Extensions returns the file-extension hints of the sniff call.
func (c *Context) Extensions() []string { return append([]string(nil), c.hints.Extensions...) }

// HasContent tells whether a content Source is available.
func (c *Context) HasContent() bool { return c.src != nil }

// Size returns the length of the content.
func (c *Context) Size(ctx context.Context) (int64, error) {
	if c.src == nil {
		return 0, nil
	}
	if !c.sizeLoaded {
		size, err := c.src.Size(ctx)
		if err != nil {
			return 0, errors.E(err, "sniff: content size")
		}
		c.size, c.sizeLoaded = size, true
	}
	return c.size, nil
}

// Prefix returns up to PeekSize leading bytes of the content.
func (c *Context) Prefix(ctx context.Context) ([]byte, error) {
	if c.prefixLoaded || c.src == nil {
		return c.prefix, nil
	}
	size, err := c.Size(ctx)
	if err != nil {
		return nil, err
	}
	n := int64(PeekSize)
	if size < n {
		n = size
	}
	buf := make([]byte, n)
	m, err := ioctx.ReadFullAt(ctx, c.src, buf, 0)
	if err != nil {
		return nil, errors.E(err, "sniff: reading content prefix")
	}
	c.prefix, c.prefixLoaded = buf[:m], true
	return c.prefix, nil
}

// HasPrefix tells whether the content starts with magic at offset off.
func (c *Context) HasPrefix(ctx context.Context, off int, magic []byte) (bool, error) {
	p, err := c.Prefix(ctx)
	if err != nil {
		return false, err
	}
	if off+len(magic) > len(p) {
		return false, nil
	}
	return bytes.Equal(p[off:off+len(magic)], magic), nil
}

// Document returns the whole content when it is at most
// MaxDocumentSize bytes long; ok is false otherwise.
func (c *Context) Document(ctx context.Context) (doc []byte, ok bool, err error) {
	if c.docLoaded || c.src == nil {
		return c.doc, c.doc != nil, nil
	}
	size, err := c.Size(ctx)
	if err != nil {
		return nil, false, err
	}
	c.docLoaded = true
	if size > MaxDocumentSize {
		return nil, false, nil
	}
	buf := make([]byte, size)
	n, err := ioctx.ReadFullAt(ctx, c.src, buf, 0)
	if err != nil {
		c.docLoaded = false
		return nil, false, errors.E(err, "sniff: reading content")
	}
	c.doc = buf[:n]
	return c.doc, true, nil
}

// XMLRoot returns the name of the root element when the content prefix
// is well-formed XML up to its first element.
func (c *Context) XMLRoot(ctx context.Context) (xml.Name, bool, error) {
	if c.xmlLoaded {
		return c.xmlRoot, c.xmlOK, nil
	}
	p, err := c.Prefix(ctx)
	if err != nil {
		return xml.Name{}, false, err
	}
	c.xmlLoaded = true
	dec := xml.NewDecoder(bytes.NewReader(p))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.Name{}, false, nil
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			c.xmlRoot, c.xmlOK = tok.Name, true
			return c.xmlRoot, true, nil
		case xml.CharData:
			if len(bytes.TrimSpace(tok)) > 0 {
				return xml.Name{}, false, nil
			}
		}
	}
}

// JSONObject returns the content decoded as a JSON object.
func (c *Context) JSONObject(ctx context.Context) (map[string]interface{}, bool, error) {
	if c.jsonLoaded {
		return c.jsonObj, c.jsonObj != nil, nil
	}
	// Avoid reading whole binaries that cannot be JSON objects.
	p, err := c.Prefix(ctx)
	if err != nil {
		return nil, false, err
	}
	if t := bytes.TrimLeft(p, " \t\r\n"); len(t) == 0 || t[0] != '{' {
		c.jsonLoaded = true
		return nil, false, nil
	}
	doc, ok, err := c.Document(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	c.jsonLoaded = true
	c.jsonObj = decodeJSONObject(doc)
	return c.jsonObj, c.jsonObj != nil, nil
}

func decodeJSONObject(doc []byte) map[string]interface{} {
	var obj map[string]interface{}
	if err := json.Unmarshal(doc, &obj); err != nil {
		return nil
	}
	return obj
}

// Archive returns the zip central directory of the content, or nil if
// the content is not a zip archive.
func (c *Context) Archive(ctx context.Context) (*zip.Reader, error) {
	if c.zipLoaded || c.src == nil {
		return c.zip, nil
	}
	// Cheap rejection before touching the end of the content.
	isZip, err := c.HasPrefix(ctx, 0, []byte("PK"))
	if err != nil {
		return nil, err
	}
	if !isZip {
		c.zipLoaded = true
		return nil, nil
	}
	size, err := c.Size(ctx)
	if err != nil {
		return nil, err
	}
	c.src.err = nil
	zr, err := zipread.NewReader(ctx, c.src, size)
	if err != nil {
		if err = c.readError(); err == nil {
			c.zipLoaded = true
		}
		return nil, err
	}
	c.zip, c.zipLoaded = zr, true
	return zr, nil
}

// readError returns the I/O error that made a structural parser fail,
// if any. Parser failures on readable content return nil: such content
// simply does not match.
func (c *Context) readError() error {
	if c.src.err == nil {
		return nil
	}
	return errors.E(c.src.err, "sniff: reading archive")
}

// ContainsEntry tells whether the content is a zip archive with an
// entry named name.
func (c *Context) ContainsEntry(ctx context.Context, name string) (bool, error) {
	zr, err := c.Archive(ctx)
	if err != nil || zr == nil {
		return false, err
	}
	return zipread.Find(zr, name) != nil, nil
}

// ReadEntry returns the content of the archive entry name if the
// content is a zip archive holding a readable entry of at most
// MaxDocumentSize bytes.
func (c *Context) ReadEntry(ctx context.Context, name string) ([]byte, bool, error) {
	zr, err := c.Archive(ctx)
	if err != nil || zr == nil {
		return nil, false, err
	}
	f := zipread.Find(zr, name)
	if f == nil || f.UncompressedSize64 > uint64(MaxDocumentSize) {
		return nil, false, nil
	}
	c.src.err = nil
	rc, err := f.Open()
	if err != nil {
		return nil, false, c.readError()
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(io.LimitReader(rc, MaxDocumentSize))
	if err != nil {
		return nil, false, c.readError()
	}
	return b, true, nil
}

// EntriesAll tells whether the content is a zip archive with at least
// one regular entry, and every regular entry satisfies pred.
// Directories and housekeeping entries such as __MACOSX/ or
// .DS_Store are skipped.
func (c *Context) EntriesAll(ctx context.Context, pred func(name string) bool) (bool, error) {
	zr, err := c.Archive(ctx)
	if err != nil || zr == nil {
		return false, err
	}
	var n int
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || zipread.Ignored(f.Name) {
			continue
		}
		if !pred(f.Name) {
			return false, nil
		}
		n++
	}
	return n > 0, nil
}

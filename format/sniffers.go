// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/grailbio/pubfetch/internal/zipread"
	"golang.org/x/net/html"
)

const (
	atomNS  = "http://www.w3.org/2005/Atom"
	xhtmlNS = "http://www.w3.org/1999/xhtml"

	w3cContext       = "https://www.w3.org/ns/wp-context"
	audiobookProfile = "https://readium.org/webpub-manifest/profiles/audiobook"
	divinaProfile    = "https://readium.org/webpub-manifest/profiles/divina"
	audiobookType    = "http://schema.org/Audiobook"
	acquisitionRel   = "http://opds-spec.org/acquisition"
)

// DefaultSniffers returns the content sniffers of the default engine,
// in the order in which they run. Cheap sniffers, which look at a
// bounded prefix, come before those that parse documents or archive
// directories; the catch-all JSON sniffer comes last.
func DefaultSniffers() []Sniffer {
	return []Sniffer{
		SnifferFunc(sniffHTML),
		SnifferFunc(sniffOPDS),
		SnifferFunc(sniffLCPLicense),
		SnifferFunc(sniffBitmap),
		SnifferFunc(sniffWebPubManifest),
		SnifferFunc(sniffWebPub),
		SnifferFunc(sniffW3CWPUB),
		SnifferFunc(sniffEPUB),
		SnifferFunc(sniffLPF),
		SnifferFunc(sniffArchiveEntries),
		SnifferFunc(sniffPDF),
		SnifferFunc(sniffJSON),
	}
}

// sniffHTML recognizes XHTML documents, whose html root is in the XHTML
// namespace with or without an XML declaration, and HTML documents,
// which start with an html doctype or an html element.
func sniffHTML(ctx context.Context, c *Context) (Format, bool, error) {
	p, err := c.Prefix(ctx)
	if err != nil || len(p) == 0 {
		return Format{}, false, err
	}
	root, ok, err := c.XMLRoot(ctx)
	if err != nil {
		return Format{}, false, err
	}
	if ok && strings.EqualFold(root.Local, "html") && root.Space == xhtmlNS {
		return XHTML, true, nil
	}
	z := html.NewTokenizer(bytes.NewReader(p))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return Format{}, false, nil
		case html.CommentToken:
			// Includes XML declarations and processing instructions.
		case html.TextToken:
			if len(bytes.TrimSpace(z.Text())) > 0 {
				return Format{}, false, nil
			}
		case html.DoctypeToken:
			fields := strings.Fields(z.Token().Data)
			return HTML, len(fields) > 0 && strings.EqualFold(fields[0], "html"), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			return HTML, string(name) == "html", nil
		default:
			return Format{}, false, nil
		}
	}
}

// sniffOPDS recognizes OPDS 1 Atom documents, OPDS 2 feeds and
// publications, and OPDS authentication documents.
func sniffOPDS(ctx context.Context, c *Context) (Format, bool, error) {
	root, ok, err := c.XMLRoot(ctx)
	if err != nil {
		return Format{}, false, err
	}
	if ok && root.Space == atomNS {
		switch root.Local {
		case "feed":
			return OPDS1Feed, true, nil
		case "entry":
			return OPDS1Entry, true, nil
		}
	}
	obj, ok, err := c.JSONObject(ctx)
	if err != nil || !ok {
		return Format{}, false, err
	}
	if _, ok := obj["metadata"].(map[string]interface{}); ok {
		for _, l := range links(obj, "links") {
			if l.hasRel("self") && l.Type == OPDS2Feed.MediaType {
				return OPDS2Feed, true, nil
			}
		}
		for _, key := range []string{"navigation", "publications", "groups", "facets"} {
			if _, ok := obj[key].([]interface{}); ok {
				return OPDS2Feed, true, nil
			}
		}
		for _, l := range links(obj, "links") {
			for _, rel := range l.Rels {
				if strings.HasPrefix(rel, acquisitionRel) {
					return OPDS2Publication, true, nil
				}
			}
		}
	}
	if hasKeys(obj, "id", "title", "authentication") {
		return OPDSAuthentication, true, nil
	}
	return Format{}, false, nil
}

func sniffLCPLicense(ctx context.Context, c *Context) (Format, bool, error) {
	obj, ok, err := c.JSONObject(ctx)
	if err != nil || !ok {
		return Format{}, false, err
	}
	return LCPLicense, hasKeys(obj, "id", "issued", "provider", "encryption"), nil
}

var bitmapMagic = []struct {
	off    int
	magic  string
	format Format
}{
	{0, "BM", BMP},
	{0, "GIF87a", GIF},
	{0, "GIF89a", GIF},
	{0, "\xff\xd8\xff", JPEG},
	{0, "\x89PNG\r\n\x1a\n", PNG},
	{0, "II*\x00", TIFF},
	{0, "MM\x00*", TIFF},
	{8, "WEBP", WebP},
}

func sniffBitmap(ctx context.Context, c *Context) (Format, bool, error) {
	for _, m := range bitmapMagic {
		ok, err := c.HasPrefix(ctx, m.off, []byte(m.magic))
		if err != nil {
			return Format{}, false, err
		}
		if !ok {
			continue
		}
		if m.format == WebP {
			if ok, err = c.HasPrefix(ctx, 0, []byte("RIFF")); err != nil || !ok {
				return Format{}, false, err
			}
		}
		return m.format, true, nil
	}
	return Format{}, false, nil
}

// sniffWebPubManifest recognizes Readium Web Publication manifests and
// their audiobook and visual narrative profiles.
func sniffWebPubManifest(ctx context.Context, c *Context) (Format, bool, error) {
	obj, ok, err := c.JSONObject(ctx)
	if err != nil || !ok {
		return Format{}, false, err
	}
	m, ok := asManifest(obj)
	if !ok {
		return Format{}, false, nil
	}
	switch {
	case m.conformsTo(audiobookProfile):
		return AudiobookManifest, true, nil
	case m.conformsTo(divinaProfile):
		return DiViNaManifest, true, nil
	default:
		return WebPubManifest, true, nil
	}
}

// sniffWebPub recognizes packaged Readium Web Publications: zip
// archives with a manifest.json entry, possibly protected by an LCP
// license.
func sniffWebPub(ctx context.Context, c *Context) (Format, bool, error) {
	doc, ok, err := c.ReadEntry(ctx, "manifest.json")
	if err != nil || !ok {
		return Format{}, false, err
	}
	lcp, err := c.ContainsEntry(ctx, "license.lcpl")
	if err != nil {
		return Format{}, false, err
	}
	m, ok := asManifest(decodeJSONObject(doc))
	if !ok {
		return Format{}, false, nil
	}
	switch {
	case m.conformsTo(audiobookProfile):
		if lcp {
			return LCPProtectedAudiobook, true, nil
		}
		return Audiobook, true, nil
	case m.conformsTo(divinaProfile):
		return DiViNa, true, nil
	case lcp && m.readingOrderAll(PDF.MediaType):
		return LCPProtectedPDF, true, nil
	default:
		return WebPub, true, nil
	}
}

func sniffW3CWPUB(ctx context.Context, c *Context) (Format, bool, error) {
	obj, ok, err := c.JSONObject(ctx)
	if err != nil || !ok {
		return Format{}, false, err
	}
	return W3CWPUBManifest, hasW3CContext(obj), nil
}

func sniffEPUB(ctx context.Context, c *Context) (Format, bool, error) {
	b, ok, err := c.ReadEntry(ctx, "mimetype")
	if err != nil || !ok {
		return Format{}, false, err
	}
	return EPUB, strings.TrimSpace(string(b)) == EPUB.MediaType, nil
}

// sniffLPF recognizes W3C Lightweight Packaging Format archives, which
// hold either an index.html entry or a publication.json manifest.
func sniffLPF(ctx context.Context, c *Context) (Format, bool, error) {
	ok, err := c.ContainsEntry(ctx, "index.html")
	if err != nil || ok {
		return LPF, ok, err
	}
	doc, ok, err := c.ReadEntry(ctx, "publication.json")
	if err != nil || !ok {
		return Format{}, false, err
	}
	return LPF, hasW3CContext(decodeJSONObject(doc)), nil
}

var (
	comicExtensions = set("acbf", "bmp", "gif", "jpeg", "jpg", "jxl", "png", "tif", "tiff", "webp")
	comicSidecars   = set("txt", "xml")
	audioExtensions = set("aac", "aiff", "alac", "flac", "m4a", "m4b", "mp3", "oga", "ogg", "mogg", "opus", "wav", "webm")
	playlists       = set("asx", "bio", "m3u", "m3u8", "pla", "pls", "smil", "vlc", "wpl", "xspf", "zpl")
)

// sniffArchiveEntries recognizes comic book archives, which hold only
// images, and zipped audio books, which hold only audio files and
// playlists.
func sniffArchiveEntries(ctx context.Context, c *Context) (Format, bool, error) {
	var images bool
	ok, err := c.EntriesAll(ctx, func(name string) bool {
		ext := zipread.Ext(name)
		images = images || comicExtensions[ext]
		return comicExtensions[ext] || comicSidecars[ext]
	})
	if err != nil {
		return Format{}, false, err
	}
	if ok && images {
		return CBZ, true, nil
	}
	var audio bool
	ok, err = c.EntriesAll(ctx, func(name string) bool {
		ext := zipread.Ext(name)
		audio = audio || audioExtensions[ext]
		return audioExtensions[ext] || playlists[ext]
	})
	if err != nil {
		return Format{}, false, err
	}
	return ZAB, ok && audio, nil
}

func sniffPDF(ctx context.Context, c *Context) (Format, bool, error) {
	ok, err := c.HasPrefix(ctx, 0, []byte("%PDF-"))
	return PDF, ok, err
}

// sniffJSON recognizes any well-formed JSON document.
func sniffJSON(ctx context.Context, c *Context) (Format, bool, error) {
	p, err := c.Prefix(ctx)
	if err != nil {
		return Format{}, false, err
	}
	p = bytes.TrimLeft(p, " \t\r\n")
	if len(p) == 0 || !strings.ContainsRune(`{["-0123456789tfn`, rune(p[0])) {
		return Format{}, false, nil
	}
	doc, ok, err := c.Document(ctx)
	if err != nil || !ok {
		return Format{}, false, err
	}
	return JSON, json.Valid(doc), nil
}

// manifest is the subset of a Readium Web Publication manifest that
// identifies its profile.
type manifest struct {
	metadata     map[string]interface{}
	readingOrder []link
}

func asManifest(obj map[string]interface{}) (manifest, bool) {
	md, ok := obj["metadata"].(map[string]interface{})
	if !ok {
		return manifest{}, false
	}
	if _, ok := obj["readingOrder"].([]interface{}); !ok {
		if _, ok := obj["spine"].([]interface{}); !ok {
			return manifest{}, false
		}
		return manifest{md, links(obj, "spine")}, true
	}
	return manifest{md, links(obj, "readingOrder")}, true
}

func (m manifest) conformsTo(profile string) bool {
	for _, p := range stringOrStrings(m.metadata["conformsTo"]) {
		if p == profile {
			return true
		}
	}
	if profile == audiobookProfile {
		for _, t := range stringOrStrings(m.metadata["@type"]) {
			if t == audiobookType {
				return true
			}
		}
	}
	return false
}

func (m manifest) readingOrderAll(mediaType string) bool {
	want, ok := parseMediaType(mediaType)
	if !ok || len(m.readingOrder) == 0 {
		return false
	}
	for _, l := range m.readingOrder {
		if mt, ok := parseMediaType(l.Type); !ok || mt.base != want.base {
			return false
		}
	}
	return true
}

type link struct {
	Type string
	Rels []string
}

func (l link) hasRel(rel string) bool {
	for _, r := range l.Rels {
		if r == rel {
			return true
		}
	}
	return false
}

// links decodes the JSON array obj[key] into links, skipping
// malformed elements.
func links(obj map[string]interface{}, key string) []link {
	arr, _ := obj[key].([]interface{})
	var ls []link
	for _, v := range arr {
		m, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		typ, _ := m["type"].(string)
		ls = append(ls, link{Type: typ, Rels: stringOrStrings(m["rel"])})
	}
	return ls
}

func hasW3CContext(obj map[string]interface{}) bool {
	for _, s := range stringOrStrings(obj["@context"]) {
		if s == w3cContext {
			return true
		}
	}
	return false
}

// stringOrStrings returns the strings of a JSON value that is either a
// string or an array of strings.
func stringOrStrings(v interface{}) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []interface{}:
		var ss []string
		for _, e := range v {
			if s, ok := e.(string); ok {
				ss = append(ss, s)
			}
		}
		return ss
	}
	return nil
}

func hasKeys(obj map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

func set(elems ...string) map[string]bool {
	m := make(map[string]bool, len(elems))
	for _, e := range elems {
		m[e] = true
	}
	return m
}

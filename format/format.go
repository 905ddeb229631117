// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

import (
	"path"
	"strings"
)

// Format identifies a content type: a canonical media type, the
// canonical file extension (without dot) and a human readable name.
// Formats are compared by value; the zero Format means "no format".
type Format struct {
	Name          string
	MediaType     string
	FileExtension string
}

// IsZero tells whether f is the zero Format.
func (f Format) IsZero() bool { return f == Format{} }

// String returns a diagnostic string.
func (f Format) String() string {
	if f.IsZero() {
		return "<no format>"
	}
	return f.Name + " (" + f.MediaType + ")"
}

// Formats known to the default registry. Callers may compare sniffed
// results against these values with ==.
var (
	Audiobook             = Format{"Readium Audiobook", "application/audiobook+zip", "audiobook"}
	AudiobookManifest     = Format{"Readium Audiobook Manifest", "application/audiobook+json", "json"}
	BMP                   = Format{"BMP", "image/bmp", "bmp"}
	CBZ                   = Format{"Comic Book Archive", "application/vnd.comicbook+zip", "cbz"}
	DiViNa                = Format{"Digital Visual Narratives", "application/divina+zip", "divina"}
	DiViNaManifest        = Format{"Digital Visual Narratives Manifest", "application/divina+json", "json"}
	EPUB                  = Format{"EPUB", "application/epub+zip", "epub"}
	GIF                   = Format{"GIF", "image/gif", "gif"}
	HTML                  = Format{"HTML", "text/html", "html"}
	JPEG                  = Format{"JPEG", "image/jpeg", "jpeg"}
	JSON                  = Format{"JSON", "application/json", "json"}
	LCPProtectedAudiobook = Format{"LCP Protected Audiobook", "application/audiobook+lcp", "lcpa"}
	LCPProtectedPDF       = Format{"LCP Protected PDF", "application/pdf+lcp", "lcpdf"}
	LCPLicense            = Format{"LCP License", "application/vnd.readium.lcp.license.v1.0+json", "lcpl"}
	LPF                   = Format{"Lightweight Packaging Format", "application/lpf+zip", "lpf"}
	OPDS1Feed             = Format{"OPDS 1 Feed", "application/atom+xml;profile=opds-catalog", "xml"}
	OPDS1Entry            = Format{"OPDS 1 Entry", "application/atom+xml;type=entry;profile=opds-catalog", "xml"}
	OPDS2Feed             = Format{"OPDS 2 Feed", "application/opds+json", "json"}
	OPDS2Publication      = Format{"OPDS 2 Publication", "application/opds-publication+json", "json"}
	OPDSAuthentication    = Format{"OPDS Authentication Document", "application/opds-authentication+json", "json"}
	PDF                   = Format{"PDF", "application/pdf", "pdf"}
	PNG                   = Format{"PNG", "image/png", "png"}
	TIFF                  = Format{"TIFF", "image/tiff", "tiff"}
	W3CWPUBManifest       = Format{"Web Publication", "application/x.readium.w3c.wpub+json", "json"}
	WebP                  = Format{"WebP", "image/webp", "webp"}
	WebPub                = Format{"Readium Web Publication", "application/webpub+zip", "webpub"}
	WebPubManifest        = Format{"Readium Web Publication Manifest", "application/webpub+json", "json"}
	XHTML                 = Format{"XHTML", "application/xhtml+xml", "xhtml"}
	ZAB                   = Format{"Zipped Audio Book", "application/x.readium.zab+zip", "zab"}
)

// Extension returns the lowercase extension of the last element of p,
// without the leading dot. p may be a local path or a URL; a query or
// fragment is ignored. Extension returns "" when there is none.
func Extension(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 && strings.Contains(p, "://") {
		p = p[:i]
	}
	p = strings.TrimRight(p, "/")
	ext := path.Ext(p)
	if strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

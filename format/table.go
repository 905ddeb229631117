// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

// DefaultTable returns the rows of the default registry. Recognizing a
// new format from its media type or extension means adding a row here
// (or registering one at run time); sniffing logic is unaffected.
func DefaultTable() []Row {
	return []Row{
		{Format: Audiobook},
		{Format: AudiobookManifest, NoExtensionMatch: true},
		{Format: BMP, MediaTypes: []string{"image/x-bmp"}, Extensions: []string{"dib"}},
		{Format: CBZ, MediaTypes: []string{"application/x-cbz", "application/x-cbr"}},
		{Format: DiViNa},
		{Format: DiViNaManifest, NoExtensionMatch: true},
		{Format: EPUB},
		{Format: GIF},
		{Format: HTML, Extensions: []string{"htm"}},
		{Format: JPEG, Extensions: []string{"jpg", "jpe", "jif", "jfif", "jfi"}},
		{Format: JSON},
		{Format: LCPProtectedAudiobook},
		{Format: LCPProtectedPDF},
		{Format: LCPLicense},
		{Format: LPF},
		{Format: OPDS1Feed, NoExtensionMatch: true},
		{Format: OPDS1Entry, NoExtensionMatch: true},
		{Format: OPDS2Feed, NoExtensionMatch: true},
		{Format: OPDS2Publication, NoExtensionMatch: true},
		{Format: OPDSAuthentication, NoExtensionMatch: true},
		{Format: PDF},
		{Format: PNG},
		{Format: TIFF, Extensions: []string{"tif"}},
		{Format: W3CWPUBManifest, NoExtensionMatch: true},
		{Format: WebP},
		{Format: WebPub},
		{Format: WebPubManifest, NoExtensionMatch: true},
		{Format: XHTML, Extensions: []string{"xht"}},
		{Format: ZAB},
	}
}

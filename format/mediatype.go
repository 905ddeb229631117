// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

import (
	"mime"
	"sort"
	"strings"
)

// mediaType is a parsed media type string.
type mediaType struct {
	// base is the lowercase "type/subtype".
	base string
	// exact is base followed by the parameters sorted by (lowercase)
	// name, e.g. "application/atom+xml;profile=opds-catalog;type=entry".
	exact string
}

// parseMediaType parses s. Parameter names are case-insensitive;
// parameter values are compared as given except for charset, whose
// value is case-insensitive too.
func parseMediaType(s string) (mediaType, bool) {
	base, params, err := mime.ParseMediaType(s)
	if err != nil || !strings.Contains(base, "/") {
		return mediaType{}, false
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(base)
	for _, k := range keys {
		v := params[k]
		if k == "charset" {
			v = strings.ToLower(v)
		}
		b.WriteByte(';')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return mediaType{base: base, exact: b.String()}, true
}

// NormalizeMediaType returns s lowercased with its parameters removed,
// e.g. "text/html" for "TEXT/HTML; charset=UTF-8". It returns "" if s is
// not a valid media type.
func NormalizeMediaType(s string) string {
	mt, ok := parseMediaType(s)
	if !ok {
		return ""
	}
	return mt.base
}

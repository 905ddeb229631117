// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grailbio/pubfetch/errors"
)

const (
	urlSeparator = '/'
)

// Compute the length of "foo" part of "foo://bar/baz". Returns (0,nil) if the
// path is for a local file system.
func getURLScheme(path string) (int, error) {
	// Scheme is always encoded in ASCII, per RFC3986.
	schemeLimit := -1
	for i := 0; i < len(path); i++ {
		ch := path[i]
		if ch == ':' {
			if len(path) <= i+2 || path[i+1] != '/' || path[i+2] != '/' {
				return -1, errors.E(errors.Invalid, fmt.Sprintf("parsepath %s: a URL must start with 'scheme://'", path))
			}
			schemeLimit = i
			break
		}
		if !((ch >= '0' && ch <= '9') || (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || ch == '.' || ch == '+' || ch == '=') {
			break
		}
	}
	if schemeLimit == -1 {
		return 0, nil
	}
	return schemeLimit, nil
}

// ParsePath parses "path" and find the namespace object that can handle the
// path. The path can be of form either "scheme://path" just
// "path0/.../pathN". The latter indicates a local file.
//
// On success, "schema" will be the schema part of the path. "suffix" will be
// the path part after the scheme://. For example, ParsePath("s3://key/bucket")
// will return ("s3", "key/bucket", nil).
//
// For a local-filesystem path, this function returns ("", path, nil).
func ParsePath(path string) (scheme, suffix string, err error) {
	schemeLen, err := getURLScheme(path)
	if err != nil {
		return "", "", err
	}
	if schemeLen == 0 {
		return "", path, nil
	}
	return path[:schemeLen], path[schemeLen+3:], nil
}

// Base returns the last element of the path. It is the same as filepath.Base
// for a local filesystem path.  Else, it acts like filepath.Base, with the
// following differences: (1) the path separator is always '/'. (2) if the URL
// suffix is empty, it returns the path itself.
//
// Example:
//
//	file.Base("s3://") returns "s3://".
//	file.Base("s3://books/moby-dick.epub") returns "moby-dick.epub".
func Base(path string) string {
	scheme, suffix, err := ParsePath(path)
	if scheme == "" || err != nil {
		return filepath.Base(path)
	}
	suffix = strings.TrimRight(suffix, "/")
	if suffix == "" {
		// path is "s3://".
		return path
	}
	if i := strings.LastIndexByte(suffix, urlSeparator); i >= 0 {
		return suffix[i+1:]
	}
	return suffix
}

// Join joins any number of path elements into a single path, adding a separator
// if necessary. It is the same as filepath.Join if elems[0] is a local
// filesystem path. Else, it works like filepath.Join, with the following
// differences: (1) the path separator is always '/'. (2) Each element is
// not cleaned; for example if an element contains repeated "/"s in the middle,
// they are preserved.
func Join(elems ...string) string {
	if len(elems) == 0 {
		return ""
	}
	elems = append([]string(nil), elems...)
	var prefix string
	n, err := getURLScheme(elems[0])
	if err == nil && n > 0 {
		prefix = elems[0][:n+3]
		elems[0] = elems[0][n+3:]
	} else {
		return filepath.Join(elems...)
	}

	newElems := make([]string, 0, len(elems))
	for _, e := range elems {
		if e = strings.Trim(e, "/"); e != "" {
			newElems = append(newElems, e)
		}
	}
	return prefix + strings.Join(newElems, "/")
}

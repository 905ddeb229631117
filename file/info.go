// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"time"
)

// Info represents file metadata.
type Info interface {
	// Size returns the length of the file in bytes for regular files; zero for directories.
	Size() int64
	// ModTime returns modification time for regular files; system-dependent for others
	ModTime() time.Time
	// IsDir tells whether the path is a directory (or, for key based
	// storage engines, a common prefix ending in "/").
	IsDir() bool
}

type info struct {
	size    int64
	modTime time.Time
	isDir   bool
}

// NewInfo returns an Info, for use by Implementations.
func NewInfo(size int64, modTime time.Time, isDir bool) Info {
	return info{size, modTime, isDir}
}

func (i info) Size() int64        { return i.size }
func (i info) ModTime() time.Time { return i.modTime }
func (i info) IsDir() bool        { return i.isDir }

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/log"
)

type localImpl struct{}

type localFile struct {
	f    *os.File
	path string // User-supplied path.
}

type localLister struct {
	prefix string
	err    error
	path   string
	info   os.FileInfo
	todo   []string
}

func (impl *localImpl) String() string {
	return "local"
}

// Open implements file.Implementation.
func (impl *localImpl) Open(ctx context.Context, path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	log.Debug.Printf("file: opened %s", path)
	return &localFile{f: f, path: path}, nil
}

// Stat implements file.Implementation
func (impl *localImpl) Stat(ctx context.Context, path string) (Info, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.E(err, "stat", path)
	}
	if info.IsDir() {
		return NewInfo(0, info.ModTime(), true), nil
	}
	return NewInfo(info.Size(), info.ModTime(), false), nil
}

// List implements file.Implementation
func (impl *localImpl) List(ctx context.Context, dir string) Lister {
	return &localLister{prefix: dir, todo: []string{dir}}
}

// Close implements file.Reader.
func (f *localFile) Close(ctx context.Context) error {
	if err := f.f.Close(); err != nil {
		return errors.E(err, "close", f.path)
	}
	return nil
}

// Name implements file.Reader.
func (f *localFile) Name() string {
	return f.path
}

// ReadAt implements file.Reader.
func (f *localFile) ReadAt(ctx context.Context, dst []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.f.ReadAt(dst, off)
}

// Size implements file.Reader.
func (f *localFile) Size(context.Context) (int64, error) {
	info, err := f.f.Stat()
	if err != nil {
		return 0, errors.E(err, "stat", f.path)
	}
	if info.IsDir() {
		return 0, errors.E(errors.NotSupported, "read", f.path, "is a directory")
	}
	return info.Size(), nil
}

// Scan implements Lister.Scan.
func (l *localLister) Scan() bool {
	for {
		if len(l.todo) == 0 || l.err != nil {
			return false
		}
		l.path, l.todo = l.todo[0], l.todo[1:]
		l.info, l.err = os.Stat(l.path)
		if os.IsNotExist(l.err) {
			l.err = nil
			continue
		}
		if l.err != nil {
			return false
		}
		if !l.info.IsDir() {
			// A regular file given as the prefix is not under it.
			if l.path == l.prefix {
				continue
			}
			return true
		}
		var paths []string
		paths, l.err = readDirNames(l.path)
		if l.err != nil {
			return false
		}
		for i := range paths {
			paths[i] = filepath.Join(l.path, paths[i])
		}
		l.todo = append(paths, l.todo...)
	}
}

// Path returns the most recent path that was scanned.
func (l *localLister) Path() string {
	return l.path
}

// Info returns the metadata of the most recent path scanned.
func (l *localLister) Info() Info {
	return NewInfo(l.info.Size(), l.info.ModTime(), false)
}

// Err returns the first error that occurred while scanning.
func (l *localLister) Err() error {
	return l.err
}

// readDirNames reads the directory named by dirname and returns
// a sorted list of directory entries.
func readDirNames(dirname string) ([]string, error) {
	f, err := os.Open(dirname)
	if err != nil {
		return nil, err
	}
	names, err := f.Readdirnames(-1)
	if e := f.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// NewLocalImplementation returns a new file.Implementation for the local file system
// that uses Go's native "os" module. This function is only for unittests.
// Applications should use functions such as file.Open, file.Stat to access
// the local file system.
func NewLocalImplementation() Implementation { return &localImpl{} }

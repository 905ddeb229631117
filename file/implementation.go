// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"context"
	"fmt"
	"sync"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/ioctx"
)

// Implementation implements read operations for a file-system type.
// Thread safe.
type Implementation interface {
	// String returns a diagnostic string.
	String() string

	// Open opens a file for reading. The pathname given to file.Open() is passed
	// here unchanged. Thus, it contains the URL prefix such as "s3://".
	//
	// Open returns an error of kind errors.NotExist if there is
	// no file at the provided path.
	Open(ctx context.Context, path string) (Reader, error)

	// Stat returns the metadata of a file or a directory. For key based
	// storage engines (e.g. S3), a path is a directory if it is followed
	// immediately by "/" in some object keys.
	//
	// Stat returns an error of kind errors.NotExist if there is
	// no file or directory at the provided path.
	Stat(ctx context.Context, path string) (Info, error)

	// List finds all files under the directory "dir" and its
	// subdirectories. All the files returned by the lister have
	// pathnames of the form dir/something. Directories are not returned
	// as separate entities. Dir may end in /, but need not.
	List(ctx context.Context, dir string) Lister
}

// Reader is a file opened for reading. Reads may be issued
// concurrently. Implementations must be thread safe.
type Reader interface {
	ioctx.ReaderAt

	// Name returns the path name given to file.Open.
	Name() string

	// Size returns the length of the file in bytes.
	Size(ctx context.Context) (int64, error)

	// Close releases the file. No other method shall be called after
	// Close.
	Close(ctx context.Context) error
}

// Lister lists files in a directory tree. Not thread safe.
type Lister interface {
	// Scan advances the lister to the next entry.  It returns
	// false either when the scan stops because we have reached the end of the input
	// or else because there was error.  After Scan returns, the Err method returns
	// any error that occurred during scanning.
	Scan() bool

	// Err returns the first error that occurred while scanning.
	Err() error

	// Path returns the last path that was scanned. The path always starts with
	// the directory path given to the List method.
	//
	// REQUIRES: Last call to Scan returned true.
	Path() string

	// Info returns metadata of the file that was scanned.
	//
	// REQUIRES: Last call to Scan returned true.
	Info() Info
}

type implementationFactory func() Implementation

var (
	mu                sync.RWMutex
	implFactories     = make(map[string]implementationFactory)
	impls             = make(map[string]Implementation)
	localImplInstance = NewLocalImplementation()
)

// RegisterImplementation arranges so that ParsePath(schema + "://anystring")
// will return (impl, "anystring", nil) in the future. Schema is a string such
// as "s3".
//
// RegisterImplementation() should generally be called when the process starts.
// implFactory will be invoked exactly once, upon the first request to this scheme;
// this allows you to register with a factory that has not yet been full configured
// (e.g., it requires parsing command line flags) as long as it will be configured
// before the first request.
//
// REQUIRES: This function has not been called with the same schema before.
func RegisterImplementation(scheme string, implFactory func() Implementation) {
	if implFactory == nil {
		panic("empty impl")
	}
	mu.Lock()
	defer mu.Unlock()
	if scheme == "" {
		panic("empty scheme")
	}
	if _, ok := implFactories[scheme]; ok {
		panic(fmt.Sprintf("register %s: file scheme already registered", scheme))
	}
	implFactories[scheme] = implFactory
}

// FindImplementation returns an Implementation object registered for the given
// scheme.  It returns nil if the scheme is not registered.
func FindImplementation(scheme string) Implementation {
	if scheme == "" {
		return localImplInstance
	}
	mu.RLock()
	if impl, ok := impls[scheme]; ok {
		mu.RUnlock()
		return impl
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	implFactory, ok := implFactories[scheme]
	if !ok {
		return nil
	}
	// Someone else may have created the implementation while we upgraded
	// to the write lock.
	impl, ok := impls[scheme]
	if !ok {
		impl = implFactory()
		impls[scheme] = impl
	}
	return impl
}

func findImpl(path string) (Implementation, error) {
	scheme, _, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	impl := FindImplementation(scheme)
	if impl == nil {
		return nil, errors.E(errors.NotSupported, fmt.Sprintf("parsepath %s: no implementation registered for scheme %s", path, scheme))
	}
	return impl, nil
}

// Open opens the given file readonly.  It is a shortcut for calling
// ParsePath(), then FindImplementation, then Implementation.Open.
//
// Open returns an error of kind errors.NotExist if the file at the
// provided path does not exist.
func Open(ctx context.Context, path string) (Reader, error) {
	impl, err := findImpl(path)
	if err != nil {
		return nil, err
	}
	return impl.Open(ctx, path)
}

// Stat returns the given file's metadata. Is a shortcut for calling ParsePath(),
// then FindImplementation, then Implementation.Stat.
//
// Stat returns an error of kind errors.NotExist if the file at the
// provided path does not exist.
func Stat(ctx context.Context, path string) (Info, error) {
	impl, err := findImpl(path)
	if err != nil {
		return nil, err
	}
	return impl.Stat(ctx, path)
}

type errorLister struct{ err error }

// Scan implements Lister.Scan.
func (e *errorLister) Scan() bool { return false }

// Path implements Lister.Path.
func (e *errorLister) Path() string { panic("errorLister.Path: " + e.err.Error()) }

// Info implements Lister.Info.
func (e *errorLister) Info() Info { panic("errorLister.Info: " + e.err.Error()) }

// Err returns the Lister.Err.
func (e *errorLister) Err() error { return e.err }

// List finds all files whose pathnames under "dir" or its subdirectories.  All
// the files returned by the lister will have pathnames of form dir/something.
// For example List(ctx, "foo") will yield "foo/bar.txt", but not "foo.txt".
//
// Example: file.List(ctx, "s3://grail-books/moby-dick")
func List(ctx context.Context, dir string) Lister {
	impl, err := findImpl(dir)
	if err != nil {
		return &errorLister{err: err}
	}
	return impl.List(ctx, dir)
}

// ReadFile reads the given file and returns the contents.
func ReadFile(ctx context.Context, path string) (_ []byte, err error) {
	r, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer errors.CleanUpCtx(ctx, r.Close, &err)
	size, err := r.Size(ctx)
	if err != nil {
		return nil, err
	}
	b := make([]byte, size)
	n, err := ioctx.ReadFullAt(ctx, r, b, 0)
	if err != nil {
		return nil, errors.E(err, "readfile", path)
	}
	return b[:n], nil
}

// ioctx adds context.Context to io APIs. Fetcher backends and
// sniffing sources read through these interfaces so that a host can
// abandon a slow read (a remote object, a large archive) by canceling
// its context.
package ioctx

import "context"

// Reader is io.Reader with context added.
type Reader interface {
	Read(context.Context, []byte) (n int, err error)
}

// Closer is io.Closer with context added.
type Closer interface {
	Close(context.Context) error
}

// ReadCloser is io.ReadCloser with context added.
type ReadCloser interface {
	Reader
	Closer
}

// ReaderAt is io.ReaderAt with context added.
type ReaderAt interface {
	ReadAt(_ context.Context, dst []byte, off int64) (n int, err error)
}

// ReaderAtCloser is a ReaderAt that holds a handle which must be released.
type ReaderAtCloser interface {
	ReaderAt
	Closer
}

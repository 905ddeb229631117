package ioctx

import (
	"context"
	"io"
)

type (
	stdReader   struct{ io.Reader }
	stdCloser   struct{ io.Closer }
	stdReaderAt struct{ io.ReaderAt }
)

// FromStdReader wraps io.Reader as Reader.
func FromStdReader(r io.Reader) Reader { return stdReader{r} }

func (r stdReader) Read(_ context.Context, dst []byte) (n int, err error) {
	return r.Reader.Read(dst)
}

// FromStdCloser wraps io.Closer as Closer.
func FromStdCloser(c io.Closer) Closer { return stdCloser{c} }

func (c stdCloser) Close(context.Context) error { return c.Closer.Close() }

// FromStdReadCloser wraps io.ReadCloser as ReadCloser.
func FromStdReadCloser(rc io.ReadCloser) ReadCloser {
	return struct {
		Reader
		Closer
	}{FromStdReader(rc), FromStdCloser(rc)}
}

// FromStdReaderAt wraps io.ReaderAt as ReaderAt.
func FromStdReaderAt(r io.ReaderAt) ReaderAt { return stdReaderAt{r} }

func (r stdReaderAt) ReadAt(_ context.Context, dst []byte, off int64) (n int, err error) {
	return r.ReaderAt.ReadAt(dst, off)
}

// StdReaderAt adapts ReaderAt to io.ReaderAt for APIs, like zip.NewReader,
// that take no context. Ctx is used for every call; callers that must
// serialize reads under different contexts may set it between calls.
type StdReaderAt struct {
	Ctx context.Context
	ReaderAt
}

// ToStdReaderAt binds ctx to r for use as an io.ReaderAt.
func ToStdReaderAt(ctx context.Context, r ReaderAt) io.ReaderAt {
	return StdReaderAt{ctx, r}
}

func (r StdReaderAt) ReadAt(dst []byte, off int64) (n int, err error) {
	return r.ReaderAt.ReadAt(r.Ctx, dst, off)
}

// ReadFullAt reads len(dst) bytes at off, or fewer at the end of the
// data. Unlike io.ReaderAt, a short read at EOF returns a nil error and
// the number of bytes read.
func ReadFullAt(ctx context.Context, r ReaderAt, dst []byte, off int64) (int, error) {
	var n int
	for n < len(dst) {
		m, err := r.ReadAt(ctx, dst[n:], off+int64(n))
		n += m
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, io.ErrNoProgress
		}
	}
	return n, nil
}

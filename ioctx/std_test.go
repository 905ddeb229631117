package ioctx_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/grailbio/pubfetch/ioctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oneByteReaderAt returns at most one byte per call.
type oneByteReaderAt struct{ data []byte }

func (r oneByteReaderAt) ReadAt(_ context.Context, dst []byte, off int64) (int, error) {
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	if len(dst) == 0 {
		return 0, nil
	}
	dst[0] = r.data[off]
	return 1, nil
}

func TestReadFullAt(t *testing.T) {
	ctx := context.Background()
	r := oneByteReaderAt{[]byte("mimetypeapplication/epub+zip")}

	dst := make([]byte, 8)
	n, err := ioctx.ReadFullAt(ctx, r, dst, 0)
	require.NoError(t, err)
	assert.Equal(t, "mimetype", string(dst[:n]))

	dst = make([]byte, 100)
	n, err = ioctx.ReadFullAt(ctx, r, dst, 8)
	require.NoError(t, err)
	assert.Equal(t, "application/epub+zip", string(dst[:n]))
}

func TestStdRoundTrip(t *testing.T) {
	ctx := context.Background()
	content := []byte("%PDF-1.7")
	std := ioctx.ToStdReaderAt(ctx, ioctx.FromStdReaderAt(bytes.NewReader(content)))
	got, err := io.ReadAll(io.NewSectionReader(std, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, "PDF", string(got))
}

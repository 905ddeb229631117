// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package testutil holds conformance tests for file.Implementations.
package testutil

import (
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/testutil/assert"
)

// WriteFunc creates a file with the given contents in the storage
// backing an Implementation under test. Implementations are read-only,
// so each backend's test supplies its own.
type WriteFunc func(t *testing.T, path, data string)

func doReadAt(ctx context.Context, t *testing.T, r file.Reader, off int64, n int) string {
	data := make([]byte, n)
	m, err := r.ReadAt(ctx, data, off)
	if err != io.EOF {
		assert.NoError(t, err)
	}
	return string(data[:m])
}

func doReadFile(ctx context.Context, t *testing.T, impl file.Implementation, path string) string {
	r, err := impl.Open(ctx, path)
	assert.NoError(t, err, "open: %v", path)
	size, err := r.Size(ctx)
	assert.NoError(t, err)
	data := doReadAt(ctx, t, r, 0, int(size))
	assert.NoError(t, r.Close(ctx))
	return data
}

// TestEmpty tests an empty file.
func TestEmpty(ctx context.Context, t *testing.T, impl file.Implementation, write WriteFunc, path string) {
	write(t, path, "")
	r, err := impl.Open(ctx, path)
	assert.NoError(t, err)
	size, err := r.Size(ctx)
	assert.NoError(t, err)
	assert.EQ(t, int64(0), size)
	n, err := r.ReadAt(ctx, make([]byte, 10), 0)
	assert.EQ(t, 0, n)
	assert.EQ(t, io.EOF, err)
	assert.NoError(t, r.Close(ctx))
}

// TestNotExist tests that the implementation behaves correctly
// for paths that do not exist.
func TestNotExist(ctx context.Context, t *testing.T, impl file.Implementation, path string) {
	_, err := impl.Open(ctx, path)
	assert.True(t, errors.Is(errors.NotExist, err), "open %s: %v", path, err)
	_, err = impl.Stat(ctx, path)
	assert.True(t, errors.Is(errors.NotExist, err), "stat %s: %v", path, err)
}

// TestReads tests reads at various offsets.
func TestReads(ctx context.Context, t *testing.T, impl file.Implementation, write WriteFunc, path string) {
	expected := "A purple fox jumped over a blue cat"
	write(t, path, expected)

	r, err := impl.Open(ctx, path)
	assert.NoError(t, err)
	assert.EQ(t, path, r.Name())
	size, err := r.Size(ctx)
	assert.NoError(t, err)
	assert.EQ(t, int64(len(expected)), size)

	// Read everything.
	assert.EQ(t, expected, doReadAt(ctx, t, r, 0, len(expected)))
	// Read bytes 2-8.
	assert.EQ(t, "purple", doReadAt(ctx, t, r, 2, 6))
	// Short read at the end of the file.
	assert.EQ(t, "cat", doReadAt(ctx, t, r, int64(len(expected)-3), 10))
	// Read beyond the end of the file.
	assert.EQ(t, "", doReadAt(ctx, t, r, int64(len(expected)+1), 10))
	assert.NoError(t, r.Close(ctx))

	assert.EQ(t, expected, doReadFile(ctx, t, impl, path))
}

// TestStat tests Stat method implementations.
func TestStat(ctx context.Context, t *testing.T, impl file.Implementation, write WriteFunc, path string) {
	// {min,max}ModTime define the range of reasonable modtime for the test file.
	// We allow for 1 minute slack to account for clock skew on the file server.
	minModTime := time.Now().Add(-60 * time.Second)
	write(t, path, "stattest0")
	dir := path + "dir"
	write(t, dir+"/file", "stattest1")
	maxModTime := time.Now().Add(60 * time.Second)

	info, err := impl.Stat(ctx, path)
	assert.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.EQ(t, int64(9), info.Size())
	assert.True(t, info.ModTime().After(minModTime) && info.ModTime().Before(maxModTime),
		"Info: %+v, min %+v, max %+v", info.ModTime(), minModTime, maxModTime)

	info, err = impl.Stat(ctx, dir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
	info, err = impl.Stat(ctx, dir+"/")
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
}

type dirEntry struct {
	path string
	size int64
}

// TestList tests List implementations.
func TestList(ctx context.Context, t *testing.T, impl file.Implementation, write WriteFunc, dir string) {
	doList := func(prefix string) (ents []dirEntry) {
		lister := impl.List(ctx, prefix)
		for lister.Scan() {
			ents = append(ents, dirEntry{lister.Path(), lister.Info().Size()})
		}
		assert.NoError(t, lister.Err())
		sort.Slice(ents, func(i, j int) bool { return ents[i].path < ents[j].path })
		return
	}
	write(t, dir+"/f0.txt", "f0")
	write(t, dir+"/g0.txt", "g12")
	write(t, dir+"/d0.txt", "d0e1")
	write(t, dir+"/d0/f2.txt", "d0/f23")
	write(t, dir+"/d0/d1/f3.txt", "d0/f345")

	assert.EQ(t, []dirEntry{
		{dir + "/d0.txt", 4},
		{dir + "/d0/d1/f3.txt", 7},
		{dir + "/d0/f2.txt", 6},
		{dir + "/f0.txt", 2},
		{dir + "/g0.txt", 3},
	}, doList(dir))

	// List only lists files under the given directory.
	// So listing "d0" should exclude d0.txt.
	assert.EQ(t, []dirEntry{
		{dir + "/d0/d1/f3.txt", 7},
		{dir + "/d0/f2.txt", 6},
	}, doList(dir+"/d0"))
	assert.EQ(t, []dirEntry{
		{dir + "/d0/d1/f3.txt", 7},
		{dir + "/d0/f2.txt", 6},
	}, doList(dir+"/d0/"))
	assert.EQ(t, 0, len(doList(dir+"/nothing")))
}

// TestAll runs all the tests in this package.
func TestAll(ctx context.Context, t *testing.T, impl file.Implementation, write WriteFunc, dir string) {
	iName := impl.String()

	t.Run(iName+"_Empty", func(t *testing.T) { TestEmpty(ctx, t, impl, write, dir+"/empty.txt") })
	t.Run(iName+"_NotExist", func(t *testing.T) { TestNotExist(ctx, t, impl, dir+"/notexist.txt") })
	t.Run(iName+"_Reads", func(t *testing.T) { TestReads(ctx, t, impl, write, dir+"/reads.txt") })
	t.Run(iName+"_Stat", func(t *testing.T) { TestStat(ctx, t, impl, write, dir+"/stat.txt") })
	t.Run(iName+"_List", func(t *testing.T) { TestList(ctx, t, impl, write, dir+"/match") })
}

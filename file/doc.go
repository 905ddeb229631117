// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package file gives uniform read access to publication files across
// storage types, such as the local file system and S3, and caches what
// is learned about each file.
//
// # Overview
//
// This package defines two key types, Implementation and File.
//
// - Implementation provides read operations for a storage type: Open,
// Stat and List (directory walking). Implementations are registered by
// URL scheme; paths without a scheme are local.
//
// - File wraps one path together with optional hints (a declared media
// type, a known format). It answers whether the path is a directory and
// what format its content has, computing each at most once.
//
// # Reading files
//
// The following snippet registers an S3 implementation, then sniffs the
// format of an S3 object.
//
//	import (
//	 "context"
//
//	 "github.com/grailbio/pubfetch/file"
//	 "github.com/grailbio/pubfetch/file/s3file"
//	)
//
//	func init() {
//	  file.RegisterImplementation("s3", func() file.Implementation {
//	    return s3file.NewImplementation(s3file.NewDefaultProvider(), s3file.Options{})
//	  })
//	}
//
//	func Sniff(ctx context.Context) {
//	  f := file.New("s3://grail-books/moby-dick", file.Opts{MediaType: "application/octet-stream"})
//	  format, ok, err := f.Format(ctx)
//	  ...
//	}
//
// # Blocking
//
// File.IsDir and File.Format may block on I/O the first time they are
// called. Hosts should call them off latency-sensitive goroutines, or
// use Warm to compute them for many files in the background.
package file

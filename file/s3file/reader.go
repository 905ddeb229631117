// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3file

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/pubfetch/log"
)

// s3Reader reads an object with ranged GetObject calls. The object's size
// and ETag are fixed at Open; reads of an object that was replaced since
// fail with errors.Precondition.
type s3Reader struct {
	client      s3iface.S3API
	path        string
	bucket, key string
	size        int64
	etag        string
}

// Open implements file.Implementation. The provided path should be of form
// "s3://bucket/key".
func (impl *s3Impl) Open(ctx context.Context, path string) (file.Reader, error) {
	client, bucket, key, err := impl.client(ctx, "GetObject", path)
	if err != nil {
		return nil, err
	}
	if key == "" || strings.HasSuffix(key, pathSeparator) {
		return nil, errors.E(errors.NotSupported, "s3file.open", path, "is a directory")
	}
	var ids s3RequestIDs
	output, err := client.HeadObjectWithContext(ctx,
		&s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		},
		ids.captureOption(),
	)
	if err != nil {
		return nil, annotate(err, ids, "s3file.open", path)
	}
	if output.ContentLength == nil {
		return nil, errors.E(errors.Integrity, "s3file.open: nil ContentLength", path)
	}
	log.Debug.Printf("s3file: opened %s (%d bytes)", path, *output.ContentLength)
	return &s3Reader{
		client: client,
		path:   path,
		bucket: bucket,
		key:    key,
		size:   *output.ContentLength,
		etag:   aws.StringValue(output.ETag),
	}, nil
}

// Name implements file.Reader.
func (r *s3Reader) Name() string { return r.path }

// Size implements file.Reader.
func (r *s3Reader) Size(context.Context) (int64, error) { return r.size, nil }

// Close implements file.Reader. Each read owns its response body, so there
// is nothing to release.
func (r *s3Reader) Close(context.Context) error { return nil }

// ReadAt implements file.Reader.
func (r *s3Reader) ReadAt(ctx context.Context, dst []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, errors.E(errors.Invalid, "s3file.read", r.path, fmt.Sprintf("negative offset %d", off))
	}
	if off >= r.size {
		return 0, io.EOF
	}
	if len(dst) == 0 {
		return 0, nil
	}
	end := off + int64(len(dst))
	if end > r.size {
		end = r.size
	}
	input := &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end-1)),
	}
	if r.etag != "" {
		input.IfMatch = aws.String(r.etag)
	}
	var ids s3RequestIDs
	output, err := r.client.GetObjectWithContext(ctx, input, ids.captureOption())
	if err != nil {
		return 0, annotate(err, ids, "s3file.read", r.path)
	}
	defer errors.CleanUp(output.Body.Close, &err)
	n, err = io.ReadFull(output.Body, dst[:end-off])
	if err != nil {
		return n, errors.E(err, "s3file.read", r.path)
	}
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

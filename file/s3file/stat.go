// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3file

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/file"
)

// Stat implements file.Implementation. A path that names no object is a
// directory if some key starts with path + "/".
func (impl *s3Impl) Stat(ctx context.Context, path string) (file.Info, error) {
	client, bucket, key, err := impl.client(ctx, "GetObject", path)
	if err != nil {
		return nil, err
	}
	if key != "" && !strings.HasSuffix(key, pathSeparator) {
		size, modTime, err := head(ctx, client, bucket, key, path)
		if err == nil {
			return file.NewInfo(size, modTime, false), nil
		}
		if !errors.Is(errors.NotExist, err) {
			return nil, err
		}
	}
	isDir, err := hasPrefix(ctx, client, bucket, key, path)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, errors.E(errors.NotExist, "s3file.stat", path)
	}
	return file.NewInfo(0, time.Time{}, true), nil
}

// head returns the size and modification time of the object.
func head(ctx context.Context, client s3iface.S3API, bucket, key, path string) (int64, time.Time, error) {
	var ids s3RequestIDs
	output, err := client.HeadObjectWithContext(ctx,
		&s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		},
		ids.captureOption(),
	)
	if err != nil {
		return 0, time.Time{}, annotate(err, ids, "s3file.stat", path)
	}
	if output.ContentLength == nil {
		return 0, time.Time{}, errors.E(errors.Integrity, "s3file.stat: nil ContentLength", path)
	}
	return *output.ContentLength, aws.TimeValue(output.LastModified), nil
}

// hasPrefix tells whether some key starts with the directory prefix
// key + "/".
func hasPrefix(ctx context.Context, client s3iface.S3API, bucket, key, path string) (bool, error) {
	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, pathSeparator) {
		prefix += pathSeparator
	}
	var ids s3RequestIDs
	output, err := client.ListObjectsV2WithContext(ctx,
		&s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			Prefix:  aws.String(prefix),
			MaxKeys: aws.Int64(1),
		},
		ids.captureOption(),
	)
	if err != nil {
		return false, annotate(err, ids, "s3file.stat", path)
	}
	return len(output.Contents) > 0 || len(output.CommonPrefixes) > 0, nil
}

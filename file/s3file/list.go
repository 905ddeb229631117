// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3file

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/pubfetch/log"
)

// List implements file.Implementation. Keys ending in "/" are directory
// markers and are not listed.
func (impl *s3Impl) List(ctx context.Context, dir string) file.Lister {
	client, bucket, key, err := impl.client(ctx, "ListBucket", dir)
	if err != nil {
		return &s3Lister{err: err}
	}
	scheme, _, _, _ := ParseURL(dir)
	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, pathSeparator) {
		prefix += pathSeparator
	}
	return &s3Lister{
		ctx:      ctx,
		client:   client,
		dir:      dir,
		scheme:   scheme,
		bucket:   bucket,
		prefix:   prefix,
		pageSize: impl.opts.ListPageSize,
		more:     true,
	}
}

type s3Lister struct {
	ctx                         context.Context
	client                      s3iface.S3API
	dir, scheme, bucket, prefix string
	pageSize                    int64

	objects []*s3.Object
	token   *string
	more    bool
	err     error

	path string
	info file.Info

	// consecutiveEmptyResponses counts how many times S3 returned no
	// objects in a row. Many empty responses make Scan appear to hang, so
	// we log a warning.
	consecutiveEmptyResponses int
}

// Scan implements file.Lister.
func (l *s3Lister) Scan() bool {
	for {
		if l.err != nil {
			return false
		}
		if len(l.objects) > 0 {
			obj := l.objects[0]
			l.objects = l.objects[1:]
			key := aws.StringValue(obj.Key)
			if strings.HasSuffix(key, pathSeparator) {
				continue
			}
			l.path = fmt.Sprintf("%s://%s/%s", l.scheme, l.bucket, key)
			l.info = file.NewInfo(aws.Int64Value(obj.Size), aws.TimeValue(obj.LastModified), false)
			return true
		}
		if !l.more {
			return false
		}
		l.fetch()
	}
}

func (l *s3Lister) fetch() {
	input := &s3.ListObjectsV2Input{
		Bucket:            aws.String(l.bucket),
		ContinuationToken: l.token,
		Prefix:            aws.String(l.prefix),
	}
	if l.pageSize > 0 {
		input.MaxKeys = aws.Int64(l.pageSize)
	}
	var ids s3RequestIDs
	res, err := l.client.ListObjectsV2WithContext(l.ctx, input, ids.captureOption())
	if err != nil {
		l.err = annotate(err, ids, "s3file.list", l.dir)
		return
	}
	l.objects = res.Contents
	l.token = res.NextContinuationToken
	l.more = aws.BoolValue(res.IsTruncated) && l.token != nil
	if len(res.Contents) > 0 {
		l.consecutiveEmptyResponses = 0
	} else if l.more {
		l.consecutiveEmptyResponses++
		if n := l.consecutiveEmptyResponses; n > 7 && n&(n-1) == 0 {
			log.Printf("s3file.list: warning: S3 returned empty response %d consecutive times", n)
		}
	}
}

// Err implements file.Lister.
func (l *s3Lister) Err() error { return l.err }

// Path implements file.Lister.
func (l *s3Lister) Path() string { return l.path }

// Info implements file.Lister.
func (l *s3Lister) Info() file.Info { return l.info }

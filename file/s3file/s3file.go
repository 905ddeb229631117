// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package s3file implements the read-only file.Implementation for S3.
// Publications stored as objects (s3://bucket/books/moby.epub) or exploded
// under a key prefix (s3://bucket/books/moby/) are served through it.
//
// To use it, register the implementation at process startup:
//
//	file.RegisterImplementation("s3", func() file.Implementation {
//		return s3file.NewImplementation(s3file.NewDefaultProvider(), s3file.Options{})
//	})
package s3file

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/pubfetch/log"
)

// Path separator used by s3file.
const pathSeparator = "/"

const defaultRegion = "us-west-2"

// Options defines options that can be given when creating an s3Impl.
type Options struct {
	// ListPageSize bounds the number of keys requested per
	// ListObjectsV2 call. Zero uses the S3 default (1000).
	ListPageSize int64
}

// ClientProvider is responsible for creating an S3 client object. Get is
// called whenever s3file needs to access a path. The provider should cache
// and reuse the client objects. The implementation must be thread safe.
type ClientProvider interface {
	// Get returns an S3 client that can be used to perform "op" on "path".
	// "op" is an S3 IAM action name, without the "s3:" prefix, for example
	// "GetObject" or "ListBucket". Path is a full URL of form
	// "s3://bucket/key".
	Get(ctx context.Context, op, path string) (s3iface.S3API, error)
}

type defaultProvider struct {
	configs []*aws.Config

	once   sync.Once
	client s3iface.S3API
	err    error
}

// NewDefaultProvider returns a ClientProvider that creates one client from
// a shared-config session on first use. The region defaults to us-west-2
// unless one of configs names another.
func NewDefaultProvider(configs ...*aws.Config) ClientProvider {
	return &defaultProvider{configs: configs}
}

func (p *defaultProvider) Get(ctx context.Context, op, path string) (s3iface.S3API, error) {
	p.once.Do(func() {
		config := aws.NewConfig().WithRegion(defaultRegion)
		config.MergeIn(p.configs...)
		sess, err := session.NewSessionWithOptions(session.Options{
			Config:            *config,
			SharedConfigState: session.SharedConfigEnable,
		})
		if err != nil {
			p.err = errors.E(errors.Unavailable, "s3file: create session", err)
			return
		}
		p.client = s3.New(sess)
		log.Debug.Printf("s3file: created client for region %s", aws.StringValue(sess.Config.Region))
	})
	return p.client, p.err
}

type constProvider struct{ client s3iface.S3API }

// NewClientProvider returns a ClientProvider that always returns the given
// client.
func NewClientProvider(client s3iface.S3API) ClientProvider {
	return constProvider{client}
}

func (p constProvider) Get(context.Context, string, string) (s3iface.S3API, error) {
	return p.client, nil
}

type s3Impl struct {
	provider ClientProvider
	opts     Options
}

// NewImplementation creates a new file.Implementation for S3. The provider is
// called to create s3 client objects.
func NewImplementation(provider ClientProvider, opts Options) file.Implementation {
	return &s3Impl{provider, opts}
}

// String implements a human-readable description.
func (impl *s3Impl) String() string { return "s3" }

// client parses path and returns the client to perform op on it.
func (impl *s3Impl) client(ctx context.Context, op, path string) (client s3iface.S3API, bucket, key string, err error) {
	_, bucket, key, err = ParseURL(path)
	if err != nil {
		return
	}
	if bucket == "" {
		err = errors.E(errors.Invalid, "s3file: no bucket in", path)
		return
	}
	client, err = impl.provider.Get(ctx, op, path)
	return
}

// ParseURL parses a path of form "s3://grail-bucket/dir/file" and returns
// ("s3", "grail-bucket", "dir/file", nil).
func ParseURL(url string) (scheme, bucket, key string, err error) {
	var suffix string
	scheme, suffix, err = file.ParsePath(url)
	if err != nil {
		return "", "", "", err
	}
	parts := strings.SplitN(suffix, pathSeparator, 2)
	if len(parts) == 1 {
		return scheme, parts[0], "", nil
	}
	return scheme, parts[0], parts[1], nil
}

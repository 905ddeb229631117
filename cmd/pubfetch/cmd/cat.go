// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"io"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/fetcher"
)

func Cat(ctx context.Context, out io.Writer, args []string) (err error) {
	if len(args) < 2 {
		return errors.E(errors.Invalid, "cat: want a publication and hrefs")
	}
	pub, err := openPublication(ctx, args[0])
	if err != nil {
		return errors.E(err, "cat", args[0])
	}
	defer errors.CleanUpCtx(ctx, pub.Close, &err)
	for _, href := range args[1:] {
		if err := cat(ctx, out, pub, href); err != nil {
			return errors.E(err, "cat", href)
		}
	}
	return nil
}

func cat(ctx context.Context, out io.Writer, pub fetcher.Fetcher, href string) (err error) {
	r := pub.Resolve(fetcher.Link{Href: href}, fetcher.Parameters{})
	defer errors.CleanUpCtx(ctx, r.Close, &err)
	b, err := r.Read(ctx, nil)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/gobwas/glob"
	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/fetcher"
)

func Ls(ctx context.Context, out io.Writer, args []string) (err error) {
	var (
		flags          flag.FlagSet
		longOutputFlag = flags.Bool("l", false, "Print the length of each resource")
		matchFlag      = flags.String("match", "", "Only list hrefs matching this glob")
	)
	if err = flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.E(errors.Invalid, "ls: want one publication, got", fmt.Sprint(flags.Args()))
	}
	var match glob.Glob
	if *matchFlag != "" {
		if match, err = glob.Compile(*matchFlag, '/'); err != nil {
			return errors.E(errors.Invalid, "ls: bad pattern", *matchFlag, err)
		}
	}
	path := flags.Arg(0)
	pub, err := openPublication(ctx, path)
	if err != nil {
		return errors.E(err, "ls", path)
	}
	defer errors.CleanUpCtx(ctx, pub.Close, &err)
	links, err := pub.Links(ctx)
	if err != nil {
		return errors.E(err, "ls", path)
	}
	for _, link := range links {
		if match != nil && !match.Match(link.Href) {
			continue
		}
		typ := link.Type
		if typ == "" {
			typ = "-"
		}
		if !*longOutputFlag {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", link.Href, typ)
			continue
		}
		n, err := length(ctx, pub, link)
		if err != nil {
			return errors.E(err, "ls", path)
		}
		_, _ = fmt.Fprintf(out, "%s\t%d\t%s\n", link.Href, n, typ)
	}
	return nil
}

func length(ctx context.Context, pub fetcher.Fetcher, link fetcher.Link) (_ int64, err error) {
	r := pub.Resolve(link, fetcher.Parameters{})
	defer errors.CleanUpCtx(ctx, r.Close, &err)
	return r.Length(ctx)
}

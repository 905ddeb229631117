// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/fetcher"
	"github.com/grailbio/pubfetch/fetcher/archive"
	"github.com/grailbio/pubfetch/fetcher/filefetcher"
	"github.com/grailbio/pubfetch/file"
)

var commands = []struct {
	name     string
	callback func(ctx context.Context, out io.Writer, args []string) error
	help     string
}{
	{"sniff", Sniff, `Sniff prints the format of each file: its path, format name and media type,
or "-" if the format is unknown. Directories are printed with a trailing "/".`},
	{"ls", Ls, `Ls lists the resources of a publication, a zip package or a directory, with
their media types. It supports globs defined in https://github.com/gobwas/glob.`},
	{"cat", Cat, `Cat prints resources of a publication, given by href, to the stdout.`},
}

// PrintHelp prints the subcommands to the stderr.
func PrintHelp() {
	fmt.Fprintln(os.Stderr, "Subcommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "%s: %s\n", c.name, c.help)
	}
}

// Run runs the subcommand named by args[0], writing its output to out.
func Run(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 {
		PrintHelp()
		return errors.E(errors.Invalid, "no subcommand given")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.callback(ctx, out, args[1:])
		}
	}
	PrintHelp()
	return errors.E(errors.Invalid, "unknown command", args[0])
}

// parallelism bounds the files sniffed concurrently.
const parallelism = 32

// openPublication returns a fetcher over the publication at path: a
// directory is served as is, anything else is opened as a zip package.
func openPublication(ctx context.Context, path string) (fetcher.Fetcher, error) {
	isDir, err := file.New(path).IsDir(ctx)
	if err != nil {
		return nil, err
	}
	if isDir {
		return filefetcher.NewSingle("", path), nil
	}
	a, err := archive.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return a, nil
}

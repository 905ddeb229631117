// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/grailbio/pubfetch/errors"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/pubfetch/format"
)

func Sniff(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags         flag.FlagSet
		mediaTypeFlag = flags.String("type", "", "Declared media type of the files")
		tableFlag     = flags.String("table", "", "YAML file of format rows consulted after the built-in ones")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	engine, err := loadEngine(ctx, *tableFlag)
	if err != nil {
		return err
	}
	files := make([]*file.File, flags.NArg())
	for i, path := range flags.Args() {
		files[i] = file.New(path, file.Opts{MediaType: *mediaTypeFlag, Engine: engine})
	}
	if err := file.Warm(ctx, parallelism, files...); err != nil {
		return errors.E(err, "sniff")
	}
	// The results are cached by Warm.
	for _, f := range files {
		isDir, err := f.IsDir(ctx)
		if err != nil {
			return err
		}
		ft, ok, err := f.Format(ctx)
		if err != nil {
			return err
		}
		path := f.Path()
		if isDir {
			path += "/"
		}
		if !ok {
			_, _ = fmt.Fprintf(out, "%s\t-\n", path)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", path, ft.Name, ft.MediaType)
	}
	return nil
}

// loadEngine returns the default engine, extended with the rows of the
// YAML table at path if path is not empty.
func loadEngine(ctx context.Context, path string) (*format.Engine, error) {
	if path == "" {
		return format.Default(), nil
	}
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.E(err, "sniff: read table", path)
	}
	rows, err := format.LoadTable(bytes.NewReader(data))
	if err != nil {
		return nil, errors.E(err, "sniff: load table", path)
	}
	reg, err := format.NewRegistry(append(format.DefaultTable(), rows...)...)
	if err != nil {
		return nil, errors.E(err, "sniff: load table", path)
	}
	return format.New(reg, format.DefaultSniffers()...), nil
}

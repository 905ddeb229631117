// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command pubfetch inspects publications on local disk or in S3: it
// sniffs file formats, lists the resources of a zip package or an
// exploded directory, and prints resources.
//
//	pubfetch [-log=debug] sniff [-type=media/type] [-table=rows.yaml] path...
//	pubfetch ls [-l] [-match=glob] publication
//	pubfetch cat publication href...
package main

import (
	"context"
	"flag"
	"os"

	"github.com/grailbio/pubfetch/cmd/pubfetch/cmd"
	"github.com/grailbio/pubfetch/file"
	"github.com/grailbio/pubfetch/file/s3file"
	"github.com/grailbio/pubfetch/log"
)

func main() {
	log.AddFlags()
	flag.Usage = cmd.PrintHelp
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(), s3file.Options{})
	})
	if err := cmd.Run(context.Background(), os.Stdout, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

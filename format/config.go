// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package format

import (
	"fmt"
	"io"

	"github.com/grailbio/pubfetch/errors"
	"gopkg.in/yaml.v3"
)

// yamlRow is the YAML representation of a Row:
//
//   - name: Comic Book Archive (RAR)
//     mediaType: application/vnd.comicbook-rar
//     extension: cbr
//     mediaTypes: [application/x-cbr]
//     extensions: []
//     noExtensionMatch: false
type yamlRow struct {
	Name             string   `yaml:"name"`
	MediaType        string   `yaml:"mediaType"`
	Extension        string   `yaml:"extension"`
	MediaTypes       []string `yaml:"mediaTypes"`
	Extensions       []string `yaml:"extensions"`
	NoExtensionMatch bool     `yaml:"noExtensionMatch"`
}

// LoadTable reads registry rows from a YAML list, for use with
// NewRegistry or Registry.Register. Unknown fields, rows without a
// name or without a valid media type are rejected with an error of
// kind errors.Invalid.
func LoadTable(r io.Reader) ([]Row, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var yrows []yamlRow
	if err := dec.Decode(&yrows); err != nil && err != io.EOF {
		return nil, errors.E(errors.Invalid, "format table", err)
	}
	rows := make([]Row, 0, len(yrows))
	for i, y := range yrows {
		if y.Name == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("format table: row %d: missing name", i))
		}
		if _, ok := parseMediaType(y.MediaType); !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("format table: row %d (%s): bad media type %q", i, y.Name, y.MediaType))
		}
		rows = append(rows, Row{
			Format: Format{
				Name:          y.Name,
				MediaType:     y.MediaType,
				FileExtension: normalizeExtension(y.Extension),
			},
			MediaTypes:       y.MediaTypes,
			Extensions:       y.Extensions,
			NoExtensionMatch: y.NoExtensionMatch,
		})
	}
	return rows, nil
}

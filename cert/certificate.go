// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package cert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/biocycling/efbcheck/efb"
)

// Certificate is the parsed form of one EfB certificate: its source document
// and the certified sites it lists. It doubles as the JSON seed file format.
type Certificate struct {
	Source string               `json:"source"`
	Sites  []*efb.CertifiedSite `json:"sites"`
}

// ReadFile loads a certificate from disk. JSON files are read as the seed
// format; HTML files go through the extraction pipeline.
func ReadFile(path string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading certificate file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		c := &Certificate{}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("unmarshaling %s: %w", path, err)
		}

		if c.Source == "" {
			c.Source = filepath.Base(path)
		}

		return c, nil
	case ".html", ".htm":
		text, err := ExtractText(strings.NewReader(string(data)))
		if err != nil {
			return nil, err
		}

		sites, err := ParseCertificate(text)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}

		return &Certificate{
			Source: filepath.Base(path),
			Sites:  sites,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported certificate format: %s", filepath.Ext(path))
	}
}

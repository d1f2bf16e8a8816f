// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rasky/toml"
)

// Customization is the optional TOML overlay applied after the server
// files are in place:
//
//	icon-url = "https://example.com/icon.png"
//
//	[properties]
//	motd = "Welcome to ${SERVER_NAME}"
//	max-players = "32"
//
// Values may reference environment variables with ${NAME}, they are
// expanded before the file is parsed.
type Customization struct {
	// IconURL is downloaded to server-icon.png when set.
	IconURL string `toml:"icon-url"`

	// Properties override or extend server.properties keys.
	Properties map[string]string `toml:"properties"`
}

// LoadCustomization reads and parses the customization file at path.
func LoadCustomization(path string) (*Customization, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open customization file: %w", err)
	}
	defer f.Close()
	return ReadCustomization(f)
}

// ReadCustomization parses a customization document from r.
func ReadCustomization(r io.Reader) (*Customization, error) {
	expanded, err := expandEnvVars(r, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("read customization: %w", err)
	}

	var c Customization
	if _, err := toml.DecodeReader(expanded, &c); err != nil {
		return nil, fmt.Errorf("parse customization: %w", err)
	}
	if c.IconURL != "" {
		if err := validateHTTPURL(c.IconURL); err != nil {
			return nil, fmt.Errorf("customization icon-url: %w", err)
		}
	}
	return &c, nil
}

// expandEnvVars substitutes ${NAME} references in the document before it
// reaches the TOML parser.
func expandEnvVars(r io.Reader, mapper func(string) string) (io.Reader, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return strings.NewReader(os.Expand(buf.String(), mapper)), nil
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
)

// defaultVersionSiteURL is the public site listing vanilla server
// downloads per game version.
const defaultVersionSiteURL = "https://mcversions.net"

// serverJarPattern matches the Mojang distribution URL of a vanilla
// server.jar as linked on the version download pages.
var serverJarPattern = regexp.MustCompile(`https://piston-data\.mojang\.com/v1/objects/[0-9a-f]+/server\.jar`)

// MojangClient resolves the download URL of vanilla server distributions
// by scraping the public version listing site.
type MojangClient struct {
	// HTTP performs the outbound requests, required.
	HTTP *HTTPClient

	// BaseURL overrides the version listing site. Empty selects the
	// public site.
	BaseURL string
}

// ServerJarURL returns the Mojang download URL of the server.jar for the
// given game version. Unknown versions return an error wrapping
// [ErrVersionNotFound].
func (c *MojangClient) ServerJarURL(ctx context.Context, version string) (string, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultVersionSiteURL
	}
	pageURL := fmt.Sprintf("%s/download/%s", base, url.PathEscape(version))

	page, err := c.HTTP.Get(ctx, pageURL, nil)
	if err != nil {
		if responseStatus(err) == http.StatusNotFound {
			return "", fmt.Errorf("no download page for version %s: %w", version, ErrVersionNotFound)
		}
		return "", fmt.Errorf("fetch download page for version %s: %w", version, err)
	}

	match := serverJarPattern.Find(page)
	if match == nil {
		return "", fmt.Errorf("download page for version %s has no server.jar link: %w", version, ErrVersionNotFound)
	}
	return string(match), nil
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// defaultCurseForgeBaseURL is the public CurseForge API endpoint.
const defaultCurseForgeBaseURL = "https://api.curseforge.com"

// hash algorithm identifiers used by the CurseForge API
const (
	curseForgeHashSHA1 = 1
	curseForgeHashMD5  = 2
)

// CurseForgeFile describes one downloadable file of a mod as returned by
// the CurseForge API. Fields the provisioner does not act on are still
// decoded so callers can log or inspect them.
type CurseForgeFile struct {
	ID               int                  `json:"id"`
	GameID           int                  `json:"gameId"`
	ModID            int                  `json:"modId"`
	IsAvailable      bool                 `json:"isAvailable"`
	DisplayName      string               `json:"displayName"`
	FileName         string               `json:"fileName"`
	ReleaseType      int                  `json:"releaseType"`
	FileStatus       int                  `json:"fileStatus"`
	Hashes           []CurseForgeFileHash `json:"hashes"`
	FileDate         time.Time            `json:"fileDate"`
	FileLength       int64                `json:"fileLength"`
	DownloadCount    int64                `json:"downloadCount"`
	DownloadURL      string               `json:"downloadUrl"`
	GameVersions     []string             `json:"gameVersions"`
	IsServerPack     bool                 `json:"isServerPack"`
	ServerPackFileID int                  `json:"serverPackFileId"`
	FileFingerprint  int64                `json:"fileFingerprint"`
}

// CurseForgeFileHash is a digest published for a file.
type CurseForgeFileHash struct {
	Value string `json:"value"`
	Algo  int    `json:"algo"`
}

// SHA1 returns the published SHA-1 digest of the file, or the empty
// string when the API did not include one.
func (f *CurseForgeFile) SHA1() string {
	for _, h := range f.Hashes {
		if h.Algo == curseForgeHashSHA1 {
			return h.Value
		}
	}
	return ""
}

// response envelopes of the CurseForge API
type (
	curseForgeFileList struct {
		Data       []CurseForgeFile      `json:"data"`
		Pagination *curseForgePagination `json:"pagination"`
	}
	curseForgePagination struct {
		Index       int `json:"index"`
		PageSize    int `json:"pageSize"`
		ResultCount int `json:"resultCount"`
		TotalCount  int `json:"totalCount"`
	}
	curseForgeDownloadURL struct {
		Data string `json:"data"`
	}
)

// CurseForgeClient talks to the CurseForge mods API.
type CurseForgeClient struct {
	// HTTP performs the outbound requests, required.
	HTTP *HTTPClient

	// APIKey is sent as the x-api-key header, required.
	APIKey string

	// BaseURL overrides the API endpoint. Empty selects the public API.
	BaseURL string
}

func (c *CurseForgeClient) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultCurseForgeBaseURL
}

func (c *CurseForgeClient) header() http.Header {
	h := http.Header{}
	h.Set("x-api-key", c.APIKey)
	h.Set("Accept", "application/json")
	return h
}

// LatestFile returns the newest non-alpha file of the given mod.
func (c *CurseForgeClient) LatestFile(ctx context.Context, modID int) (*CurseForgeFile, error) {
	q := url.Values{}
	q.Set("pageIndex", "0")
	q.Set("pageSize", "1")
	q.Set("sort", "dateCreated")
	q.Set("sortDescending", "true")
	q.Set("removeAlphas", "true")
	endpoint := fmt.Sprintf("%s/v1/mods/%d/files?%s", c.baseURL(), modID, q.Encode())

	body, err := c.HTTP.Get(ctx, endpoint, c.header())
	if err != nil {
		return nil, fmt.Errorf("list files of mod %d: %w", modID, err)
	}

	var list curseForgeFileList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode file list of mod %d: %w: %w", modID, err, ErrCurseForgeAPI)
	}
	if len(list.Data) == 0 {
		return nil, fmt.Errorf("mod %d has no downloadable files: %w", modID, ErrCurseForgeAPI)
	}
	return &list.Data[0], nil
}

// DownloadURL resolves the download URL of a single file of the given mod
// through the dedicated download-url endpoint.
func (c *CurseForgeClient) DownloadURL(ctx context.Context, modID, fileID int) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/mods/%d/files/%d/download-url", c.baseURL(), modID, fileID)

	body, err := c.HTTP.Get(ctx, endpoint, c.header())
	if err != nil {
		return "", fmt.Errorf("fetch download url of file %d of mod %d: %w", fileID, modID, err)
	}

	var envelope curseForgeDownloadURL
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("decode download url of file %d of mod %d: %w: %w", fileID, modID, err, ErrCurseForgeAPI)
	}
	if envelope.Data == "" {
		return "", fmt.Errorf("file %d of mod %d has no download url: %w", fileID, modID, ErrCurseForgeAPI)
	}
	return envelope.Data, nil
}

// ServerPackDownloadURL returns the URL of the archive to download for
// the given modpack file, together with the SHA-1 digest to verify it
// against when one is known. Files that reference a dedicated server pack
// resolve to that pack, files without one download directly.
func (c *CurseForgeClient) ServerPackDownloadURL(ctx context.Context, modID int, file *CurseForgeFile) (downloadURL, sha1Digest string, err error) {
	if file.ServerPackFileID != 0 {
		u, err := c.DownloadURL(ctx, modID, file.ServerPackFileID)
		if err != nil {
			return "", "", fmt.Errorf("resolve server pack of file %d: %w", file.ID, err)
		}
		return u, "", nil
	}
	if file.DownloadURL == "" {
		return "", "", fmt.Errorf("file %d (%s) has no download URL, the author may have disabled third party downloads: %w",
			file.ID, file.FileName, ErrCurseForgeAPI)
	}
	return file.DownloadURL, file.SHA1(), nil
}

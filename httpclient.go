// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jpillora/backoff"
)

const (
	// dialTimeout bounds establishing a connection to a remote host.
	dialTimeout = 10 * time.Second

	// requestTimeout bounds a complete request including reading the body.
	requestTimeout = 120 * time.Second

	// defaultUserAgent identifies this tool to remote servers.
	defaultUserAgent = "go-mcbootstrap/1"

	// defaultMaxRetries is the number of retries after a failed attempt.
	defaultMaxRetries = 3

	// connectivityProbeURL is fetched by CheckConnectivity to verify that
	// outbound HTTPS works before any provisioning download starts.
	connectivityProbeURL = "https://httpbin.org/get"

	// defaultBlockSize is the copy block size used when the filesystem
	// cannot report a preferred one.
	defaultBlockSize = 4096

	// maxBlockSize caps filesystem reported block sizes.
	maxBlockSize = 1 << 20

	// minDownloadBufferSize is the smallest buffer used when streaming a
	// download to disk.
	minDownloadBufferSize = 256 * 1024

	// downloadFileMode is applied to downloaded artifacts.
	downloadFileMode = 0o644
)

// HTTPClient performs the outbound requests of the provisioning flows.
// Requests carry bounded timeouts and are retried with exponential backoff
// on transport failures and server errors. The zero value is not usable,
// construct it with [NewHTTPClient].
type HTTPClient struct {
	// ProbeURL is fetched by CheckConnectivity. Empty selects the default
	// probe endpoint.
	ProbeURL string

	client      *http.Client
	logger      logger
	maxRetries  int
	maxBodySize int64
}

// NewHTTPClient returns a client with the default timeouts and retry
// policy. A nil log discards log output.
func NewHTTPClient(log logger) *HTTPClient {
	if log == nil {
		log = defaultLogger
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: dialTimeout,
		}).DialContext,
		TLSHandshakeTimeout: dialTimeout,
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		logger:      log,
		maxRetries:  defaultMaxRetries,
		maxBodySize: defaultMaxInputSize,
	}
}

// get performs a GET request against url with the given extra header,
// retrying on transport failures and 5xx responses. The caller owns the
// response body on success. Responses with status 400 and above are an
// error wrapping [ErrHTTPRequest].
func (c *HTTPClient) get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	b := &backoff.Backoff{
		Min:    1 * time.Second,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			d := b.Duration()
			c.logger.Warn("retrying request", "url", url, "attempt", attempt, "backoff", d, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request for %s: %w", url, err)
		}
		req.Header.Set("User-Agent", defaultUserAgent)
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = &httpStatusError{url: url, status: resp.StatusCode}
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &httpStatusError{url: url, status: resp.StatusCode}
		}
		return resp, nil
	}
	return nil, fmt.Errorf("GET %s failed after %d attempts: %w: %w", url, c.maxRetries+1, lastErr, ErrHTTPRequest)
}

// Get fetches url and returns the response body. The body size is capped,
// exceeding the cap returns [ErrMaxInputSizeExceeded]. A nil header is
// allowed.
func (c *HTTPClient) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	resp, err := c.get(ctx, url, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(newLimitErrorReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body of %s: %w", url, err)
	}
	return body, nil
}

// DownloadFile streams url into the file at dest. The download goes
// through a temporary file next to dest that is renamed into place once
// the stream completed, an interrupted download leaves no partial dest.
// The copy buffer is sized to the destination filesystem.
func (c *HTTPClient) DownloadFile(ctx context.Context, url, dest string) error {
	start := now()
	resp, err := c.get(ctx, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("create temporary download file in %s: %w", dir, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	bufSize := optimalBlockSize(dir)
	if bufSize < minDownloadBufferSize {
		bufSize = minDownloadBufferSize
	}
	n, err := io.CopyBuffer(tmp, newLimitErrorReader(resp.Body, c.maxBodySize), make([]byte, bufSize))
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Chmod(downloadFileMode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp.Name(), dest, err)
	}

	c.logger.Info("download complete",
		"url", url,
		"dest", dest,
		"size", humanize.Bytes(uint64(n)),
		"duration", now().Sub(start).Round(time.Millisecond))
	return nil
}

// CheckConnectivity verifies that outbound HTTPS requests reach the
// internet by fetching a well known endpoint.
func (c *HTTPClient) CheckConnectivity(ctx context.Context) error {
	probe := c.ProbeURL
	if probe == "" {
		probe = connectivityProbeURL
	}
	resp, err := c.get(ctx, probe, nil)
	if err != nil {
		return fmt.Errorf("connectivity check: %w", err)
	}
	io.Copy(io.Discard, newLimitErrorReader(resp.Body, maxBlockSize))
	resp.Body.Close()
	return nil
}

// httpStatusError reports a response with a non-success status code.
type httpStatusError struct {
	url    string
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d %s", e.url, e.status, http.StatusText(e.status))
}

// Is makes every status error match [ErrHTTPRequest].
func (e *httpStatusError) Is(target error) bool {
	return target == ErrHTTPRequest
}

// responseStatus returns the HTTP status code carried by err, or 0 when
// err holds none.
func responseStatus(err error) int {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status
	}
	return 0
}

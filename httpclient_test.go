// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestHTTPClientGet(t *testing.T) {
	var gotUserAgent, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAPIKey = r.Header.Get("x-api-key")
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	c := NewHTTPClient(nil)
	header := http.Header{}
	header.Set("x-api-key", "secret")

	body, err := c.Get(context.Background(), srv.URL, header)
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if !bytes.Equal(body, []byte("payload")) {
		t.Errorf("Get() = %q, want %q", body, "payload")
	}
	if gotUserAgent != "go-mcbootstrap/1" {
		t.Errorf("User-Agent = %q, want %q", gotUserAgent, "go-mcbootstrap/1")
	}
	if gotAPIKey != "secret" {
		t.Errorf("x-api-key = %q, want %q", gotAPIKey, "secret")
	}
}

func TestHTTPClientGetRetriesServerError(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "recovered")
	}))
	defer srv.Close()

	c := NewHTTPClient(nil)
	body, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("Get() = %q, want %q", body, "recovered")
	}
	if attempts != 2 {
		t.Errorf("server saw %d attempts, want 2", attempts)
	}
}

func TestHTTPClientGetClientErrorNoRetry(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(nil)
	_, err := c.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrHTTPRequest) {
		t.Fatalf("Get() error = %v, want ErrHTTPRequest", err)
	}
	if got := responseStatus(err); got != http.StatusNotFound {
		t.Errorf("responseStatus() = %d, want %d", got, http.StatusNotFound)
	}
	if attempts != 1 {
		t.Errorf("server saw %d attempts, want 1", attempts)
	}
}

func TestHTTPClientGetRetriesExhausted(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(nil)
	c.maxRetries = 1

	_, err := c.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrHTTPRequest) {
		t.Fatalf("Get() error = %v, want ErrHTTPRequest", err)
	}
	if got := responseStatus(err); got != http.StatusServiceUnavailable {
		t.Errorf("responseStatus() = %d, want %d", got, http.StatusServiceUnavailable)
	}
	if attempts != 2 {
		t.Errorf("server saw %d attempts, want 2", attempts)
	}
}

func TestHTTPClientGetBodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0123456789")
	}))
	defer srv.Close()

	c := NewHTTPClient(nil)
	c.maxBodySize = 4

	_, err := c.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrMaxInputSizeExceeded) {
		t.Errorf("Get() error = %v, want ErrMaxInputSizeExceeded", err)
	}
}

func TestDownloadFile(t *testing.T) {
	content := bytes.Repeat([]byte("jar bytes "), 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "server.jar")

	c := NewHTTPClient(nil)
	if err := c.DownloadFile(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("DownloadFile(): %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("downloaded %d bytes that differ from the served content", len(got))
	}

	// no staging residue next to the destination
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("destination directory holds %d entries, want 1", len(entries))
	}
}

func TestDownloadFileInterruptedLeavesNoPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// announce more content than is sent, the client sees the stream
		// end unexpectedly
		w.Header().Set("Content-Length", "4096")
		w.Write([]byte("short"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "server.jar")

	c := NewHTTPClient(nil)
	c.maxRetries = 0
	if err := c.DownloadFile(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("DownloadFile() expected error, got nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("destination directory holds %d entries after failed download, want 0", len(entries))
	}
}

func TestCheckConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	c := NewHTTPClient(nil)
	c.ProbeURL = srv.URL
	if err := c.CheckConnectivity(context.Background()); err != nil {
		t.Errorf("CheckConnectivity(): %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer failing.Close()

	c.ProbeURL = failing.URL
	if err := c.CheckConnectivity(context.Background()); !errors.Is(err, ErrHTTPRequest) {
		t.Errorf("CheckConnectivity() error = %v, want ErrHTTPRequest", err)
	}
}

func TestResponseStatus(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", &httpStatusError{url: "https://example.com", status: 404})
	if got := responseStatus(wrapped); got != 404 {
		t.Errorf("responseStatus() = %d, want 404", got)
	}
	if got := responseStatus(errors.New("plain")); got != 0 {
		t.Errorf("responseStatus() = %d, want 0", got)
	}
	if got := responseStatus(nil); got != 0 {
		t.Errorf("responseStatus(nil) = %d, want 0", got)
	}
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// well known files inside the server working directory
const (
	eulaFileName         = "eula.txt"
	serverPropertiesName = "server.properties"
	serverIconName       = "server-icon.png"
	serverJarName        = "server.jar"

	// serverFileMode is applied to generated server files. The server
	// process may run under a different account than the provisioner.
	serverFileMode = 0o644
)

// serverProperty is one key value pair of a server.properties file.
type serverProperty struct {
	Key   string
	Value string
}

// defaultServerPropertiesHeader precedes a freshly created properties
// file.
var defaultServerPropertiesHeader = []string{
	"#Minecraft server properties",
	"#Generated by mcbootstrap",
}

// defaultServerProperties seeds a freshly created properties file in this
// order.
var defaultServerProperties = []serverProperty{
	{"server-port", "25565"},
	{"gamemode", "survival"},
	{"difficulty", "easy"},
	{"max-players", "20"},
	{"motd", "A Minecraft Server"},
	{"level-name", "world"},
	{"online-mode", "true"},
	{"pvp", "true"},
	{"view-distance", "10"},
	{"white-list", "false"},
}

// CreateEulaFile writes the eula.txt acceptance marker into dir and
// returns its path. The server refuses to start without it.
func CreateEulaFile(dir string) (string, error) {
	path := filepath.Join(dir, eulaFileName)
	if err := os.WriteFile(path, []byte("eula=true\n"), serverFileMode); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// CustomizeServerProperties applies overrides to the server.properties
// file in dir. A missing file is created with the default properties
// first. Existing comments, blank lines and keys not named in overrides
// are preserved, overridden keys keep their position, unknown keys are
// appended in sorted order.
func CustomizeServerProperties(dir string, overrides map[string]string) error {
	path := filepath.Join(dir, serverPropertiesName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefaultServerProperties(path); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if len(overrides) == 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	merged := mergeProperties(splitLines(string(data)), overrides)
	content := strings.Join(merged, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), serverFileMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// DownloadServerIcon fetches url into the server-icon.png inside dir.
func DownloadServerIcon(ctx context.Context, client *HTTPClient, url, dir string) error {
	return client.DownloadFile(ctx, url, filepath.Join(dir, serverIconName))
}

func writeDefaultServerProperties(path string) error {
	lines := make([]string, 0, len(defaultServerPropertiesHeader)+len(defaultServerProperties))
	lines = append(lines, defaultServerPropertiesHeader...)
	for _, p := range defaultServerProperties {
		lines = append(lines, p.Key+"="+p.Value)
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), serverFileMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// mergeProperties replaces the values of overridden keys in place and
// appends overrides that matched no existing line. Lines that are empty,
// comments or carry no key value separator pass through untouched.
func mergeProperties(existing []string, overrides map[string]string) []string {
	applied := make(map[string]bool, len(overrides))
	merged := make([]string, 0, len(existing)+len(overrides))

	for _, line := range existing {
		trimmed := strings.TrimSpace(line)
		sep := strings.Index(line, "=")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || sep < 0 {
			merged = append(merged, line)
			continue
		}
		key := strings.TrimSpace(line[:sep])
		if value, ok := overrides[key]; ok {
			merged = append(merged, key+"="+value)
			applied[key] = true
		} else {
			merged = append(merged, line)
		}
	}

	remaining := make([]string, 0, len(overrides))
	for key := range overrides {
		if !applied[key] {
			remaining = append(remaining, key)
		}
	}
	sort.Strings(remaining)
	for _, key := range remaining {
		merged = append(merged, key+"="+overrides[key])
	}
	return merged
}

// splitLines splits content on newlines, dropping a trailing empty line
// produced by a final newline.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

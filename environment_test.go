// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-mcbootstrap"
)

// mapLookup returns a LookupFunc backed by m.
func mapLookup(m map[string]string) mcbootstrap.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestParseServerType(t *testing.T) {
	tests := []struct {
		input       string
		want        mcbootstrap.ServerType
		expectError bool
	}{
		{input: "", want: mcbootstrap.ServerTypeVanilla},
		{input: "VANILLA", want: mcbootstrap.ServerTypeVanilla},
		{input: "vanilla", want: mcbootstrap.ServerTypeVanilla},
		{input: " CURSEFORGE ", want: mcbootstrap.ServerTypeCurseForge},
		{input: "MANUAL", want: mcbootstrap.ServerTypeManual},
		{input: "FORGE", expectError: true},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%q", test.input), func(t *testing.T) {
			got, err := mcbootstrap.ParseServerType(test.input)
			if test.expectError {
				if !errors.Is(err, mcbootstrap.ErrEnvironment) {
					t.Errorf("ParseServerType(%q) error = %v, want ErrEnvironment", test.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseServerType(%q): %v", test.input, err)
			}
			if got != test.want {
				t.Errorf("ParseServerType(%q) = %v, want %v", test.input, got, test.want)
			}
		})
	}
}

func TestServerTypeString(t *testing.T) {
	if got := mcbootstrap.ServerTypeVanilla.String(); got != "VANILLA" {
		t.Errorf("String() = %q, want %q", got, "VANILLA")
	}
	if got := mcbootstrap.ServerTypeCurseForge.String(); got != "CURSEFORGE" {
		t.Errorf("String() = %q, want %q", got, "CURSEFORGE")
	}
	if got := mcbootstrap.ServerTypeManual.String(); got != "MANUAL" {
		t.Errorf("String() = %q, want %q", got, "MANUAL")
	}
}

func TestCollectEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		env         func(t *testing.T) map[string]string
		expectError bool
		statusLine  string
		check       func(t *testing.T, env *mcbootstrap.Environment)
	}{
		{
			name: "vanilla",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":        "true",
					"WORKING_DIR": t.TempDir(),
					"TYPE":        "VANILLA",
					"VERSION":     "1.20.4",
				}
			},
			statusLine: "VERSION: OK - 1.20.4",
			check: func(t *testing.T, env *mcbootstrap.Environment) {
				if env.Type != mcbootstrap.ServerTypeVanilla {
					t.Errorf("Type = %v, want vanilla", env.Type)
				}
				if env.Version != "1.20.4" {
					t.Errorf("Version = %q, want 1.20.4", env.Version)
				}
				if !env.EULAAccepted {
					t.Errorf("EULAAccepted = false, want true")
				}
			},
		},
		{
			name: "type defaults to vanilla",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":        "true",
					"WORKING_DIR": t.TempDir(),
					"VERSION":     "1.21.0",
				}
			},
			statusLine: "TYPE: OK - VANILLA",
			check: func(t *testing.T, env *mcbootstrap.Environment) {
				if env.Type != mcbootstrap.ServerTypeVanilla {
					t.Errorf("Type = %v, want vanilla", env.Type)
				}
			},
		},
		{
			name: "missing eula",
			env: func(t *testing.T) map[string]string {
				return map[string]string{"WORKING_DIR": t.TempDir(), "VERSION": "1.20.4"}
			},
			expectError: true,
			statusLine:  `EULA: FAIL - must be set to "true" to accept the Minecraft EULA`,
		},
		{
			name: "eula requires exact lowercase spelling",
			env: func(t *testing.T) map[string]string {
				return map[string]string{"EULA": "TRUE", "WORKING_DIR": t.TempDir(), "VERSION": "1.20.4"}
			},
			expectError: true,
		},
		{
			name: "missing working directory",
			env: func(t *testing.T) map[string]string {
				return map[string]string{"EULA": "true", "VERSION": "1.20.4"}
			},
			expectError: true,
			statusLine:  "WORKING_DIR: FAIL - not set",
		},
		{
			name: "relative working directory",
			env: func(t *testing.T) map[string]string {
				return map[string]string{"EULA": "true", "WORKING_DIR": "relative/path", "VERSION": "1.20.4"}
			},
			expectError: true,
			statusLine:  "WORKING_DIR: FAIL - must be an absolute path",
		},
		{
			name: "unknown server type",
			env: func(t *testing.T) map[string]string {
				return map[string]string{"EULA": "true", "WORKING_DIR": t.TempDir(), "TYPE": "FORGE"}
			},
			expectError: true,
			statusLine:  `TYPE: FAIL - unknown server type "FORGE"`,
		},
		{
			name: "snapshot version rejected",
			env: func(t *testing.T) map[string]string {
				return map[string]string{"EULA": "true", "WORKING_DIR": t.TempDir(), "VERSION": "23w07a"}
			},
			expectError: true,
		},
		{
			name: "two segment version rejected",
			env: func(t *testing.T) map[string]string {
				return map[string]string{"EULA": "true", "WORKING_DIR": t.TempDir(), "VERSION": "1.20"}
			},
			expectError: true,
		},
		{
			name: "curseforge",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":                  "true",
					"WORKING_DIR":           t.TempDir(),
					"TYPE":                  "CURSEFORGE",
					"CURSEFORGE_API_TOKEN":  "token-value",
					"CURSEFORGE_MODPACK_ID": "715572",
				}
			},
			statusLine: "CURSEFORGE_MODPACK_ID: OK - 715572",
			check: func(t *testing.T, env *mcbootstrap.Environment) {
				if env.CurseForgeAPIToken != "token-value" {
					t.Errorf("CurseForgeAPIToken = %q, want token-value", env.CurseForgeAPIToken)
				}
				if env.CurseForgeModpackID != 715572 {
					t.Errorf("CurseForgeModpackID = %d, want 715572", env.CurseForgeModpackID)
				}
			},
		},
		{
			name: "curseforge alias names report the canonical label",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":          "true",
					"WORKING_DIR":   t.TempDir(),
					"TYPE":          "CURSEFORGE",
					"CF_API_TOKEN":  "token-value",
					"CF_MODPACK_ID": "42",
				}
			},
			statusLine: "CURSEFORGE_API_TOKEN: OK",
			check: func(t *testing.T, env *mcbootstrap.Environment) {
				if env.CurseForgeAPIToken != "token-value" {
					t.Errorf("CurseForgeAPIToken = %q, want token-value", env.CurseForgeAPIToken)
				}
				if env.CurseForgeModpackID != 42 {
					t.Errorf("CurseForgeModpackID = %d, want 42", env.CurseForgeModpackID)
				}
			},
		},
		{
			name: "curseforge missing token",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":                  "true",
					"WORKING_DIR":           t.TempDir(),
					"TYPE":                  "CURSEFORGE",
					"CURSEFORGE_MODPACK_ID": "42",
				}
			},
			expectError: true,
			statusLine:  "CURSEFORGE_API_TOKEN: FAIL - set CURSEFORGE_API_TOKEN or CF_API_TOKEN",
		},
		{
			name: "curseforge modpack id not numeric",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":                  "true",
					"WORKING_DIR":           t.TempDir(),
					"TYPE":                  "CURSEFORGE",
					"CURSEFORGE_API_TOKEN":  "token-value",
					"CURSEFORGE_MODPACK_ID": "abc",
				}
			},
			expectError: true,
			statusLine:  `CURSEFORGE_MODPACK_ID: FAIL - "abc" is not a positive integer`,
		},
		{
			name: "curseforge modpack id negative",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":                  "true",
					"WORKING_DIR":           t.TempDir(),
					"TYPE":                  "CURSEFORGE",
					"CURSEFORGE_API_TOKEN":  "token-value",
					"CURSEFORGE_MODPACK_ID": "-5",
				}
			},
			expectError: true,
		},
		{
			name: "manual",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":            "true",
					"WORKING_DIR":     t.TempDir(),
					"TYPE":            "MANUAL",
					"SERVER_PACK_URL": "https://example.com/pack.zip",
				}
			},
			statusLine: "SERVER_PACK_URL: OK - https://example.com/pack.zip",
			check: func(t *testing.T, env *mcbootstrap.Environment) {
				if env.ServerPackURL != "https://example.com/pack.zip" {
					t.Errorf("ServerPackURL = %q", env.ServerPackURL)
				}
			},
		},
		{
			name: "manual requires http scheme",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":            "true",
					"WORKING_DIR":     t.TempDir(),
					"TYPE":            "MANUAL",
					"SERVER_PACK_URL": "ftp://example.com/pack.zip",
				}
			},
			expectError: true,
		},
		{
			name: "manual missing url",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":        "true",
					"WORKING_DIR": t.TempDir(),
					"TYPE":        "MANUAL",
				}
			},
			expectError: true,
			statusLine:  "SERVER_PACK_URL: FAIL - not set",
		},
		{
			name: "customization file must exist",
			env: func(t *testing.T) map[string]string {
				return map[string]string{
					"EULA":                  "true",
					"WORKING_DIR":           t.TempDir(),
					"VERSION":               "1.20.4",
					"MCBOOTSTRAP_CUSTOMIZE": filepath.Join(t.TempDir(), "missing.toml"),
				}
			},
			expectError: true,
		},
		{
			name: "customization file",
			env: func(t *testing.T) map[string]string {
				path := filepath.Join(t.TempDir(), "customize.toml")
				if err := os.WriteFile(path, []byte("[properties]\n"), 0644); err != nil {
					t.Fatal(err)
				}
				return map[string]string{
					"EULA":                  "true",
					"WORKING_DIR":           t.TempDir(),
					"VERSION":               "1.20.4",
					"MCBOOTSTRAP_CUSTOMIZE": path,
				}
			},
			check: func(t *testing.T, env *mcbootstrap.Environment) {
				if env.CustomizationPath == "" {
					t.Errorf("CustomizationPath is empty")
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			status := mcbootstrap.NewStatusReporter(&out)

			env, err := mcbootstrap.CollectEnvironment(mapLookup(test.env(t)), status)
			if test.expectError {
				if err == nil {
					t.Fatalf("CollectEnvironment() expected error, got nil")
				}
			} else if err != nil {
				t.Fatalf("CollectEnvironment(): %v", err)
			}

			if test.statusLine != "" && !strings.Contains(out.String(), test.statusLine) {
				t.Errorf("status output %q does not contain %q", out.String(), test.statusLine)
			}
			if test.check != nil && err == nil {
				test.check(t, env)
			}
		})
	}
}

// Validation stops at the first failing variable, later variables are not
// reported at all.
func TestCollectEnvironmentStopsAtFirstFailure(t *testing.T) {
	var out bytes.Buffer
	status := mcbootstrap.NewStatusReporter(&out)

	_, err := mcbootstrap.CollectEnvironment(mapLookup(map[string]string{}), status)
	if !errors.Is(err, mcbootstrap.ErrEnvironment) {
		t.Fatalf("CollectEnvironment() error = %v, want ErrEnvironment", err)
	}

	lines := strings.Count(out.String(), "\n")
	if lines != 1 {
		t.Errorf("status output has %d lines, want 1:\n%s", lines, out.String())
	}
	if !strings.HasPrefix(out.String(), "EULA: FAIL") {
		t.Errorf("status output %q does not start with the EULA failure", out.String())
	}
}

// The working directory is created on demand, including parents.
func TestCollectEnvironmentCreatesWorkingDir(t *testing.T) {
	workingDir := filepath.Join(t.TempDir(), "srv", "minecraft")

	env, err := mcbootstrap.CollectEnvironment(mapLookup(map[string]string{
		"EULA":        "true",
		"WORKING_DIR": workingDir,
		"VERSION":     "1.20.4",
	}), nil)
	if err != nil {
		t.Fatalf("CollectEnvironment(): %v", err)
	}
	if env.WorkingDir != workingDir {
		t.Errorf("WorkingDir = %q, want %q", env.WorkingDir, workingDir)
	}

	stat, err := os.Stat(workingDir)
	if err != nil {
		t.Fatalf("Stat() on working directory: %v", err)
	}
	if !stat.IsDir() {
		t.Errorf("working directory is no directory")
	}
}

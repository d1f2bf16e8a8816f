// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ServerType selects the provisioning flow.
type ServerType int

const (
	// ServerTypeVanilla provisions an unmodified server distribution for a
	// fixed game version.
	ServerTypeVanilla ServerType = iota

	// ServerTypeCurseForge provisions the latest server pack of a
	// CurseForge modpack.
	ServerTypeCurseForge

	// ServerTypeManual provisions a server pack from a directly addressed
	// URL.
	ServerTypeManual
)

// String returns the environment spelling of the server type.
func (s ServerType) String() string {
	switch s {
	case ServerTypeCurseForge:
		return "CURSEFORGE"
	case ServerTypeManual:
		return "MANUAL"
	default:
		return "VANILLA"
	}
}

// ParseServerType parses the TYPE environment value. The empty string
// defaults to [ServerTypeVanilla].
func ParseServerType(s string) (ServerType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "VANILLA":
		return ServerTypeVanilla, nil
	case "CURSEFORGE":
		return ServerTypeCurseForge, nil
	case "MANUAL":
		return ServerTypeManual, nil
	default:
		return ServerTypeVanilla, fmt.Errorf("unknown server type %q: %w", s, ErrEnvironment)
	}
}

// versionPattern matches plain semantic game versions such as 1.20.4.
var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Environment holds the validated provisioning inputs.
type Environment struct {
	// EULAAccepted reports that the operator set EULA to the literal
	// string "true", accepting the Minecraft end user license agreement.
	EULAAccepted bool

	// Version is the requested game version for vanilla provisioning.
	Version string

	// WorkingDir is the absolute path of the server working directory.
	WorkingDir string

	// Type selects the provisioning flow.
	Type ServerType

	// CurseForgeAPIToken authenticates against the CurseForge API.
	CurseForgeAPIToken string

	// CurseForgeModpackID is the numeric mod id of the modpack.
	CurseForgeModpackID int

	// ServerPackURL is the direct download URL for manual provisioning.
	ServerPackURL string

	// CustomizationPath is an optional path to a TOML customization file.
	CustomizationPath string
}

// LookupFunc looks up an environment variable, os.LookupEnv compatible.
type LookupFunc func(key string) (string, bool)

// environment variable names, the CF_* names are accepted aliases
const (
	envEULA            = "EULA"
	envVersion         = "VERSION"
	envWorkingDir      = "WORKING_DIR"
	envType            = "TYPE"
	envCFAPIToken      = "CURSEFORGE_API_TOKEN"
	envCFAPITokenAlias = "CF_API_TOKEN"
	envCFModpackID     = "CURSEFORGE_MODPACK_ID"
	envCFModpackAlias  = "CF_MODPACK_ID"
	envServerPackURL   = "SERVER_PACK_URL"
	envCustomization   = "MCBOOTSTRAP_CUSTOMIZE"
)

// CollectEnvironment reads and validates the provisioning inputs through
// lookup, reporting each check to status. Validation stops at the first
// failing variable. The working directory is created if it does not exist.
//
// Passing nil for lookup uses the process environment, passing nil for
// status suppresses progress lines.
func CollectEnvironment(lookup LookupFunc, status *StatusReporter) (*Environment, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := &Environment{}

	// EULA gate, the literal lowercase "true" is required
	eula, _ := lookup(envEULA)
	if eula != "true" {
		status.Fail(envEULA, `must be set to "true" to accept the Minecraft EULA`)
		return nil, fmt.Errorf("%s must be set to %q: %w", envEULA, "true", ErrEnvironment)
	}
	env.EULAAccepted = true
	status.OK(envEULA, "")

	// working directory, absolute and created on demand
	workingDir, _ := lookup(envWorkingDir)
	if workingDir == "" {
		status.Fail(envWorkingDir, "not set")
		return nil, fmt.Errorf("%s is not set: %w", envWorkingDir, ErrEnvironment)
	}
	if !filepath.IsAbs(workingDir) {
		status.Fail(envWorkingDir, "must be an absolute path")
		return nil, fmt.Errorf("%s %q is not an absolute path: %w", envWorkingDir, workingDir, ErrEnvironment)
	}
	if err := os.MkdirAll(workingDir, 0750); err != nil {
		status.Fail(envWorkingDir, err.Error())
		return nil, fmt.Errorf("cannot create working directory %q: %w", workingDir, err)
	}
	env.WorkingDir = workingDir
	status.OK(envWorkingDir, workingDir)

	// server type selects which variables are required below
	typeValue, _ := lookup(envType)
	serverType, err := ParseServerType(typeValue)
	if err != nil {
		status.Fail(envType, fmt.Sprintf("unknown server type %q", typeValue))
		return nil, err
	}
	env.Type = serverType
	status.OK(envType, serverType.String())

	switch serverType {

	case ServerTypeVanilla:
		version, _ := lookup(envVersion)
		if !versionPattern.MatchString(version) {
			status.Fail(envVersion, fmt.Sprintf("%q is not a version of the form 1.20.4", version))
			return nil, fmt.Errorf("%s %q does not match %s: %w", envVersion, version, versionPattern, ErrEnvironment)
		}
		env.Version = version
		status.OK(envVersion, version)

	case ServerTypeCurseForge:
		token := lookupFirst(lookup, envCFAPIToken, envCFAPITokenAlias)
		if token == "" {
			status.Fail(envCFAPIToken, fmt.Sprintf("set %s or %s", envCFAPIToken, envCFAPITokenAlias))
			return nil, fmt.Errorf("%s is not set: %w", envCFAPIToken, ErrEnvironment)
		}
		env.CurseForgeAPIToken = token
		status.OK(envCFAPIToken, "")

		rawID := lookupFirst(lookup, envCFModpackID, envCFModpackAlias)
		if rawID == "" {
			status.Fail(envCFModpackID, fmt.Sprintf("set %s or %s", envCFModpackID, envCFModpackAlias))
			return nil, fmt.Errorf("%s is not set: %w", envCFModpackID, ErrEnvironment)
		}
		id, err := strconv.Atoi(rawID)
		if err != nil || id <= 0 {
			status.Fail(envCFModpackID, fmt.Sprintf("%q is not a positive integer", rawID))
			return nil, fmt.Errorf("%s %q is not a positive integer: %w", envCFModpackID, rawID, ErrEnvironment)
		}
		env.CurseForgeModpackID = id
		status.OK(envCFModpackID, rawID)

	case ServerTypeManual:
		rawURL, _ := lookup(envServerPackURL)
		if err := validateHTTPURL(rawURL); err != nil {
			status.Fail(envServerPackURL, err.Error())
			return nil, fmt.Errorf("%s: %w: %w", envServerPackURL, err, ErrEnvironment)
		}
		env.ServerPackURL = rawURL
		status.OK(envServerPackURL, rawURL)
	}

	// optional customization file
	if p, ok := lookup(envCustomization); ok && p != "" {
		if _, err := os.Stat(p); err != nil {
			status.Fail(envCustomization, err.Error())
			return nil, fmt.Errorf("customization file %q: %w", p, err)
		}
		env.CustomizationPath = p
		status.OK(envCustomization, p)
	}

	return env, nil
}

// lookupFirst returns the first non-empty value among the given variable
// names, trimmed of surrounding whitespace.
func lookupFirst(lookup LookupFunc, names ...string) string {
	for _, name := range names {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// validateHTTPURL checks that raw is an absolute http or https URL.
func validateHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("not set")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

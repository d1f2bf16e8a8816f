// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Provisioner runs a complete server bootstrap for a validated
// environment. The collaborator fields are exported so callers can swap
// individual clients, e.g. to point at test servers.
type Provisioner struct {
	Env        *Environment
	HTTP       *HTTPClient
	Mojang     *MojangClient
	CurseForge *CurseForgeClient
	Config     *Config
	Status     *StatusReporter
	Logger     logger

	// Force redownloads artifacts that already exist in the working
	// directory.
	Force bool
}

// NewProvisioner wires a Provisioner with default clients for env. A nil
// cfg selects the default configuration, a nil status suppresses progress
// lines.
func NewProvisioner(env *Environment, cfg *Config, status *StatusReporter) *Provisioner {
	if cfg == nil {
		cfg = NewConfig()
	}
	httpClient := NewHTTPClient(cfg.Logger())
	return &Provisioner{
		Env:        env,
		HTTP:       httpClient,
		Mojang:     &MojangClient{HTTP: httpClient},
		CurseForge: &CurseForgeClient{HTTP: httpClient, APIKey: env.CurseForgeAPIToken},
		Config:     cfg,
		Status:     status,
		Logger:     cfg.Logger(),
	}
}

// Provision performs the full bootstrap: connectivity probe, the flow
// selected by the environment type, then the shared server files. Partial
// progress is left in place when a later step fails, rerunning after the
// cause is fixed completes the remaining steps.
func (p *Provisioner) Provision(ctx context.Context) error {
	var custom *Customization
	if p.Env.CustomizationPath != "" {
		c, err := LoadCustomization(p.Env.CustomizationPath)
		if err != nil {
			p.Status.Fail("Customization", err.Error())
			return err
		}
		custom = c
		p.Status.OK("Customization", p.Env.CustomizationPath)
	}

	p.Status.Step("Testing HTTP connectivity...")
	if err := p.HTTP.CheckConnectivity(ctx); err != nil {
		p.Status.Fail("HTTP connectivity", err.Error())
		return err
	}
	p.Status.OK("HTTP connectivity", "")

	// the server artifact and the icon are independent downloads
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		switch p.Env.Type {
		case ServerTypeVanilla:
			return p.provisionVanilla(gctx)
		case ServerTypeCurseForge:
			return p.provisionCurseForge(gctx)
		case ServerTypeManual:
			return p.provisionManual(gctx)
		default:
			return fmt.Errorf("unhandled server type %q: %w", p.Env.Type, ErrEnvironment)
		}
	})
	if custom != nil && custom.IconURL != "" {
		g.Go(func() error {
			if err := DownloadServerIcon(gctx, p.HTTP, custom.IconURL, p.Env.WorkingDir); err != nil {
				p.Status.Fail("Server icon", err.Error())
				return err
			}
			p.Status.OK("Server icon", filepath.Join(p.Env.WorkingDir, serverIconName))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	eulaPath, err := CreateEulaFile(p.Env.WorkingDir)
	if err != nil {
		p.Status.Fail("EULA file", err.Error())
		return err
	}
	p.Status.OK("EULA file", eulaPath)

	var overrides map[string]string
	if custom != nil {
		overrides = custom.Properties
	}
	if err := CustomizeServerProperties(p.Env.WorkingDir, overrides); err != nil {
		p.Status.Fail("Server properties", err.Error())
		return err
	}
	p.Status.OK("Server properties", filepath.Join(p.Env.WorkingDir, serverPropertiesName))

	p.Logger.Info("provisioning complete", "type", p.Env.Type.String(), "workingDir", p.Env.WorkingDir)
	return nil
}

// provisionVanilla resolves and downloads the official server.jar for the
// requested game version.
func (p *Provisioner) provisionVanilla(ctx context.Context) error {
	p.Status.Step("Preparing VANILLA server bootstrap...")

	p.Status.Step("Fetching server.jar URL...")
	jarURL, err := p.Mojang.ServerJarURL(ctx, p.Env.Version)
	if err != nil {
		p.Status.Fail("Server.jar URL", err.Error())
		return err
	}
	p.Status.OK("Server.jar URL", jarURL)

	dest := filepath.Join(p.Env.WorkingDir, serverJarName)
	if !p.Force {
		if _, err := os.Stat(dest); err == nil {
			p.Status.Skip(serverJarName, dest)
			return nil
		}
	}
	p.Status.Step(fmt.Sprintf("Downloading server.jar to %s...", dest))
	if err := p.HTTP.DownloadFile(ctx, jarURL, dest); err != nil {
		p.Status.Fail(serverJarName, err.Error())
		return err
	}
	p.Status.OK(serverJarName, dest)
	return nil
}

// provisionCurseForge downloads the latest server pack of the configured
// modpack and extracts it into the working directory.
func (p *Provisioner) provisionCurseForge(ctx context.Context) error {
	p.Status.Step("Preparing CURSEFORGE server bootstrap...")

	p.Status.Step("Fetching modpack metadata from CurseForge...")
	file, err := p.CurseForge.LatestFile(ctx, p.Env.CurseForgeModpackID)
	if err != nil {
		p.Status.Fail("CurseForge API", err.Error())
		return err
	}
	p.Status.OK("CurseForge API", fmt.Sprintf("latest file %q", file.FileName))

	downloadURL, digest, err := p.CurseForge.ServerPackDownloadURL(ctx, p.Env.CurseForgeModpackID, file)
	if err != nil {
		p.Status.Fail("Modpack download URL", err.Error())
		return err
	}
	p.Status.OK("Modpack download URL", downloadURL)

	p.Status.Step("Downloading modpack archive...")
	data, err := p.HTTP.Get(ctx, downloadURL, nil)
	if err != nil {
		p.Status.Fail("Modpack download", err.Error())
		return err
	}
	p.Status.OK("Modpack download", fmt.Sprintf("%d bytes", len(data)))

	if digest != "" {
		if err := verifySHA1(data, digest); err != nil {
			p.Status.Fail("Modpack checksum", err.Error())
			return err
		}
		p.Status.OK("Modpack checksum", digest)
	}

	p.Status.Step("Extracting modpack archive...")
	if err := p.extractArchive(ctx, data); err != nil {
		p.Status.Fail("Modpack extraction", err.Error())
		return err
	}
	p.Status.OK("Modpack extraction", p.Env.WorkingDir)
	return nil
}

// provisionManual downloads the server pack at the configured URL and
// extracts it into the working directory.
func (p *Provisioner) provisionManual(ctx context.Context) error {
	p.Status.Step(fmt.Sprintf("Bootstrapping manual server from %s", p.Env.ServerPackURL))

	data, err := p.HTTP.Get(ctx, p.Env.ServerPackURL, nil)
	if err != nil {
		p.Status.Fail("Server pack download", err.Error())
		return err
	}
	p.Status.OK("Server pack download", fmt.Sprintf("%d bytes", len(data)))

	if err := p.extractArchive(ctx, data); err != nil {
		p.Status.Fail("Server pack extraction", err.Error())
		return err
	}
	p.Status.OK("Server pack extraction", p.Env.WorkingDir)
	return nil
}

// extractArchive classifies data and unpacks it into the working
// directory. Gzip streams are inflated first and must wrap a zip archive,
// anything else is rejected as an invalid pack format.
func (p *Provisioner) extractArchive(ctx context.Context, data []byte) error {
	switch Classify(data) {
	case FileTypeZip:
	case FileTypeGzip:
		inflated, err := InflateGzip(data)
		if err != nil {
			return fmt.Errorf("inflate downloaded archive: %w", err)
		}
		if Classify(inflated) != FileTypeZip {
			return fmt.Errorf("gzip stream does not wrap a zip archive: %w", ErrInvalidModpackFormat)
		}
		data = inflated
	default:
		return fmt.Errorf("downloaded archive is neither zip nor gzip: %w", ErrInvalidModpackFormat)
	}
	return UnpackZip(ctx, NewTargetDisk(), p.Env.WorkingDir, bytes.NewReader(data), p.Config)
}

// verifySHA1 compares the SHA-1 digest of data against the published hex
// digest.
func verifySHA1(data []byte, expected string) error {
	sum := sha1.Sum(data)
	actual := hex.EncodeToString(sum[:])
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("expected %s, got %s: %w", expected, actual, ErrChecksumMismatch)
	}
	return nil
}

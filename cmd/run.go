// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-mcbootstrap"
	"github.com/pkg/errors"
)

// CLI are the cli parameters for the mcbootstrap binary.
type CLI struct {
	Provision  ProvisionCmd  `cmd:"" default:"1" help:"Provision a Minecraft server into a working directory."`
	Extract    ExtractCmd    `cmd:"" help:"Extract a zip archive or gzip stream with the builtin engine."`
	Decompress DecompressCmd `cmd:"" help:"Decompress a gzip stream into a file."`

	Verbose bool             `short:"v" optional:"" help:"Verbose logging."`
	Version kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// runContext carries shared state into the command implementations.
type runContext struct {
	logger *slog.Logger
}

// ProvisionCmd provisions a server from environment variables, flags
// override the environment.
type ProvisionCmd struct {
	EULA                string `env:"EULA" help:"Must be \"true\" to accept the Minecraft EULA."`
	WorkingDir          string `env:"WORKING_DIR" help:"Absolute path of the server working directory."`
	Type                string `env:"TYPE" help:"Server type: VANILLA, CURSEFORGE or MANUAL. (default: VANILLA)"`
	GameVersion         string `name:"game-version" env:"VERSION" help:"Game version for VANILLA provisioning, e.g. 1.20.4."`
	CurseforgeAPIToken  string `env:"CURSEFORGE_API_TOKEN" help:"CurseForge API key."`
	CurseforgeModpackID string `env:"CURSEFORGE_MODPACK_ID" help:"CurseForge modpack id."`
	ServerPackURL       string `env:"SERVER_PACK_URL" help:"Direct server pack URL for MANUAL provisioning."`
	Customize           string `env:"MCBOOTSTRAP_CUSTOMIZE" help:"Path to a TOML customization file."`

	DryRun          bool   `help:"Validate the environment and exit without provisioning."`
	Force           bool   `help:"Redownload artifacts that already exist."`
	MaxDownloadSize string `default:"1GiB" help:"Maximum size of a single download."`
	Timeout         int64  `default:"0" help:"Overall provisioning timeout in seconds. (disable: 0)"`
}

// lookup resolves variables from the parsed flags first and falls back to
// the process environment, which also serves the CF_* alias names.
func (p *ProvisionCmd) lookup() mcbootstrap.LookupFunc {
	flags := map[string]string{
		"EULA":                  p.EULA,
		"VERSION":               p.GameVersion,
		"WORKING_DIR":           p.WorkingDir,
		"TYPE":                  p.Type,
		"CURSEFORGE_API_TOKEN":  p.CurseforgeAPIToken,
		"CURSEFORGE_MODPACK_ID": p.CurseforgeModpackID,
		"SERVER_PACK_URL":       p.ServerPackURL,
		"MCBOOTSTRAP_CUSTOMIZE": p.Customize,
	}
	return func(key string) (string, bool) {
		if v, ok := flags[key]; ok && v != "" {
			return v, true
		}
		return os.LookupEnv(key)
	}
}

// Run validates the environment and performs the provisioning flow.
func (p *ProvisionCmd) Run(rc *runContext) error {
	status := mcbootstrap.NewStatusReporter(os.Stdout)

	env, err := mcbootstrap.CollectEnvironment(p.lookup(), status)
	if err != nil {
		return err
	}
	if p.DryRun {
		return nil
	}

	maxDownload, err := humanize.ParseBytes(p.MaxDownloadSize)
	if err != nil {
		return errors.Wrap(err, "invalid --max-download-size")
	}

	cfg := mcbootstrap.NewConfig(
		mcbootstrap.WithLogger(rc.logger),
		mcbootstrap.WithMaxInputSize(int64(maxDownload)),
	)

	ctx := context.Background()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.Timeout)*time.Second)
		defer cancel()
	}

	prov := mcbootstrap.NewProvisioner(env, cfg, status)
	prov.Force = p.Force
	if err := prov.Provision(ctx); err != nil {
		return errors.Wrap(err, "provisioning failed")
	}
	return nil
}

// ExtractCmd extracts an archive with the builtin zip and gzip engine.
type ExtractCmd struct {
	Archive           string `arg:"" name:"archive" help:"Path to archive. (\"-\" for STDIN)"`
	Destination       string `arg:"" name:"destination" default:"." help:"Output directory/file."`
	ContinueOnError   bool   `short:"C" help:"Continue extraction on error."`
	CreateDestination bool   `short:"c" help:"Create destination directory if it does not exist."`
	MaxFiles          int64  `optional:"" default:"100000" help:"Maximum files that are extracted before stop. (disable check: -1)"`
	MaxExtractionSize int64  `optional:"" default:"1073741824" help:"Maximum extraction size allowed (in bytes). (disable check: -1)"`
	MaxExtractionTime int64  `optional:"" default:"60" help:"Maximum time that an extraction should take (in seconds). (disable check: -1)"`
	MaxInputSize      int64  `optional:"" default:"1073741824" help:"Maximum input size allowed (in bytes). (disable check: -1)"`
	NoOverwrite       bool   `help:"Fail instead of overwriting existing files."`
	Telemetry         bool   `short:"T" optional:"" default:"false" help:"Print telemetry data to log after extraction."`
}

// Run extracts the archive into the destination.
func (e *ExtractCmd) Run(rc *runContext) error {
	var archive io.Reader
	if e.Archive == "-" {
		archive = bufio.NewReader(os.Stdin)
	} else {
		f, err := os.Open(e.Archive)
		if err != nil {
			return errors.Wrap(err, "opening archive failed")
		}
		defer f.Close()
		archive = f
	}

	telemetryToLog := func(ctx context.Context, td *mcbootstrap.TelemetryData) {
		if e.Telemetry {
			rc.logger.Info("extraction finished", "telemetry", td)
		}
	}

	cfg := mcbootstrap.NewConfig(
		mcbootstrap.WithContinueOnError(e.ContinueOnError),
		mcbootstrap.WithCreateDestination(e.CreateDestination),
		mcbootstrap.WithLogger(rc.logger),
		mcbootstrap.WithMaxExtractionSize(e.MaxExtractionSize),
		mcbootstrap.WithMaxFiles(e.MaxFiles),
		mcbootstrap.WithMaxInputSize(e.MaxInputSize),
		mcbootstrap.WithOverwrite(!e.NoOverwrite),
		mcbootstrap.WithTelemetryHook(telemetryToLog),
	)

	ctx := context.Background()
	if e.MaxExtractionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.MaxExtractionTime)*time.Second)
		defer cancel()
	}

	if err := mcbootstrap.Unpack(ctx, mcbootstrap.NewTargetDisk(), e.Destination, archive, cfg); err != nil {
		return errors.Wrap(err, "error during extraction")
	}
	return nil
}

// DecompressCmd decompresses a gzip stream into a single file.
type DecompressCmd struct {
	Input  string `arg:"" name:"input" help:"Gzip compressed input file. (\"-\" for STDIN)"`
	Output string `arg:"" name:"output" default:"." help:"Output file or directory."`
}

// Run decompresses the input into the output location.
func (d *DecompressCmd) Run(rc *runContext) error {
	var input io.Reader
	if d.Input == "-" {
		input = bufio.NewReader(os.Stdin)
	} else {
		f, err := os.Open(d.Input)
		if err != nil {
			return errors.Wrap(err, "opening input failed")
		}
		defer f.Close()
		input = f
	}

	cfg := mcbootstrap.NewConfig(
		mcbootstrap.WithLogger(rc.logger),
	)
	if err := mcbootstrap.DecompressGzip(context.Background(), mcbootstrap.NewTargetDisk(), d.Output, input, cfg); err != nil {
		return errors.Wrap(err, "error during decompression")
	}
	return nil
}

// Run is the entrypoint into mcbootstrap as a cli tool.
func Run(version, commit, date string) {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Description("Provision Minecraft servers and unpack their archives"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if err := ctx.Run(&runContext{logger: logger}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

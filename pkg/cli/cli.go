// Zaparoo Rig
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Rig.
//
// Zaparoo Rig is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Rig is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Rig.  If not, see <http://www.gnu.org/licenses/>.


package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/zaparoo-rig/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-rig/pkg/config"
	"github.com/ZaparooProject/zaparoo-rig/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-rig/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-rig/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-rig/pkg/managedfile"
	"github.com/ZaparooProject/zaparoo-rig/pkg/resources"
	"github.com/ZaparooProject/zaparoo-rig/pkg/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type Flags struct {
	Config  *string
	Debug   *bool
	Version *bool
}

// SetupFlags defines the global flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config: fs.String(
			"config",
			"",
			"path to config file (default $"+config.CfgEnv+" or the user config dir)",
		),
		Debug: fs.Bool(
			"debug",
			false,
			"enable debug logging",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

// NewResource returns the storage resource described by the [storage] config
// table. A host makes it a network resource reached over ssh.
//
//nolint:gocritic // config struct copied for immutability
func NewResource(s config.Storage) resources.Resource {
	if s.Host == "" {
		return resources.NewUSBMassStorage(s.Device)
	}
	return resources.NewNetworkUSBMassStorage(s.Host, s.Device, s.SSHOptions)
}

// NewDriver builds a storage driver from cfg. fs is where staged local
// files are read from.
func NewDriver(cfg *config.Instance, exec command.Executor, fs afero.Fs) (*storage.Driver, error) {
	res := NewResource(cfg.Storage())
	stager := managedfile.NewStager(fs, exec, cfg.CacheDir())

	drv, err := storage.NewDriver(res, exec, stager, cfg, storage.Options{
		Image:             cfg.StorageImage(),
		UnmountMaxRetries: cfg.Storage().UnmountMaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage driver: %w", err)
	}
	return drv, nil
}

// Main runs the command line with args, not including the program name, and
// returns the process exit code.
func Main(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: %s [flags] <copy|write|size> [args]\n", config.AppName)
		fs.PrintDefaults()
	}
	flags := SetupFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *flags.Version {
		_, _ = fmt.Fprintf(stdout, "Zaparoo Rig v%s\n", config.AppVersion)
		return exitOK
	}

	cfgPath := *flags.Config
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}

	osFs := afero.NewOsFs()
	cfg, err := config.NewConfig(osFs, cfgPath, config.BaseDefaults)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return exitError
	}
	if *flags.Debug {
		cfg.SetDebugLogging(true)
	}

	err = helpers.InitLogging(config.DefaultLogDir(), []io.Writer{zerolog.ConsoleWriter{Out: stderr}})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error initializing logging: %v\n", err)
		return exitError
	}
	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	runID := uuid.New().String()
	if err := telemetry.Init(cfg.SentryDSN(), config.AppVersion, runID); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}
	defer telemetry.Close()
	log.Logger = log.With().Str("run_id", runID).Logger()

	log.Info().Msgf("version: %s", config.AppVersion)
	log.Debug().Str("path", cfg.Path()).Msg("loaded config")
	if syncutil.DeadlockEnabled {
		log.Debug().Msg("deadlock detection enabled")
	}

	mode, err := storage.ParseWriteMode(cfg.WriteMode())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	drv, err := NewDriver(cfg, &command.RealExecutor{}, osFs)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &Runner{
		Provisioner: drv,
		Stdout:      stdout,
		Stderr:      stderr,
		WriteMode:   mode,
	}
	return r.exitCode(r.Execute(ctx, fs.Args()))
}

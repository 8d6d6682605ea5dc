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
	"strings"

	"github.com/ZaparooProject/zaparoo-rig/pkg/storage"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

var ErrUsage = errors.New("usage error")

// Provisioner is the set of storage operations exposed on the command line.
type Provisioner interface {
	CopyFiles(ctx context.Context, filenames []string, targetDir string, partition int) error
	WriteImage(ctx context.Context, filename string, opts storage.WriteOptions) error
	GetSize(ctx context.Context, partition int) (int64, error)
}

// Runner dispatches subcommands to a Provisioner.
type Runner struct {
	Provisioner Provisioner
	Stdout      io.Writer
	Stderr      io.Writer
	// WriteMode is the write subcommand's default -mode.
	WriteMode storage.WriteMode
}

// Execute runs the subcommand named by args[0].
func (r *Runner) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command (copy, write or size)", ErrUsage)
	}

	switch args[0] {
	case "copy":
		return r.copyFiles(ctx, args[1:])
	case "write":
		return r.writeImage(ctx, args[1:])
	case "size":
		return r.size(ctx, args[1:])
	default:
		return fmt.Errorf("%w: unknown command: %s", ErrUsage, args[0])
	}
}

func (r *Runner) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.Stderr)
	return fs
}

func (r *Runner) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return nil
}

func (r *Runner) copyFiles(ctx context.Context, args []string) error {
	fs := r.flagSet("copy")
	dir := fs.String("dir", ".", "target directory relative to the mount point")
	partition := fs.Int("partition", 0, "partition to mount (default 1)")
	if err := r.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: copy needs at least one file", ErrUsage)
	}

	err := r.Provisioner.CopyFiles(ctx, fs.Args(), *dir, *partition)
	if err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	_, _ = fmt.Fprintf(r.Stdout, "Copied %d file(s)\n", fs.NArg())
	return nil
}

func (r *Runner) writeImage(ctx context.Context, args []string) error {
	fs := r.flagSet("write")
	mode := fs.String("mode", r.WriteMode.String(), "write strategy: dd or bmaptool")
	partition := fs.Int("partition", 0, "write to this partition instead of the whole device")
	skip := fs.Int("skip", 0, "512-byte blocks to skip at the start of the image (dd only)")
	seek := fs.Int("seek", 0, "512-byte blocks to skip at the start of the device (dd only)")
	if err := r.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("%w: write takes at most one file", ErrUsage)
	}

	writeMode, err := storage.ParseWriteMode(*mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	err = r.Provisioner.WriteImage(ctx, fs.Arg(0), storage.WriteOptions{
		Mode:      writeMode,
		Partition: *partition,
		Skip:      *skip,
		Seek:      *seek,
	})
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	_, _ = fmt.Fprintln(r.Stdout, "Image written")
	return nil
}

func (r *Runner) size(ctx context.Context, args []string) error {
	fs := r.flagSet("size")
	partition := fs.Int("partition", 0, "partition to measure (default whole device)")
	human := fs.Bool("human", false, "print size in bytes with units instead of 512-byte blocks")
	if err := r.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments: %s", ErrUsage, strings.Join(fs.Args(), " "))
	}

	size, err := r.Provisioner.GetSize(ctx, *partition)
	if err != nil {
		return fmt.Errorf("size failed: %w", err)
	}

	if *human {
		//nolint:gosec // size is checked non-negative by GetSize
		_, _ = fmt.Fprintln(r.Stdout, humanize.IBytes(uint64(size)*storage.SectorSize))
	} else {
		_, _ = fmt.Fprintln(r.Stdout, size)
	}
	return nil
}

func (r *Runner) exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, ErrUsage):
		_, _ = fmt.Fprintf(r.Stderr, "Error: %v\n", err)
		return exitUsage
	default:
		log.Error().Err(err).Msg("command failed")
		_, _ = fmt.Fprintf(r.Stderr, "Error: %v\n", err)
		return exitError
	}
}

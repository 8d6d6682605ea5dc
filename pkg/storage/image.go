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

package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

// WriteMode selects the tool used to flash an image.
type WriteMode int

const (
	// DirectCopy streams the image with dd and syncs data before returning.
	DirectCopy WriteMode = iota
	// BlockMapCopy uses bmaptool, which skips unmapped blocks of sparse
	// images.
	BlockMapCopy
)

func (m WriteMode) String() string {
	switch m {
	case DirectCopy:
		return "dd"
	case BlockMapCopy:
		return "bmaptool"
	default:
		return "WriteMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseWriteMode parses "dd" or "bmaptool". An empty string is DirectCopy.
func ParseWriteMode(s string) (WriteMode, error) {
	switch s {
	case "", "dd":
		return DirectCopy, nil
	case "bmaptool":
		return BlockMapCopy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// WriteOptions configures WriteImage. The zero value writes the whole
// device with dd.
type WriteOptions struct {
	Mode WriteMode
	// Partition writes to a partition instead of the whole device if
	// non-zero.
	Partition int
	// Skip is the number of 512-byte blocks to skip at the start of the
	// image. DirectCopy only.
	Skip int
	// Seek is the number of 512-byte blocks to skip at the start of the
	// device. DirectCopy only.
	Seek int
}

// args returns the command line writing src to dst.
func (o WriteOptions) args(src, dst string) ([]string, error) {
	switch o.Mode {
	case DirectCopy:
		args := []string{
			"dd",
			"if=" + src,
			"of=" + dst,
			"status=progress",
		}
		if o.Skip != 0 || o.Seek != 0 {
			args = append(args,
				"bs=512",
				"skip="+strconv.Itoa(o.Skip),
				"seek="+strconv.Itoa(o.Seek),
			)
		} else {
			args = append(args, "bs=4M")
		}
		return append(args, "conv=fdatasync"), nil
	case BlockMapCopy:
		if o.Skip != 0 || o.Seek != 0 {
			return nil, ErrSkipSeekUnsupported
		}
		return []string{"bmaptool", "copy", src, dst}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, o.Mode)
	}
}

func (o WriteOptions) validate() error {
	if o.Partition < 0 || o.Skip < 0 || o.Seek < 0 {
		return fmt.Errorf(
			"%w: partition %d, skip %d, seek %d",
			ErrInvalidArgument, o.Partition, o.Skip, o.Seek,
		)
	}
	// build against placeholders so a bad mode fails before anything runs
	_, err := o.args("", "")
	return err
}

// WriteImage flashes filename onto the device. With no filename, the
// driver's configured image is used.
//
// The device must report a non-zero size within MediumTimeout after the
// image is staged, otherwise WriteImage fails with ErrTimeout.
func (d *Driver) WriteImage(ctx context.Context, filename string, opts WriteOptions) error {
	fields := map[string]any{
		"filename":  filename,
		"mode":      opts.Mode.String(),
		"partition": opts.Partition,
	}
	return d.step("write_image", fields, func() error {
		if _, err := d.devicePath(); err != nil {
			return err
		}
		if err := opts.validate(); err != nil {
			return err
		}

		if filename == "" && d.image != "" {
			path, err := d.images.ImagePath(d.image)
			if err != nil {
				return fmt.Errorf("failed to resolve image %s: %w", d.image, err)
			}
			filename = path
		}
		if filename == "" {
			return ErrMissingFilename
		}

		remotePath, err := d.stager.Stage(ctx, filename, d.res)
		if err != nil {
			return fmt.Errorf("failed to stage %s: %w", filename, err)
		}

		if err := d.waitForMedium(ctx); err != nil {
			return err
		}

		devPath, err := d.devicePath()
		if err != nil {
			return err
		}
		target := devPath
		if opts.Partition > 0 {
			target = partitionNode(devPath, opts.Partition)
		}

		args, err := opts.args(remotePath, target)
		if err != nil {
			return err
		}

		log.Info().Msgf("writing %s to %s with %s", remotePath, target, opts.Mode)
		_, err = d.run(ctx, args[0], args[1:]...)
		return err
	})
}

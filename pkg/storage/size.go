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
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

const (
	// devNodePrefix is stripped from the device path to get its sysfs name.
	devNodePrefix = "/dev/"
	// SectorSize is the unit of the sysfs size attribute.
	SectorSize = 512
)

// GetSize returns the size of the device, or of a partition if partition is
// non-zero, in 512-byte sectors as reported by sysfs.
func (d *Driver) GetSize(ctx context.Context, partition int) (int64, error) {
	var size int64
	err := d.step("get_size", map[string]any{"partition": partition}, func() error {
		var err error
		size, err = d.size(ctx, partition)
		return err
	})
	return size, err
}

// size queries the sysfs size attribute. An empty or garbled attribute is
// reported as ErrUnparseableSize.
func (d *Driver) size(ctx context.Context, partition int) (int64, error) {
	devPath, err := d.devicePath()
	if err != nil {
		return 0, err
	}
	if len(devPath) <= len(devNodePrefix) {
		return 0, fmt.Errorf("%w: device path %q", ErrInvalidArgument, devPath)
	}
	if partition < 0 {
		return 0, fmt.Errorf("%w: partition %d", ErrInvalidArgument, partition)
	}

	name := devPath[len(devNodePrefix):]
	if partition > 0 {
		name += strconv.Itoa(partition)
	}

	out, err := d.run(ctx, "cat", fmt.Sprintf("/sys/class/block/%s/size", name))
	if err != nil {
		return 0, err
	}

	size, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableSize, out)
	}

	log.Debug().
		Str("device", name).
		Int64("sectors", size).
		Str("size", humanize.IBytes(uint64(size)*SectorSize)).
		Msg("read device size")
	return size, nil
}

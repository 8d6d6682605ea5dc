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
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

// CopyFiles copies filenames, in order, into targetDir on the given
// partition, then unmounts it. targetDir is relative to the partition root
// ("" or "." is the root). A partition of 0 means DefaultPartition.
//
// If staging or copying a file fails the remaining files are skipped and the
// partition is left mounted.
func (d *Driver) CopyFiles(ctx context.Context, filenames []string, targetDir string, partition int) error {
	fields := map[string]any{
		"filenames":  filenames,
		"target_dir": targetDir,
		"partition":  partition,
	}
	return d.step("copy_files", fields, func() error {
		devPath, err := d.devicePath()
		if err != nil {
			return err
		}

		if partition == 0 {
			partition = DefaultPartition
		}
		if partition < 0 {
			return fmt.Errorf("%w: partition %d", ErrInvalidArgument, partition)
		}

		node := partitionNode(devPath, partition)
		mountPoint := mountPointFor(node)
		targetPath := path.Join(mountPoint, targetDir)
		if targetPath != mountPoint && !strings.HasPrefix(targetPath, mountPoint+"/") {
			return fmt.Errorf("%w: target dir %q escapes %s", ErrInvalidArgument, targetDir, mountPoint)
		}

		if err := d.mount(ctx, node, mountPoint); err != nil {
			return err
		}
		log.Debug().Msgf("mount %s to %s", node, mountPoint)

		for _, f := range filenames {
			remotePath, err := d.stager.Stage(ctx, f, d.res)
			if err != nil {
				return fmt.Errorf("failed to stage %s: %w", f, err)
			}

			log.Debug().Msgf("copy %s to %s", remotePath, targetPath)
			if _, err := d.run(ctx, "cp", remotePath, "-t", targetPath); err != nil {
				return err
			}
		}

		return d.unmount(ctx, node)
	})
}

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
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/ZaparooProject/zaparoo-rig/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

const (
	// MediaDir is where pmount mounts partitions (a pmount compile-time
	// option).
	MediaDir = "/media"

	exitAlreadyMounted = 4
	exitBusy           = 5
)

// verdict is what to do with a failed command.
type verdict int

const (
	propagate verdict = iota
	absorb
	retry
)

// exitRule matches a command failure by exit code and, optionally, its
// captured output.
type exitRule struct {
	output  func(string) bool
	code    int
	verdict verdict
}

// classify returns the verdict of the first rule matching err. Failures that
// are not exit errors, or match no rule, propagate.
func classify(err error, rules []exitRule) verdict {
	var exitErr *command.ExitError
	if !errors.As(err, &exitErr) {
		return propagate
	}
	for _, r := range rules {
		if exitErr.Code != r.code {
			continue
		}
		if r.output != nil && !r.output(exitErr.Output) {
			continue
		}
		return r.verdict
	}
	return propagate
}

// pmount exits 4 for several reasons; only "already mounted here" is benign.
func mountRules(mountPoint string) []exitRule {
	return []exitRule{{
		code:    exitAlreadyMounted,
		output:  func(out string) bool { return strings.Contains(out, mountPoint) },
		verdict: absorb,
	}}
}

var unmountRules = []exitRule{{
	code:    exitBusy,
	verdict: retry,
}}

// partitionNode returns the device node of a partition. This is textual
// concatenation: /dev/sdb + 1 = /dev/sdb1.
func partitionNode(devicePath string, partition int) string {
	return devicePath + strconv.Itoa(partition)
}

// mountPointFor returns where pmount mounts node.
func mountPointFor(node string) string {
	return path.Join(MediaDir, path.Base(node))
}

// mount mounts node with pmount. A partition already mounted at mountPoint
// counts as success.
func (d *Driver) mount(ctx context.Context, node, mountPoint string) error {
	log.Debug().Str("device", node).Str("mount_point", mountPoint).Msg("mounting partition")

	_, err := d.run(ctx, "pmount", node)
	if err == nil {
		return nil
	}
	if classify(err, mountRules(mountPoint)) != absorb {
		return err
	}

	log.Debug().Str("device", node).Str("mount_point", mountPoint).Msg("partition already mounted")
	return nil
}

// unmount unmounts node with pumount, retrying every UnmountBusyWait while
// the target is busy. Retries are unbounded unless UnmountMaxRetries is set.
func (d *Driver) unmount(ctx context.Context, node string) error {
	for attempt := 1; ; attempt++ {
		_, err := d.run(ctx, "pumount", node)
		if err == nil {
			return nil
		}
		if classify(err, unmountRules) != retry {
			return err
		}
		if d.unmountMaxRetries > 0 && attempt > d.unmountMaxRetries {
			return fmt.Errorf("%w: %s after %d attempts: %w", ErrUnmountBusy, node, attempt, err)
		}

		log.Info().Msgf("umount: %s: target is busy; wait for %s", node, UnmountBusyWait)
		if err := d.sleep(ctx, UnmountBusyWait); err != nil {
			return err
		}
	}
}

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

// Package storage provisions a USB mass storage device for a test rig: it
// copies files onto a mounted partition and flashes whole-disk images onto
// the raw device.
//
// Every operation reads the device path from its resource on entry and fails
// with ErrDeviceUnavailable if it is absent. Operations are sequential and
// hold no locks; callers serialize access to a given device.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-rig/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-rig/pkg/resources"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// MediumTimeout bounds how long WriteImage waits for the device to
	// report a non-zero size.
	MediumTimeout = 10 * time.Second
	// MediumPollInterval is the delay between size queries while waiting.
	MediumPollInterval = 500 * time.Millisecond
	// UnmountBusyWait is the delay between pumount attempts while the
	// target is busy.
	UnmountBusyWait = 3 * time.Second
	// DefaultPartition is the partition CopyFiles targets when none is given.
	DefaultPartition = 1
)

// Stager makes a local file reachable from a resource's execution context
// and returns the path it is reachable at.
type Stager interface {
	Stage(ctx context.Context, localPath string, res resources.Resource) (string, error)
}

// ImageResolver resolves a configured image name to a file path.
type ImageResolver interface {
	ImagePath(name string) (string, error)
}

// Options configures a Driver.
type Options struct {
	// Clock drives every sleep and deadline. Defaults to the real clock.
	Clock clockwork.Clock
	// Image is the configured image name WriteImage falls back to when no
	// filename is given. Empty means none.
	Image string `validate:"omitempty,printascii"`
	// UnmountMaxRetries bounds busy-unmount retries. 0 retries forever.
	UnmountMaxRetries int `validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Driver runs provisioning operations against one storage resource.
type Driver struct {
	res               resources.Resource
	exec              command.Executor
	stager            Stager
	images            ImageResolver
	clock             clockwork.Clock
	image             string
	unmountMaxRetries int
}

// NewDriver returns a Driver for res. images may be nil if opts.Image is
// empty.
func NewDriver(
	res resources.Resource,
	exec command.Executor,
	stager Stager,
	images ImageResolver,
	opts Options,
) (*Driver, error) {
	if res == nil || exec == nil || stager == nil {
		return nil, fmt.Errorf("%w: resource, executor and stager are required", ErrInvalidArgument)
	}
	if err := validate.Struct(&opts); err != nil {
		return nil, fmt.Errorf("%w: driver options: %w", ErrInvalidArgument, err)
	}
	if opts.Image != "" && images == nil {
		return nil, fmt.Errorf("%w: image %q configured without an image resolver", ErrInvalidArgument, opts.Image)
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Driver{
		res:               res,
		exec:              exec,
		stager:            stager,
		images:            images,
		clock:             clock,
		image:             opts.Image,
		unmountMaxRetries: opts.UnmountMaxRetries,
	}, nil
}

// devicePath returns the resource's current device path. It is never cached
// because the device can come and go between calls.
func (d *Driver) devicePath() (string, error) {
	path := d.res.Path()
	if path == "" {
		return "", ErrDeviceUnavailable
	}
	return path, nil
}

// run executes name with args behind the resource's command prefix.
func (d *Driver) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	name, args = command.WithPrefix(d.res.CommandPrefix(), name, args...)
	//nolint:wrapcheck // exit errors are propagated unchanged
	return d.exec.Output(ctx, name, args...)
}

// sleep waits for dur on the driver's clock, or until ctx is done.
func (d *Driver) sleep(ctx context.Context, dur time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("interrupted while waiting: %w", ctx.Err())
	case <-d.clock.After(dur):
		return nil
	}
}

// step logs the start and end of a public operation along with its
// duration and result.
func (d *Driver) step(name string, fields map[string]any, fn func() error) error {
	start := d.clock.Now()
	log.Info().Str("step", name).Fields(fields).Msg("step start")

	err := fn()

	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = log.Info()
	case errors.Is(err, context.Canceled):
		ev = log.Warn().Err(err)
	default:
		ev = log.Error().Err(err)
	}
	ev.Str("step", name).
		Dur("duration", d.clock.Since(start)).
		Msg("step end")

	return err
}

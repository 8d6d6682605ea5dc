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

	"github.com/rs/zerolog/log"
)

// waitForMedium polls the device size every MediumPollInterval until it is
// positive, failing with ErrTimeout once MediumTimeout has passed.
func (d *Driver) waitForMedium(ctx context.Context) error {
	deadline := d.clock.Now().Add(MediumTimeout)

	for d.clock.Now().Before(deadline) {
		size, err := d.size(ctx, 0)
		switch {
		case errors.Is(err, ErrUnparseableSize):
			// sysfs briefly reports an empty size as the medium comes up
			log.Debug().Err(err).Msg("medium not ready")
		case err != nil:
			return err
		case size > 0:
			return nil
		}

		if err := d.sleep(ctx, MediumPollInterval); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w while waiting for medium", ErrTimeout)
}

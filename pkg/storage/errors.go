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

import "errors"

// Failures of an external tool are returned as *command.ExitError, carrying
// the exit code and captured output verbatim.
var (
	ErrDeviceUnavailable   = errors.New("storage device is not available")
	ErrTimeout             = errors.New("timeout")
	ErrInvalidMode         = errors.New("invalid write mode")
	ErrMissingFilename     = errors.New("write_image requires a filename")
	ErrUnparseableSize     = errors.New("device size is not parseable")
	ErrUnmountBusy         = errors.New("device still busy")
	ErrSkipSeekUnsupported = errors.New("bmaptool does not support skip or seek")
	ErrInvalidArgument     = errors.New("invalid argument")
)

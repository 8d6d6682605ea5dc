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

package config

import (
	"fmt"
	"path/filepath"
	"slices"
)

func (c *Instance) Storage() Storage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.vals.Storage
	s.SSHOptions = slices.Clone(s.SSHOptions)
	return s
}

func (c *Instance) StorageImage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Storage.Image
}

func (c *Instance) WriteMode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Storage.WriteMode == "" {
		return WriteModeDD
	}
	return c.vals.Storage.WriteMode
}

// ImagePath resolves a named image from the [images] table to a file path.
// Relative paths are resolved against the directory of the config file.
func (c *Instance) ImagePath(name string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path, ok := c.vals.Images[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownImage, name)
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(c.cfgPath), path)
	}
	return path, nil
}

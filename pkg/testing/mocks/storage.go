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

package mocks

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/zaparoo-rig/pkg/resources"
	"github.com/stretchr/testify/mock"
)

// MockResource is a mutable resources.Resource. Path is read on every call,
// so tests can unplug the device by setting DevicePath to "".
type MockResource struct {
	DevicePath string
	Hostname   string
	Prefix     []string
	SSH        []string
}

func (r *MockResource) Path() string            { return r.DevicePath }
func (r *MockResource) CommandPrefix() []string { return r.Prefix }
func (r *MockResource) Host() string            { return r.Hostname }
func (r *MockResource) SSHCommand() []string    { return r.SSH }

// MockStager is a testify mock for storage.Stager.
type MockStager struct {
	mock.Mock
}

// Stage mocks making localPath reachable from the resource's execution
// context.
func (m *MockStager) Stage(ctx context.Context, localPath string, res resources.Resource) (string, error) {
	args := m.Called(ctx, localPath, res)
	if err := args.Error(1); err != nil {
		return "", fmt.Errorf("mock stager stage failed: %w", err)
	}
	return args.String(0), nil
}

// MockImageResolver is a testify mock for storage.ImageResolver.
type MockImageResolver struct {
	mock.Mock
}

// ImagePath mocks resolving a configured image name to a file path.
func (m *MockImageResolver) ImagePath(name string) (string, error) {
	args := m.Called(name)
	if err := args.Error(1); err != nil {
		return "", fmt.Errorf("mock image resolver failed: %w", err)
	}
	return args.String(0), nil
}

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

// Package resources describes the USB mass storage devices a rig provisions
// and how commands reach them.
package resources

import (
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Resource is a block storage device and the execution context that can
// reach it. Path is read on every call; an empty path means the device is
// not currently available.
type Resource interface {
	// Path returns the block-special device node, or "" if unavailable.
	Path() string
	// CommandPrefix returns the tokens prepended to every command run
	// against the device. Empty for local execution.
	CommandPrefix() []string
	// Host returns the remote host the device is attached to, or "" if the
	// device is local.
	Host() string
	// SSHCommand returns the ssh invocation, without a host, used to reach
	// Host. File transfers must use it too. Empty for local execution.
	SSHCommand() []string
}

// USBMassStorage is a USB mass storage device attached to the local machine.
type USBMassStorage struct {
	// probe reports whether a node is currently a block device. Defaults to
	// IsBlockDevice.
	probe      func(string) bool
	DevicePath string
}

// NewUSBMassStorage returns a local resource for the given device node.
func NewUSBMassStorage(devicePath string) *USBMassStorage {
	return &USBMassStorage{
		DevicePath: devicePath,
		probe:      IsBlockDevice,
	}
}

// Path returns the device node if it currently exists as a block device.
func (u *USBMassStorage) Path() string {
	if u.DevicePath == "" {
		return ""
	}
	probe := u.probe
	if probe == nil {
		probe = IsBlockDevice
	}
	if !probe(u.DevicePath) {
		return ""
	}
	return u.DevicePath
}

func (*USBMassStorage) CommandPrefix() []string { return nil }

func (*USBMassStorage) Host() string { return "" }

func (*USBMassStorage) SSHCommand() []string { return nil }

// IsBlockDevice reports whether path is a block-special file.
func IsBlockDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		log.Debug().Str("path", path).Err(err).Msg("cannot stat device")
		return false
	}

	stat, ok := info.Sys().(*unix.Stat_t)
	if !ok {
		log.Debug().Str("path", path).Msg("cannot get unix.Stat_t")
		return false
	}

	return stat.Mode&unix.S_IFMT == unix.S_IFBLK
}

// NetworkUSBMassStorage is a USB mass storage device attached to a remote
// host reachable over ssh.
type NetworkUSBMassStorage struct {
	Hostname   string
	DevicePath string
	SSHOptions []string
}

// NewNetworkUSBMassStorage returns a resource for a device on a remote host.
func NewNetworkUSBMassStorage(host, devicePath string, sshOptions []string) *NetworkUSBMassStorage {
	return &NetworkUSBMassStorage{
		Hostname:   host,
		DevicePath: devicePath,
		SSHOptions: sshOptions,
	}
}

func (n *NetworkUSBMassStorage) Path() string { return n.DevicePath }

func (n *NetworkUSBMassStorage) Host() string { return n.Hostname }

// SSHCommand returns ssh with the transport options and the configured
// SSHOptions.
func (n *NetworkUSBMassStorage) SSHCommand() []string {
	cmd := []string{
		"ssh", "-x",
		"-o", "LogLevel=ERROR",
		"-o", "PasswordAuthentication=no",
	}
	return append(cmd, n.SSHOptions...)
}

// CommandPrefix returns the ssh invocation that routes a command to the
// remote host.
func (n *NetworkUSBMassStorage) CommandPrefix() []string {
	return append(n.SSHCommand(), n.Hostname, "--")
}

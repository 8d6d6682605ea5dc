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

// Package managedfile makes local files reachable from the execution context
// of a resource, copying them to its host when the resource is remote.
package managedfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os/user"
	"path"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/zaparoo-rig/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-rig/pkg/resources"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrNotAFile = errors.New("not a regular file")

// Stager stages files for resources. Remote copies are content-addressed
// under <cacheDir>/<user>/<sha256>/ on the resource's host, so a file that
// is already there is not transferred again.
type Stager struct {
	fs       afero.Fs
	exec     command.Executor
	cacheDir string
	user     string
}

// NewStager returns a Stager reading local files from fs and running
// commands with exec.
func NewStager(fs afero.Fs, exec command.Executor, cacheDir string) *Stager {
	username := "rig"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	return &Stager{
		fs:       fs,
		exec:     exec,
		cacheDir: cacheDir,
		user:     username,
	}
}

// Stage makes localPath reachable from res and returns the path to use in
// commands run against res.
func (s *Stager) Stage(ctx context.Context, localPath string, res resources.Resource) (string, error) {
	absPath, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", localPath, err)
	}

	info, err := s.fs.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", absPath, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotAFile, absPath)
	}

	host := res.Host()
	if host == "" {
		return absPath, nil
	}

	hash, err := s.hash(absPath)
	if err != nil {
		return "", err
	}
	remoteDir := path.Join(s.cacheDir, s.user, hash)
	remotePath := path.Join(remoteDir, filepath.Base(absPath))

	prefix := res.CommandPrefix()
	name, args := command.WithPrefix(prefix, "test", "-r", remotePath)
	err = s.exec.Run(ctx, name, args...)
	if err == nil {
		log.Debug().Str("host", host).Str("path", remotePath).Msg("file already staged")
		return remotePath, nil
	}
	if code, ok := command.ExitCode(err); !ok || code != 1 {
		return "", fmt.Errorf("failed to check %s on %s: %w", remotePath, host, err)
	}

	name, args = command.WithPrefix(prefix, "mkdir", "-p", remoteDir)
	if err := s.exec.Run(ctx, name, args...); err != nil {
		return "", fmt.Errorf("failed to create %s on %s: %w", remoteDir, host, err)
	}

	log.Info().Msgf("staging %s to %s:%s", absPath, host, remotePath)
	rsyncArgs := []string{"--chmod=F444"}
	if ssh := res.SSHCommand(); len(ssh) > 0 {
		rsyncArgs = append(rsyncArgs, "-e", strings.Join(ssh, " "))
	}
	rsyncArgs = append(rsyncArgs, absPath, host+":"+remotePath)
	err = s.exec.Run(ctx, "rsync", rsyncArgs...)
	if err != nil {
		return "", fmt.Errorf("failed to copy %s to %s: %w", absPath, host, err)
	}

	return remotePath, nil
}

func (s *Stager) hash(p string) (string, error) {
	f, err := s.fs.Open(p)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

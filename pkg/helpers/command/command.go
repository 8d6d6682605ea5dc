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

// Package command provides an abstraction over exec.Command for testability.
package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ZaparooProject/zaparoo-rig/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Executor runs command lines, locally or behind a remote execution prefix.
// This allows commands to be mocked in tests without executing real system
// commands.
type Executor interface {
	// Run executes a command and waits for it to complete.
	// Returns an *ExitError if the command exits with non-zero status.
	Run(ctx context.Context, name string, args ...string) error

	// Output runs a command and returns its stdout. Returns an *ExitError
	// carrying the exit code and both output streams, interleaved, if the
	// command exits with non-zero status.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExitError is returned when a command ran but exited with non-zero status.
type ExitError struct {
	Args   []string
	Output string
	Code   int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf(
		"command %q returned non-zero exit status %d: %s",
		strings.Join(e.Args, " "),
		e.Code,
		strings.TrimSpace(e.Output),
	)
}

// ExitCode returns the exit code carried by err if it is (or wraps) an
// *ExitError.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	return exitErr.Code, true
}

// WithPrefix prepends prefix to the command line name+args and returns the
// resulting name and args, ready to pass to an Executor.
func WithPrefix(prefix []string, name string, args ...string) (string, []string) {
	if len(prefix) == 0 {
		return name, args
	}
	argv := make([]string, 0, len(prefix)+1+len(args))
	argv = append(argv, prefix...)
	argv = append(argv, name)
	argv = append(argv, args...)
	return argv[0], argv[1:]
}

// RealExecutor uses actual exec.Command to execute system commands.
// This is the production implementation used in normal operation.
type RealExecutor struct{}

// Run executes a system command using exec.CommandContext.
func (r *RealExecutor) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.Output(ctx, name, args...)
	return err
}

// Output runs a command and returns its stdout. Stdout and stderr lines are
// logged at debug level. On a non-zero exit the ExitError carries both
// streams, interleaved.
func (*RealExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	argv := append([]string{name}, args...)
	log.Debug().Strs("argv", argv).Msg("running command")

	var stdout bytes.Buffer
	combined := &lockedBuffer{}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = io.MultiWriter(&stdout, combined)
	cmd.Stderr = combined

	err := cmd.Run()

	out := combined.Bytes()
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		log.Debug().Str("cmd", name).Msg(scanner.Text())
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &ExitError{
				Args:   argv,
				Code:   exitErr.ExitCode(),
				Output: string(out),
			}
		}
		return stdout.Bytes(), fmt.Errorf("failed to run %s: %w", name, err)
	}

	return stdout.Bytes(), nil
}

// lockedBuffer is written from the stdout and stderr copy goroutines.
type lockedBuffer struct {
	buf bytes.Buffer
	mu  syncutil.RWMutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	//nolint:wrapcheck // bytes.Buffer writes only fail on OOM panic
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bytes.Clone(b.buf.Bytes())
}

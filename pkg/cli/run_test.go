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


package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ZaparooProject/zaparoo-rig/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvisioner struct {
	mock.Mock
}

func (m *mockProvisioner) CopyFiles(ctx context.Context, filenames []string, targetDir string, partition int) error {
	args := m.Called(ctx, filenames, targetDir, partition)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return args.Error(0)
}

func (m *mockProvisioner) WriteImage(ctx context.Context, filename string, opts storage.WriteOptions) error {
	args := m.Called(ctx, filename, opts)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return args.Error(0)
}

func (m *mockProvisioner) GetSize(ctx context.Context, partition int) (int64, error) {
	args := m.Called(ctx, partition)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return args.Get(0).(int64), args.Error(1)
}

func newTestRunner() (*Runner, *mockProvisioner, *bytes.Buffer) {
	p := &mockProvisioner{}
	var stdout bytes.Buffer
	return &Runner{
		Provisioner: p,
		Stdout:      &stdout,
		Stderr:      &bytes.Buffer{},
		WriteMode:   storage.DirectCopy,
	}, p, &stdout
}

func TestExecute_Usage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"format"}},
		{name: "copy without files", args: []string{"copy", "-dir", "boot"}},
		{name: "copy unknown flag", args: []string{"copy", "-force", "a.txt"}},
		{name: "write two files", args: []string{"write", "a.img", "b.img"}},
		{name: "write bad mode", args: []string{"write", "-mode", "cat", "a.img"}},
		{name: "write bad skip", args: []string{"write", "-skip", "two", "a.img"}},
		{name: "size extra argument", args: []string{"size", "sdb"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, p, _ := newTestRunner()

			err := r.Execute(context.Background(), tt.args)

			require.ErrorIs(t, err, ErrUsage)
			assert.Equal(t, exitUsage, r.exitCode(err))
			assert.Empty(t, p.Calls)
		})
	}
}

func TestExecute_Copy(t *testing.T) {
	t.Parallel()

	r, p, stdout := newTestRunner()
	p.On("CopyFiles", mock.Anything, []string{"config.txt", "cmdline.txt"}, "boot", 2).Return(nil).Once()

	err := r.Execute(context.Background(), []string{"copy", "-dir", "boot", "-partition", "2", "config.txt", "cmdline.txt"})

	require.NoError(t, err)
	assert.Equal(t, "Copied 2 file(s)\n", stdout.String())
	p.AssertExpectations(t)
}

func TestExecute_CopyDefaults(t *testing.T) {
	t.Parallel()

	r, p, _ := newTestRunner()
	p.On("CopyFiles", mock.Anything, []string{"a.txt"}, ".", 0).Return(nil).Once()

	require.NoError(t, r.Execute(context.Background(), []string{"copy", "a.txt"}))
	p.AssertExpectations(t)
}

func TestExecute_Write(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		args     []string
		mode     storage.WriteMode
		want     storage.WriteOptions
	}{
		{
			name:     "default mode",
			args:     []string{"write", "os.img"},
			filename: "os.img",
			mode:     storage.DirectCopy,
			want:     storage.WriteOptions{Mode: storage.DirectCopy},
		},
		{
			name:     "configured default mode",
			args:     []string{"write", "os.img"},
			filename: "os.img",
			mode:     storage.BlockMapCopy,
			want:     storage.WriteOptions{Mode: storage.BlockMapCopy},
		},
		{
			name:     "explicit mode wins",
			args:     []string{"write", "-mode", "dd", "os.img"},
			filename: "os.img",
			mode:     storage.BlockMapCopy,
			want:     storage.WriteOptions{Mode: storage.DirectCopy},
		},
		{
			name: "configured image",
			args: []string{"write", "-partition", "1", "-skip", "2", "-seek", "2048"},
			mode: storage.DirectCopy,
			want: storage.WriteOptions{Mode: storage.DirectCopy, Partition: 1, Skip: 2, Seek: 2048},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, p, stdout := newTestRunner()
			r.WriteMode = tt.mode
			p.On("WriteImage", mock.Anything, tt.filename, tt.want).Return(nil).Once()

			err := r.Execute(context.Background(), tt.args)

			require.NoError(t, err)
			assert.Equal(t, "Image written\n", stdout.String())
			p.AssertExpectations(t)
		})
	}
}

func TestExecute_Size(t *testing.T) {
	t.Parallel()

	t.Run("blocks", func(t *testing.T) {
		t.Parallel()

		r, p, stdout := newTestRunner()
		p.On("GetSize", mock.Anything, 0).Return(int64(62333952), nil).Once()

		require.NoError(t, r.Execute(context.Background(), []string{"size"}))
		assert.Equal(t, "62333952\n", stdout.String())
	})

	t.Run("human", func(t *testing.T) {
		t.Parallel()

		r, p, stdout := newTestRunner()
		p.On("GetSize", mock.Anything, 1).Return(int64(2097152), nil).Once()

		require.NoError(t, r.Execute(context.Background(), []string{"size", "-human", "-partition", "1"}))
		assert.Equal(t, "1.0 GiB\n", stdout.String())
	})
}

func TestExecute_OperationFailure(t *testing.T) {
	t.Parallel()

	r, p, stdout := newTestRunner()
	p.On("WriteImage", mock.Anything, "", mock.Anything).Return(storage.ErrTimeout).Once()

	err := r.Execute(context.Background(), []string{"write"})

	require.ErrorIs(t, err, storage.ErrTimeout)
	assert.NotErrorIs(t, err, ErrUsage)
	assert.Equal(t, exitError, r.exitCode(err))
	assert.Empty(t, stdout.String())
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRunner()

	assert.Equal(t, exitOK, r.exitCode(nil))
	assert.Equal(t, exitError, r.exitCode(errors.New("boom")))
	assert.Equal(t, exitOK, r.exitCode(r.Execute(context.Background(), []string{"size", "-h"})))
}

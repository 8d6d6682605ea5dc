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
	"strconv"
	"testing"

	"github.com/ZaparooProject/zaparoo-rig/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCopyFiles_MountCopyUnmount(t *testing.T) {
	t.Parallel()

	for _, count := range []int{0, 1, 3} {
		t.Run(strconv.Itoa(count)+"_files", func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, Options{})
			env.cmd.On("Output", mock.Anything, mock.Anything, mock.Anything).Return([]byte{}, nil)

			var files []string
			want := [][]string{{"pmount", "/dev/sdb1"}}
			for i := range count {
				local := fmt.Sprintf("/home/rig/file%d.txt", i)
				remote := fmt.Sprintf("/var/cache/rig/file%d.txt", i)
				files = append(files, local)
				env.stager.On("Stage", mock.Anything, local, env.res).Return(remote, nil).Once()
				want = append(want, []string{"cp", remote, "-t", "/media/sdb1"})
			}
			want = append(want, []string{"pumount", "/dev/sdb1"})

			err := env.driver.CopyFiles(context.Background(), files, ".", 1)

			require.NoError(t, err)
			assert.Equal(t, want, env.commands())
			env.stager.AssertExpectations(t)
		})
	}
}

func TestCopyFiles_DefaultPartitionAndTargetDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		targetDir  string
		wantTarget string
		partition  int
		wantNode   string
	}{
		{
			name:       "default partition",
			partition:  0,
			targetDir:  "",
			wantNode:   "/dev/sdb1",
			wantTarget: "/media/sdb1",
		},
		{
			name:       "second partition subdirectory",
			partition:  2,
			targetDir:  "boot/overlays",
			wantNode:   "/dev/sdb2",
			wantTarget: "/media/sdb2/boot/overlays",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, Options{})
			env.cmd.On("Output", mock.Anything, mock.Anything, mock.Anything).Return([]byte{}, nil)
			env.stager.On("Stage", mock.Anything, "config.txt", env.res).Return("/tmp/config.txt", nil)

			err := env.driver.CopyFiles(context.Background(), []string{"config.txt"}, tt.targetDir, tt.partition)

			require.NoError(t, err)
			assert.Equal(t, [][]string{
				{"pmount", tt.wantNode},
				{"cp", "/tmp/config.txt", "-t", tt.wantTarget},
				{"pumount", tt.wantNode},
			}, env.commands())
		})
	}
}

func TestCopyFiles_InvalidArguments(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})

	err := env.driver.CopyFiles(context.Background(), []string{"a"}, "../../etc", 1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = env.driver.CopyFiles(context.Background(), []string{"a"}, ".", -1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	assert.Empty(t, env.cmd.Calls)
}

func TestCopyFiles_CommandPrefix(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	env.res.Prefix = []string{"ssh", "rig1", "--"}
	env.cmd.On("Output", mock.Anything, "ssh", mock.Anything).Return([]byte{}, nil)
	env.stager.On("Stage", mock.Anything, "a.txt", env.res).Return("/var/cache/a.txt", nil)

	err := env.driver.CopyFiles(context.Background(), []string{"a.txt"}, ".", 1)

	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"ssh", "rig1", "--", "pmount", "/dev/sdb1"},
		{"ssh", "rig1", "--", "cp", "/var/cache/a.txt", "-t", "/media/sdb1"},
		{"ssh", "rig1", "--", "pumount", "/dev/sdb1"},
	}, env.commands())
}

func TestCopyFiles_AlreadyMounted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	env.cmd.On("Output", mock.Anything, "pmount", []string{"/dev/sdb1"}).
		Return([]byte{}, helpers.ExitErr(4, "Error: device /dev/sdb1 is already mounted to /media/sdb1"))
	env.cmd.On("Output", mock.Anything, mock.Anything, mock.Anything).Return([]byte{}, nil)
	env.stager.On("Stage", mock.Anything, "a.txt", env.res).Return("/tmp/a.txt", nil)

	err := env.driver.CopyFiles(context.Background(), []string{"a.txt"}, ".", 1)

	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"pmount", "/dev/sdb1"},
		{"cp", "/tmp/a.txt", "-t", "/media/sdb1"},
		{"pumount", "/dev/sdb1"},
	}, env.commands())
}

func TestCopyFiles_MountFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	mountErr := helpers.ExitErr(4, "Error: device /dev/sdb1 is not removable", "pmount", "/dev/sdb1")
	env.cmd.On("Output", mock.Anything, "pmount", []string{"/dev/sdb1"}).Return([]byte{}, mountErr)

	err := env.driver.CopyFiles(context.Background(), []string{"a.txt"}, ".", 1)

	assert.Same(t, mountErr, err)
	assert.Len(t, env.commands(), 1)
	env.stager.AssertNotCalled(t, "Stage", mock.Anything, mock.Anything, mock.Anything)
}

func TestCopyFiles_FailureLeavesMounted(t *testing.T) {
	t.Parallel()

	t.Run("staging failure", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, Options{})
		env.cmd.On("Output", mock.Anything, mock.Anything, mock.Anything).Return([]byte{}, nil)
		env.stager.On("Stage", mock.Anything, "a.txt", env.res).Return("/tmp/a.txt", nil)
		env.stager.On("Stage", mock.Anything, "b.txt", env.res).Return("", errors.New("rsync failed"))

		err := env.driver.CopyFiles(context.Background(), []string{"a.txt", "b.txt", "c.txt"}, ".", 1)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "rsync failed")
		assert.Equal(t, [][]string{
			{"pmount", "/dev/sdb1"},
			{"cp", "/tmp/a.txt", "-t", "/media/sdb1"},
		}, env.commands())
		env.stager.AssertNotCalled(t, "Stage", mock.Anything, "c.txt", mock.Anything)
	})

	t.Run("copy failure", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, Options{})
		cpErr := helpers.ExitErr(1, "cp: cannot create regular file: No space left on device")
		env.cmd.On("Output", mock.Anything, "pmount", mock.Anything).Return([]byte{}, nil)
		env.cmd.On("Output", mock.Anything, "cp", mock.Anything).Return([]byte{}, cpErr)
		env.stager.On("Stage", mock.Anything, mock.Anything, env.res).Return("/tmp/a.txt", nil)

		err := env.driver.CopyFiles(context.Background(), []string{"a.txt", "b.txt"}, ".", 1)

		assert.Same(t, cpErr, err)
		env.cmd.AssertNotCalled(t, "Output", mock.Anything, "pumount", mock.Anything)
		env.stager.AssertNumberOfCalls(t, "Stage", 1)
	})
}

func TestCopyFiles_UnmountBusy(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	env.cmd.On("Output", mock.Anything, "pmount", mock.Anything).Return([]byte{}, nil)
	env.cmd.On("Output", mock.Anything, "pumount", []string{"/dev/sdb1"}).
		Return([]byte{}, helpers.ExitErr(5, "target is busy")).Times(2)
	env.cmd.On("Output", mock.Anything, "pumount", []string{"/dev/sdb1"}).
		Return([]byte{}, nil).Once()

	err := helpers.RunWithFakeClock(t, env.clock, UnmountBusyWait, func() error {
		return env.driver.CopyFiles(context.Background(), nil, ".", 1)
	})

	require.NoError(t, err)
	env.cmd.AssertNumberOfCalls(t, "Output", 4)
}

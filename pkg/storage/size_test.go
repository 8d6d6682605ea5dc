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
	"testing"

	"github.com/ZaparooProject/zaparoo-rig/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr   error
		name      string
		output    string
		wantPath  string
		partition int
		want      int64
	}{
		{
			name:     "whole device",
			output:   "62333952\n",
			wantPath: "/sys/class/block/sdb/size",
			want:     62333952,
		},
		{
			name:      "partition",
			output:    "524288\n",
			partition: 1,
			wantPath:  "/sys/class/block/sdb1/size",
			want:      524288,
		},
		{
			name:     "no medium",
			output:   "0\n",
			wantPath: "/sys/class/block/sdb/size",
			want:     0,
		},
		{
			name:     "empty attribute",
			output:   "",
			wantPath: "/sys/class/block/sdb/size",
			wantErr:  ErrUnparseableSize,
		},
		{
			name:     "garbage",
			output:   "size\n",
			wantPath: "/sys/class/block/sdb/size",
			wantErr:  ErrUnparseableSize,
		},
		{
			name:     "negative",
			output:   "-1\n",
			wantPath: "/sys/class/block/sdb/size",
			wantErr:  ErrUnparseableSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, Options{})
			env.cmd.On("Output", mock.Anything, "cat", []string{tt.wantPath}).
				Return([]byte(tt.output), nil).Once()

			got, err := env.driver.GetSize(context.Background(), tt.partition)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			env.cmd.AssertExpectations(t)
		})
	}
}

func TestGetSize_CommandFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	env.res.Prefix = []string{"ssh", "rig1", "--"}
	catErr := helpers.ExitErr(255, "ssh: connect to host rig1 port 22: Connection refused")
	env.cmd.On("Output", mock.Anything, "ssh", []string{"rig1", "--", "cat", "/sys/class/block/sdb/size"}).
		Return([]byte{}, catErr).Once()

	_, err := env.driver.GetSize(context.Background(), 0)

	assert.Same(t, catErr, err)
	assert.NotErrorIs(t, err, ErrUnparseableSize)
}

func TestGetSize_InvalidDevicePath(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Options{})
	env.res.DevicePath = "/dev"

	_, err := env.driver.GetSize(context.Background(), 0)

	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, env.cmd.Calls)
}

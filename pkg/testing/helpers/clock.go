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

package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// fakeClockTimeout bounds how long a test may spend driving a fake clock in
// real time before it is considered hung.
const fakeClockTimeout = 5 * time.Second

// RunWithFakeClock runs fn in a goroutine and advances clock by step every
// time fn blocks on it, until fn returns. It returns fn's error.
//
// Use it for code that sleeps or waits on deadlines through a
// clockwork.Clock, so retry and poll loops run instantly in tests.
func RunWithFakeClock(
	t *testing.T,
	clock *clockwork.FakeClock,
	step time.Duration,
	fn func() error,
) error {
	t.Helper()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	deadline := time.After(fakeClockTimeout)
	for {
		select {
		case err := <-done:
			return err
		case <-deadline:
			t.Fatal("timed out driving fake clock")
			return nil
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		err := clock.BlockUntilContext(ctx, 1)
		cancel()
		if err == nil {
			clock.Advance(step)
		}
	}
}

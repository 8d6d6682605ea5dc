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


// Package telemetry forwards error-level log entries to Sentry when a DSN is
// configured. Home directory names are masked before anything is sent.
package telemetry

import (
	"fmt"
	"regexp"
	"runtime"
	"time"

	"github.com/ZaparooProject/zaparoo-rig/pkg/helpers"
	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// A run is a single command; whatever has not been sent by then is dropped.
const flushTimeout = 2 * time.Second

var (
	writer *sentryzerolog.Writer

	userDirRe = regexp.MustCompile(`(?i)/(home|users)/[^/\s]+/`)
)

// Init routes error-level log entries to Sentry, tagged with runID. An empty
// dsn leaves reporting off.
func Init(dsn, appVersion, runID string) error {
	if dsn == "" {
		log.Debug().Msg("error reporting disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          "zaparoo-rig@" + appVersion,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrubEvent(event)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("run_id", runID)
		scope.SetTag("arch", runtime.GOARCH)
	})

	writer, err = sentryzerolog.NewWithHub(sentry.CurrentHub(), sentryzerolog.Options{
		Levels:       []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel},
		FlushTimeout: flushTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create sentry log writer: %w", err)
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(helpers.LogWriter(), writer)).
		With().Timestamp().Caller().Logger()

	log.Info().Msg("error reporting enabled")
	return nil
}

// Enabled reports whether Init turned reporting on.
func Enabled() bool {
	return writer != nil
}

// Close sends any queued events. Call it once, before the process exits.
func Close() {
	if writer == nil {
		return
	}
	_ = writer.Close()
	sentry.Flush(flushTimeout)
}

// scrubEvent masks user directories in everything that can carry a local
// path: the message, exception values and stack frames. The hostname is
// dropped.
func scrubEvent(event *sentry.Event) *sentry.Event {
	event.ServerName = ""
	event.Message = maskUserDirs(event.Message)

	for i := range event.Exception {
		ex := &event.Exception[i]
		ex.Value = maskUserDirs(ex.Value)
		if ex.Stacktrace == nil {
			continue
		}
		for j := range ex.Stacktrace.Frames {
			frame := &ex.Stacktrace.Frames[j]
			frame.AbsPath = maskUserDirs(frame.AbsPath)
		}
	}

	return event
}

func maskUserDirs(s string) string {
	return userDirRe.ReplaceAllString(s, "/$1/<user>/")
}

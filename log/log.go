// Copyright 2024 The Slate Authors
// This file is part of Slate.
//
// Slate is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Slate is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Slate. If not, see <http://www.gnu.org/licenses/>.

// Package log mirrors the key/value call convention of log.Info("msg",
// "key", val, ...) without pulling in a third-party logging stack: it is
// a thin wrapper over log/slog's default handler, keeping every caller
// in the rest of the module free of a handler dependency.
package log

import (
	"log/slog"
	"os"
)

var root = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

var level = new(slog.LevelVar)

// SetVerbose raises the log level to Debug; the default level is Info.
func SetVerbose(verbose bool) {
	if verbose {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

// Debug logs msg with the given alternating key/value pairs at Debug level.
func Debug(msg string, kv ...interface{}) { root.Debug(msg, kv...) }

// Info logs msg with the given alternating key/value pairs at Info level.
func Info(msg string, kv ...interface{}) { root.Info(msg, kv...) }

// Warn logs msg with the given alternating key/value pairs at Warn level.
func Warn(msg string, kv ...interface{}) { root.Warn(msg, kv...) }

// Error logs msg with the given alternating key/value pairs at Error level.
func Error(msg string, kv ...interface{}) { root.Error(msg, kv...) }

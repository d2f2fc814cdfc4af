/*
Copyright (C) 2023  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package logx is the board daemon's leveled logger: a thin wrapper around
// log/slog in the spirit of the teacher's ad-hoc PrintError/PrintMemUsage
// helpers, generalized into something every room/component can tag with its
// own attributes (room_id, client_id, ...) instead of printing bare strings.
package logx

import (
	"log/slog"
	"os"
)

var base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Logger is a tagged child logger, e.g. one scoped to a single room.
type Logger struct {
	l *slog.Logger
}

// Root returns the untagged package logger.
func Root() Logger {
	return Logger{l: base}
}

// For creates a room-scoped (or otherwise tagged) logger, mirroring how the
// teacher's persistence engines print errors prefixed by the table/store they
// belong to.
func For(tag string, value string) Logger {
	return Logger{l: base.With(tag, value)}
}

func (g Logger) With(args ...any) Logger {
	return Logger{l: g.l.With(args...)}
}

func (g Logger) Info(msg string, args ...any)  { g.l.Info(msg, args...) }
func (g Logger) Warn(msg string, args ...any)  { g.l.Warn(msg, args...) }
func (g Logger) Error(msg string, args ...any) { g.l.Error(msg, args...) }
func (g Logger) Debug(msg string, args ...any) { g.l.Debug(msg, args...) }

// SetLevel adjusts the minimum level emitted by the root handler, used by
// cmd/boardd's -verbose flag.
func SetLevel(level slog.Level) {
	base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log is the user-facing console logger. Every line it prints is
// mirrored into zerolog.
package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	countWidth  = 8  // width for the match count
	statusWidth = 10 // width for status text
)

// Status names what happened to one file.
type Status string

const (
	StatusReplaced  Status = "replaced"
	StatusUnchanged Status = "unchanged"
	StatusCounted   Status = "counted"
	StatusAppended  Status = "appended"
	StatusPreview   Status = "preview"
	StatusFailed    Status = "failed"
)

// 🎯 FileOperation represents one processed file for logging
type FileOperation struct {
	Path   string // path as given
	Status Status
	Count  uint64 // matches found
}

// 🏃 RunOperation describes a whole run for the header line
type RunOperation struct {
	Mode    string // bytes or text
	Targets int    // paths after expansion
	DryRun  bool
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog       zerolog.Logger
	console    io.Writer
	verbose    bool
	mu         sync.Mutex
	current    *RunOperation
	operations []FileOperation
}

// 🏭 New creates a new logger. File operation lines are only printed
// when verbose is set; warnings and errors always are.
func New(console io.Writer, zlog zerolog.Logger, verbose bool) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
		verbose: verbose,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context, or one that discards
// everything when none was set
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		return New(io.Discard, zerolog.Nop(), false)
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatFileOperation formats a file operation for display
func (l *Logger) formatFileOperation(op FileOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch op.Status {
	case StatusFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	case StatusReplaced, StatusAppended:
		symbol = '⟳'
		symbolColor = color.FgGreen
	case StatusPreview:
		symbol = '~'
		symbolColor = color.FgMagenta
	case StatusCounted:
		symbol = '#'
		symbolColor = color.FgCyan
	default:
		symbol = '-'
		symbolColor = color.FgYellow
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		color.New(color.Bold).Sprint(fmt.Sprintf("%*d", countWidth, op.Count)),
		fmt.Sprintf("%-*s", statusWidth, op.Status),
		op.Path)
}

// 📝 LogFileOperation logs a file operation
func (l *Logger) LogFileOperation(ctx context.Context, op FileOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.operations = append(l.operations, op)

	if l.verbose {
		fmt.Fprintln(l.console, l.formatFileOperation(op))
	}

	l.zlog.Info().
		Str("file", op.Path).
		Str("status", string(op.Status)).
		Uint64("count", op.Count).
		Msg("file operation")
}

// 📝 StartRun prints the run header
func (l *Logger) StartRun(ctx context.Context, op RunOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &op
	l.operations = nil

	if l.verbose {
		mode := op.Mode
		if op.DryRun {
			mode += ", dry run"
		}
		fmt.Fprintf(l.console, "%s %s %s %s\n",
			color.New(color.FgMagenta).Sprint("◆"),
			color.New(color.Bold, color.FgCyan).Sprint("replace-text"),
			color.New(color.Faint).Sprint("•"),
			color.New(color.FgYellow).Sprintf("%d targets (%s)", op.Targets, mode))
	}

	l.zlog.Info().
		Str("mode", op.Mode).
		Int("targets", op.Targets).
		Bool("dry_run", op.DryRun).
		Msg("starting run")
}

// 📝 EndRun ends the current run and returns the operations it logged
func (l *Logger) EndRun(ctx context.Context) []FileOperation {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return nil
	}

	ops := l.operations
	l.zlog.Info().
		Int("files", len(ops)).
		Msg("run complete")

	l.current = nil
	l.operations = nil
	return ops
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message, only when verbose
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.verbose {
		fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	}
	l.zlog.Info().Msg(msg)
}

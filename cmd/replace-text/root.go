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

package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/replace-text/pkg/config"
	"github.com/walteh/replace-text/pkg/input"
	"github.com/walteh/replace-text/pkg/log"
	"github.com/walteh/replace-text/pkg/match"
	"github.com/walteh/replace-text/pkg/operation"
	"github.com/walteh/replace-text/pkg/preview"
	"github.com/walteh/replace-text/pkg/source"
	"github.com/walteh/replace-text/pkg/status"
	"gitlab.com/tozd/go/errors"
)

const (
	exitOK      = 0
	exitFailure = 1 // a target failed
	exitUsage   = 2 // bad flags or config, nothing was touched
	exitNewline = 3 // newline check failed, nothing was touched
)

// previewContext is the number of unchanged lines shown around a change.
const previewContext = 3

type rootFlags struct {
	match           string
	matchFile       string
	askMatch        bool
	replacement     string
	replacementFile string
	askReplacement  bool
	removeMatch     bool

	text                bool
	overlap             bool
	disableNewlineCheck bool
	allowNoop           bool
	dryRun              bool
	appendUnique        bool

	recursive bool
	null      bool
	exclude   []string
	jobs      int

	configFile string
	verbose    int
}

// settings are the flags merged over the config file.
type settings struct {
	mode                match.Mode
	overlap             bool
	disableNewlineCheck bool
	allowNoop           bool
	recursive           bool
	exclude             []string
	protected           []string
	jobs                int
}

type app struct {
	env
	flags   rootFlags
	console *log.Logger
}

func run(ctx context.Context, args []string, e env) int {
	a := &app{env: e}

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(e.stdin)
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	console := a.console
	if console == nil {
		console = log.New(e.stderr, zerolog.Nop(), false)
	}
	console.Error(err.Error())

	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, operation.ErrNewlineMismatch):
		return exitNewline
	case errors.Is(err, source.ErrUsage),
		errors.Is(err, operation.ErrNoopReplacement),
		errors.Is(err, input.ErrDuplicateStdin):
		return exitUsage
	default:
		return exitFailure
	}
}

func usagef(format string, args ...any) error {
	return errors.Errorf("%w: %s", source.ErrUsage, fmt.Sprintf(format, args...))
}

func newRootCmd(a *app) *cobra.Command {
	f := &a.flags

	cmd := &cobra.Command{
		Use:   "replace-text [flags] [path...]",
		Short: "Replace exact byte sequences in files, atomically",
		Long: `replace-text finds an exact byte sequence in files and replaces it.

Each file is streamed through a window the size of the match, written to a
staging file next to it and renamed over the original only when something
changed. Permissions, ownership and timestamps are kept. Without a
replacement the matches are only counted.

Paths come from the arguments, or one per line (NUL with -z) on standard
input. The path "-" streams standard input to standard output.

Exit status: 0 ok, 1 a file failed, 2 usage error, 3 newline check failed.`,
		Args:          cobra.ArbitraryArgs,
		Version:       GetVersionInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd, args)
		},
	}
	cmd.SetVersionTemplate(FormatVersion())
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usagef("%s", err)
	})

	flags := cmd.Flags()
	flags.StringVar(&f.match, "match", "", "exact text to search for")
	flags.StringVar(&f.matchFile, "match-file", "", "read the text to search for from a file")
	flags.BoolVar(&f.askMatch, "ask-match", false, "prompt for the text to search for")
	flags.StringVar(&f.replacement, "replacement", "", "text to put in place of each match")
	flags.StringVar(&f.replacementFile, "replacement-file", "", "read the replacement from a file")
	flags.BoolVar(&f.askReplacement, "ask-replacement", false, "prompt for the replacement")
	flags.BoolVar(&f.removeMatch, "remove-match", false, "delete every match")

	flags.BoolVar(&f.text, "text", false, "match line by line in UTF-8 text instead of raw bytes")
	flags.BoolVar(&f.overlap, "overlap", false, "count overlapping matches when only counting")
	flags.BoolVar(&f.disableNewlineCheck, "disable-newline-check", false, "allow a match and replacement that disagree on a trailing newline")
	flags.BoolVar(&f.allowNoop, "allow-noop", false, "allow a replacement equal to the match")
	flags.BoolVar(&f.dryRun, "dry-run", false, "show a diff instead of changing files")
	flags.BoolVar(&f.appendUnique, "append-unique", false, "append the match to files that do not contain it")

	flags.BoolVarP(&f.recursive, "recursive", "r", false, "descend into directories")
	flags.BoolVarP(&f.null, "null", "z", false, "paths on standard input are NUL separated")
	flags.StringArrayVar(&f.exclude, "exclude", nil, "skip paths matching this glob (repeatable)")
	flags.IntVar(&f.jobs, "jobs", 1, "files processed at once")

	flags.StringVarP(&f.configFile, "config", "c", "", "config file (default .replace-text.{yaml,yml,hcl,json})")
	flags.CountVarP(&f.verbose, "verbose", "v", "more output, repeat for debug and trace logs")

	return cmd
}

func (a *app) setupLogging(ctx context.Context) context.Context {
	level := zerolog.WarnLevel
	switch {
	case a.flags.verbose >= 3:
		level = zerolog.TraceLevel
	case a.flags.verbose == 2:
		level = zerolog.DebugLevel
	case a.flags.verbose == 1:
		level = zerolog.InfoLevel
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{
		Out:        a.stderr,
		NoColor:    color.NoColor,
		TimeFormat: time.Kitchen,
	}).Level(level).With().Timestamp().Logger()

	a.console = log.New(a.stderr, zlog, a.flags.verbose > 0)

	ctx = zlog.WithContext(ctx)
	return log.NewContext(ctx, a.console)
}

func (f *rootFlags) settings(cmd *cobra.Command, cfg *config.Config) (settings, error) {
	s := settings{
		overlap:             cfg.Overlap,
		disableNewlineCheck: cfg.DisableNewlineCheck,
		allowNoop:           cfg.AllowNoop,
		recursive:           cfg.Recursive,
		exclude:             append(slices.Clone(cfg.Exclude), f.exclude...),
		protected:           cfg.ProtectedPaths,
		jobs:                cfg.Jobs,
	}

	mode, err := match.ParseMode(cfg.Mode)
	if err != nil {
		return s, usagef("%s", err)
	}
	s.mode = mode

	fl := cmd.Flags()
	if fl.Changed("text") {
		s.mode = match.ModeBytes
		if f.text {
			s.mode = match.ModeText
		}
	}
	if fl.Changed("overlap") {
		s.overlap = f.overlap
	}
	if fl.Changed("disable-newline-check") {
		s.disableNewlineCheck = f.disableNewlineCheck
	}
	if fl.Changed("allow-noop") {
		s.allowNoop = f.allowNoop
	}
	if fl.Changed("recursive") {
		s.recursive = f.recursive
	}
	if fl.Changed("jobs") {
		if f.jobs < 1 {
			return s, usagef("--jobs must be at least 1, got %d", f.jobs)
		}
		s.jobs = f.jobs
	}

	return s, nil
}

// literal returns the flag value when it was set, even to "".
func literal(cmd *cobra.Command, name, value string) *string {
	if cmd.Flags().Changed(name) {
		return &value
	}
	return nil
}

func (a *app) execute(cmd *cobra.Command, args []string) error {
	ctx := a.setupLogging(cmd.Context())
	logger := zerolog.Ctx(ctx)

	cfg, err := config.Find(ctx, a.dir, a.flags.configFile)
	if err != nil {
		return usagef("loading config: %s", err)
	}
	logger.Debug().Str("config", cfg.String()).Msg("configuration loaded")

	s, err := a.flags.settings(cmd, cfg)
	if err != nil {
		return err
	}

	// every reader of standard input goes through rest, so prompts, the
	// path list and the "-" stream see one continuous input
	stdinTTY := isTerminal(a.stdin)
	var (
		prompter source.Prompter
		rest     io.Reader = a.stdin
	)
	if stdinTTY {
		prompter = source.PtermPrompter{}
	} else {
		lp := source.NewLinePrompter(a.stdin, a.stderr)
		prompter, rest = lp, lp.Rest()
	}

	resolver := &source.Resolver{Prompter: prompter, Text: s.mode == match.ModeText}

	pattern, err := resolver.Pattern(ctx, source.Field{
		Name:    "match",
		Literal: literal(cmd, "match", a.flags.match),
		File:    a.flags.matchFile,
		Ask:     a.flags.askMatch,
	})
	if err != nil {
		return err
	}

	replField := source.Field{
		Name:    "replacement",
		Literal: literal(cmd, "replacement", a.flags.replacement),
		File:    a.flags.replacementFile,
		Ask:     a.flags.askReplacement,
	}
	if a.flags.appendUnique && (replField.Given() || a.flags.removeMatch) {
		return usagef("--append-unique takes no replacement")
	}

	replacement, err := resolver.Replacement(ctx, replField, a.flags.removeMatch)
	if err != nil {
		return err
	}

	if err := operation.CheckNewline(pattern, replacement); err != nil {
		a.console.Warning(err.Error())
		if !s.disableNewlineCheck {
			return errors.Errorf("use --disable-newline-check to proceed: %w", err)
		}
	}

	guard, err := operation.NewSelfGuard(s.protected)
	if err != nil {
		return usagef("%s", err)
	}

	driver, err := operation.New(operation.Options{
		Pattern:     pattern,
		Replacement: replacement,
		Mode:        s.mode,
		Overlap:     s.overlap,
		Guard:       guard,
		DryRun:      a.flags.dryRun,
		AllowNoop:   s.allowNoop,
	})
	if err != nil {
		return err
	}

	paths := args
	stdinList := false
	if len(paths) == 0 {
		if stdinTTY {
			return usagef("no paths given, pass them as arguments or pipe a path list")
		}
		delim := byte('\n')
		if a.flags.null {
			delim = 0
		}
		paths, err = input.ReadPaths(rest, delim)
		if err != nil {
			return err
		}
		stdinList = true
	}
	if stdinList && slices.Contains(paths, operation.StdinPath) {
		return usagef("standard input carries the path list and cannot also be streamed")
	}

	paths, err = input.Expand(ctx, paths, input.Options{Recursive: s.recursive, Exclude: s.exclude})
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		a.console.Info("nothing to do")
		return nil
	}

	action := operation.ActionReplace
	if a.flags.appendUnique {
		action = operation.ActionAppend
	}
	countOnly := action == operation.ActionReplace && !replacement.Present()

	mgr := status.New(nil)
	mgr.StartOperation(ctx, len(paths))
	a.console.StartRun(ctx, log.RunOperation{Mode: s.mode.String(), Targets: len(paths), DryRun: a.flags.dryRun})

	runner := operation.NewRunner(driver, operation.RunnerOptions{
		Action: action,
		Jobs:   s.jobs,
		Stdin:  rest,
		Stdout: a.stdout,
	})

	runErr := runner.Run(ctx, paths, func(res operation.Result) {
		a.report(ctx, mgr, res, action, countOnly)
	})

	var fileErr *operation.FileError
	if errors.As(runErr, &fileErr) {
		info := mgr.TrackError(ctx, fileErr.Path, fileErr.Err)
		a.console.LogFileOperation(ctx, log.FileOperation{
			Path:   info.Path,
			Status: log.StatusFailed,
		})
	}

	mgr.FinishOperation(ctx)
	ops := a.console.EndRun(ctx)

	if a.flags.verbose > 0 && len(ops) > 1 {
		if table, err := mgr.RenderTable(); err == nil {
			fmt.Fprintln(a.stderr, table)
		} else {
			logger.Debug().Err(err).Msg("rendering summary")
		}
	}

	return runErr
}

// report prints the per-file line: count-only runs report every file on
// stdout, other runs report changed files on stderr.
func (a *app) report(ctx context.Context, mgr *status.Manager, res operation.Result, action operation.Action, countOnly bool) {
	info := mgr.TrackResult(ctx, res, action, countOnly)

	a.console.LogFileOperation(ctx, log.FileOperation{
		Path:   info.Path,
		Status: log.Status(info.Status.String()),
		Count:  info.Count,
	})

	line := mgr.Formatter().FormatReport(info)
	switch {
	case countOnly:
		fmt.Fprintln(a.stdout, line)
	case info.Changed():
		fmt.Fprintln(a.stderr, line)
	}

	if res.Preview != nil {
		if _, err := preview.Render(a.stdout, res.Path, res.Preview.Before, res.Preview.After, previewContext); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", res.Path).Msg("rendering preview")
		}
	}
}

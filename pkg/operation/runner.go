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

package operation

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// Action selects what the runner does with each path.
type Action int

const (
	ActionReplace Action = iota // ProcessFile / ProcessStream
	ActionAppend                // AppendUnique
)

// 🏃 Runner feeds paths to a Driver and reports results in input order
type Runner struct {
	driver *Driver
	action Action
	jobs   int
	stdin  io.Reader
	stdout io.Writer
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Action Action
	Jobs   int       // files processed at once; < 2 means one at a time
	Stdin  io.Reader // read for StdinPath
	Stdout io.Writer // receives the transformed stdin stream
}

// 🏗️ NewRunner creates a new runner
func NewRunner(driver *Driver, opts RunnerOptions) *Runner {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	return &Runner{
		driver: driver,
		action: opts.Action,
		jobs:   opts.Jobs,
		stdin:  opts.Stdin,
		stdout: opts.Stdout,
	}
}

// ❌ FileError is returned by Run when one path fails. It names the path
// so callers can report it alongside the others.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// 🏃 Run processes paths and calls report for every path that succeeded,
// in input order. The first error stops the run; files already committed
// stay committed. A failing path comes back as a *FileError.
func (r *Runner) Run(ctx context.Context, paths []string, report func(Result)) error {
	if r.jobs == 1 {
		return r.runSync(ctx, paths, report)
	}
	return r.runAsync(ctx, paths, report)
}

// 🔄 runSync processes one path at a time
func (r *Runner) runSync(ctx context.Context, paths []string, report func(Result)) error {
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("run cancelled: %w", err)
		}
		res, err := r.one(ctx, p)
		if err != nil {
			return &FileError{Path: p, Err: err}
		}
		report(res)
	}
	return nil
}

// ⚡ runAsync processes distinct files concurrently. Paths that resolve to
// the same file form one chain and run in input order, so a file is never
// scanned or committed by two goroutines at once.
func (r *Runner) runAsync(ctx context.Context, paths []string, report func(Result)) error {
	results := make([]Result, len(paths))
	ok := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs)

	for _, chain := range chains(paths) {
		g.Go(func() error {
			for _, i := range chain {
				if err := gctx.Err(); err != nil {
					return errors.Errorf("run cancelled: %w", err)
				}
				res, err := r.one(gctx, paths[i])
				if err != nil {
					return &FileError{Path: paths[i], Err: err}
				}
				results[i] = res
				ok[i] = true
			}
			return nil
		})
	}

	err := g.Wait()

	for i := range paths {
		if ok[i] {
			report(results[i])
		}
	}

	return err
}

// chains groups path indexes by the file they name, in order of first
// appearance. Paths that cannot be resolved are keyed by their absolute
// form and fail when processed.
func chains(paths []string) [][]int {
	var out [][]int
	seen := make(map[string]int, len(paths))

	for i, p := range paths {
		key := p
		if p != StdinPath {
			if resolved, err := resolvePath(p); err == nil {
				key = resolved
			} else if abs, err := filepath.Abs(p); err == nil {
				key = abs
			}
		}
		if c, found := seen[key]; found {
			out[c] = append(out[c], i)
			continue
		}
		seen[key] = len(out)
		out = append(out, []int{i})
	}
	return out
}

func (r *Runner) one(ctx context.Context, path string) (Result, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("processing")

	if path == StdinPath {
		if r.action == ActionAppend {
			return Result{Path: path}, errors.Errorf("cannot append to standard input")
		}
		if r.stdin == nil {
			return Result{Path: path}, errors.Errorf("standard input is not available")
		}
		out := r.stdout
		if out == nil {
			out = io.Discard
		}
		return r.driver.ProcessStream(ctx, r.stdin, out, path)
	}

	if r.action == ActionAppend {
		return r.driver.AppendUnique(ctx, path)
	}
	return r.driver.ProcessFile(ctx, path)
}

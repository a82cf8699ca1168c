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
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/replace-text/pkg/match"
	"github.com/walteh/replace-text/pkg/staging"
	"gitlab.com/tozd/go/errors"
)

// StdinPath is the path that names the standard input stream.
const StdinPath = "-"

var (
	// ErrSizeMismatch means a matcher wrote a different number of bytes than
	// its match count allows. It is an internal defect, never user error.
	ErrSizeMismatch = errors.Base("output size does not match match count")

	// ErrNotRegular is returned for directories, devices, sockets and pipes.
	ErrNotRegular = errors.Base("not a regular file")
)

// 🔧 Options contains configuration for the driver
type Options struct {
	Pattern     match.Pattern
	Replacement match.Replacement
	Mode        match.Mode

	// Overlap lets count-only byte scans count matches that share bytes.
	Overlap bool

	// Guard refuses paths that must never be edited. Nil means NoGuard.
	Guard Guard

	// DryRun computes new content in memory instead of committing it.
	DryRun bool

	// AllowNoop permits a replacement equal to the pattern.
	AllowNoop bool
}

// 📊 Result is the outcome for one path.
type Result struct {
	Path      string       // path as given
	Resolved  string       // absolute, symlinks resolved; empty for streams
	Report    match.Report // matcher outcome
	Committed bool         // the file was replaced on disk
	Appended  bool         // AppendUnique added the pattern
	Preview   *Preview     // set by dry runs that found matches
}

// 👀 Preview holds the before and after content of a dry run.
type Preview struct {
	Before []byte
	After  []byte
}

// 🎮 Driver runs files and streams through one matcher. It holds no
// per-file state, so one Driver may serve several goroutines.
type Driver struct {
	opts    Options
	matcher match.Matcher
}

// 🏭 New creates a new driver with the given options
func New(opts Options) (*Driver, error) {
	if opts.Pattern.Len() == 0 {
		return nil, errors.WithStack(match.ErrEmptyPattern)
	}
	if !opts.AllowNoop {
		if err := CheckNoop(opts.Pattern, opts.Replacement); err != nil {
			return nil, err
		}
	}
	if opts.Guard == nil {
		opts.Guard = NoGuard{}
	}

	m, err := match.New(opts.Mode, match.Options{
		Pattern:     opts.Pattern,
		Replacement: opts.Replacement,
		Overlap:     opts.Overlap,
	})
	if err != nil {
		return nil, errors.Errorf("creating matcher: %w", err)
	}

	return &Driver{opts: opts, matcher: m}, nil
}

// Options returns the options the driver was built with.
func (d *Driver) Options() Options { return d.opts }

// 📄 ProcessFile scans one file. With a replacement the new content is
// staged next to the file and renamed over it only when something changed
// and every check passed; on any error the file is left untouched. Without
// a replacement the file is only read.
func (d *Driver) ProcessFile(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}

	resolved, err := resolvePath(path)
	if err != nil {
		return res, errors.Errorf("resolving %s: %w", path, err)
	}
	res.Resolved = resolved

	logger := zerolog.Ctx(ctx).With().Str("path", resolved).Logger()
	ctx = logger.WithContext(ctx)

	if err := d.opts.Guard.Check(resolved); err != nil {
		return res, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return res, errors.Errorf("checking %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return res, errors.Errorf("%s: %w", path, ErrNotRegular)
	}

	in, err := os.Open(resolved)
	if err != nil {
		return res, errors.Errorf("opening %s: %w", path, err)
	}
	defer in.Close()

	switch {
	case !d.opts.Replacement.Present():
		res.Report, err = d.matcher.Scan(ctx, in, nil)
		if err != nil {
			return res, errors.Errorf("scanning %s: %w", path, err)
		}
		return res, nil
	case d.opts.DryRun:
		return d.preview(ctx, in, res)
	default:
		return d.replace(ctx, in, info.Size(), res)
	}
}

func (d *Driver) replace(ctx context.Context, in io.Reader, size int64, res Result) (Result, error) {
	logger := zerolog.Ctx(ctx)

	stage, err := staging.Create(ctx, res.Resolved)
	if err != nil {
		return res, errors.Errorf("staging %s: %w", res.Path, err)
	}
	// no-op once committed
	defer stage.Discard()

	cr := &countingReader{r: in}
	res.Report, err = d.matcher.Scan(ctx, cr, stage)
	if err != nil {
		return res, errors.Errorf("scanning %s: %w", res.Path, err)
	}

	if d.opts.Mode == match.ModeBytes {
		if cr.n != size {
			return res, errors.Errorf("%s: read %d bytes but file is %d bytes: %w", res.Path, cr.n, size, ErrSizeMismatch)
		}
		if err := d.validate(res.Report, cr.n, stage.Size()); err != nil {
			return res, errors.Errorf("%s: %w", res.Path, err)
		}
	}

	if !res.Report.Modified {
		logger.Debug().Uint64("count", res.Report.Count).Msg("no change, discarding staging file")
		return res, nil
	}

	if err := stage.Commit(ctx); err != nil {
		return res, errors.Errorf("committing %s: %w", res.Path, err)
	}
	res.Committed = true

	logger.Info().Uint64("count", res.Report.Count).Msg("file replaced")
	return res, nil
}

func (d *Driver) preview(ctx context.Context, in io.Reader, res Result) (Result, error) {
	before, err := io.ReadAll(in)
	if err != nil {
		return res, errors.Errorf("reading %s: %w", res.Path, err)
	}

	var after bytes.Buffer
	res.Report, err = d.matcher.Scan(ctx, bytes.NewReader(before), &after)
	if err != nil {
		return res, errors.Errorf("scanning %s: %w", res.Path, err)
	}

	if d.opts.Mode == match.ModeBytes {
		if err := d.validate(res.Report, int64(len(before)), int64(after.Len())); err != nil {
			return res, errors.Errorf("%s: %w", res.Path, err)
		}
	}

	if res.Report.Modified {
		res.Preview = &Preview{Before: before, After: after.Bytes()}
	}
	return res, nil
}

// 🌊 ProcessStream scans in. With a replacement the transformed stream is
// written to out; without one out receives nothing.
func (d *Driver) ProcessStream(ctx context.Context, in io.Reader, out io.Writer, name string) (Result, error) {
	res := Result{Path: name}
	cr := &countingReader{r: in}

	if !d.opts.Replacement.Present() {
		rep, err := d.matcher.Scan(ctx, cr, nil)
		if err != nil {
			return res, errors.Errorf("scanning %s: %w", name, err)
		}
		res.Report = rep
		return res, nil
	}

	cw := &countingWriter{w: out}
	rep, err := d.matcher.Scan(ctx, cr, cw)
	if err != nil {
		return res, errors.Errorf("scanning %s: %w", name, err)
	}
	res.Report = rep

	if d.opts.Mode == match.ModeBytes {
		if err := d.validate(rep, cr.n, cw.n); err != nil {
			return res, errors.Errorf("%s: %w", name, err)
		}
	}
	return res, nil
}

// ✅ validate checks output = input + count × (len(replacement) − len(pattern)).
func (d *Driver) validate(rep match.Report, inSize, outSize int64) error {
	delta := int64(d.opts.Replacement.Len()) - int64(d.opts.Pattern.Len())
	if !d.opts.Replacement.Present() {
		delta = 0
	}
	want := inSize + int64(rep.Count)*delta
	if outSize != want {
		return errors.Errorf("%w: input %d, count %d, delta %d, want %d, got %d",
			ErrSizeMismatch, inSize, rep.Count, delta, want, outSize)
	}
	return nil
}

// resolvePath makes path absolute and follows symlinks, so a link's target
// is edited and the link itself survives.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

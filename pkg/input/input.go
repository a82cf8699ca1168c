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

// Package input turns command-line arguments and path lists into the
// ordered list of files to process.
package input

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// StdinMarker names the standard input stream in a path list.
const StdinMarker = "-"

// ErrDuplicateStdin is returned when "-" appears more than once.
var ErrDuplicateStdin = errors.Base("standard input named more than once")

// 📜 ReadPaths reads a path list separated by delim, usually '\n' or 0.
// Empty entries are dropped; a trailing "\r" is kept only for NUL lists.
func ReadPaths(r io.Reader, delim byte) ([]string, error) {
	br := bufio.NewReader(r)

	var paths []string
	for {
		entry, err := br.ReadBytes(delim)
		if len(entry) > 0 {
			entry = bytes.TrimSuffix(entry, []byte{delim})
			if delim == '\n' {
				entry = bytes.TrimSuffix(entry, []byte{'\r'})
			}
			if len(entry) > 0 {
				paths = append(paths, string(entry))
			}
		}
		if err == io.EOF {
			return paths, nil
		}
		if err != nil {
			return nil, errors.Errorf("reading path list: %w", err)
		}
	}
}

// 🔧 Options controls Expand.
type Options struct {
	// Recursive walks directories instead of skipping them.
	Recursive bool

	// Exclude holds doublestar patterns. A path is excluded when a pattern
	// matches the whole slash-separated path or its base name.
	Exclude []string
}

// Validate checks the exclude patterns.
func (o Options) Validate() error {
	for _, pattern := range o.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return nil
}

// 🌳 Expand returns the files to process in input order. Named files pass
// through as given, so missing or special files fail later with their own
// error. Directories are skipped unless Recursive is set; a walk skips
// dot-entries, symlinks and anything that is not a regular file.
func Expand(ctx context.Context, paths []string, opts Options) ([]string, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)

	var (
		out   []string
		stdin bool
	)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if p == StdinMarker {
			if stdin {
				return nil, errors.WithStack(ErrDuplicateStdin)
			}
			stdin = true
			out = append(out, p)
			continue
		}

		if opts.excluded(p) {
			logger.Debug().Str("path", p).Msg("excluded")
			continue
		}

		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}

		if !opts.Recursive {
			logger.Info().Str("path", p).Msg("skipping directory, use --recursive")
			continue
		}

		walked, err := walk(ctx, p, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, walked...)
	}

	return out, nil
}

func walk(ctx context.Context, root string, opts Options) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return errors.Errorf("walking %s: %w", path, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if path != root {
			if strings.HasPrefix(d.Name(), ".") || opts.excluded(path) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			logger.Debug().Str("path", path).Str("type", d.Type().String()).Msg("skipping non-regular entry")
			return nil
		}

		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (o Options) excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range o.Exclude {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

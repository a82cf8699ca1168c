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

// Package staging builds a file's new content next to it and swaps it in
// with a single rename.
package staging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// TempPattern is the os.CreateTemp pattern for staging files.
const TempPattern = ".replace-text-*.tmp"

// ErrFinalized is returned when a staging file is used after Commit or Discard.
var ErrFinalized = errors.Base("staging file already committed or discarded")

// 📄 metadata is what Commit carries over from the target.
type metadata struct {
	perm     uint32 // permission, setuid, setgid and sticky bits
	uid      int
	gid      int
	hasOwner bool
	atime    time.Time
	mtime    time.Time
}

// 💾 File is a write-only temp file in the target's directory. Being on the
// same filesystem as the target makes the final rename atomic: readers see
// either the old or the new content.
type File struct {
	target  string
	path    string
	f       *os.File
	meta    metadata
	written int64
	closed  bool
	done    bool
}

// 🏭 Create opens a staging file for target. The target's metadata is
// captured now, before anything reads it.
func Create(ctx context.Context, target string) (*File, error) {
	meta, err := captureMetadata(target)
	if err != nil {
		return nil, errors.Errorf("reading metadata of %s: %w", target, err)
	}

	f, err := os.CreateTemp(filepath.Dir(target), TempPattern)
	if err != nil {
		return nil, errors.Errorf("creating staging file: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("target", target).
		Str("staging", f.Name()).
		Msg("staging file created")

	return &File{
		target: target,
		path:   f.Name(),
		f:      f,
		meta:   meta,
	}, nil
}

// Write implements io.Writer.
func (s *File) Write(p []byte) (int, error) {
	if s.done || s.closed {
		return 0, errors.WithStack(ErrFinalized)
	}
	n, err := s.f.Write(p)
	s.written += int64(n)
	if err != nil {
		return n, errors.Errorf("writing staging file: %w", err)
	}
	return n, nil
}

// Size is the number of bytes written so far.
func (s *File) Size() int64 { return s.written }

// Path is the staging file's own path.
func (s *File) Path() string { return s.path }

// Target is the path the staging file will replace.
func (s *File) Target() string { return s.target }

func (s *File) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

// 🔒 Commit flushes and closes the staging file, copies the target's
// metadata onto it and renames it over the target. On failure the staging
// file is removed and the target is left as it was.
func (s *File) Commit(ctx context.Context) error {
	if s.done {
		return errors.WithStack(ErrFinalized)
	}

	if err := s.f.Sync(); err != nil {
		s.Discard()
		return errors.Errorf("syncing staging file: %w", err)
	}
	if err := s.close(); err != nil {
		s.Discard()
		return errors.Errorf("closing staging file: %w", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		s.Discard()
		return errors.Errorf("checking staging file: %w", err)
	}
	if info.Size() != s.written {
		s.Discard()
		return errors.Errorf("staging file holds %d bytes, wrote %d", info.Size(), s.written)
	}

	if err := applyMetadata(ctx, s.path, s.meta); err != nil {
		s.Discard()
		return errors.Errorf("copying metadata: %w", err)
	}

	if err := os.Rename(s.path, s.target); err != nil {
		s.Discard()
		return errors.Errorf("renaming staging file: %w", err)
	}
	s.done = true

	zerolog.Ctx(ctx).Debug().
		Str("target", s.target).
		Int64("size", s.written).
		Msg("staging file committed")

	return nil
}

// 🗑️ Discard closes and removes the staging file. It is safe to call more
// than once and does nothing after a successful Commit.
func (s *File) Discard() error {
	if s.done {
		return nil
	}
	s.done = true

	closeErr := s.close()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Errorf("removing staging file: %w", err)
	}
	if closeErr != nil {
		return errors.Errorf("closing staging file: %w", closeErr)
	}
	return nil
}

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
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// ErrSelfEdit is returned for paths the guard protects.
var ErrSelfEdit = errors.Base("refusing to edit protected path")

// 🛡️ Guard decides whether a resolved path may be processed.
type Guard interface {
	Check(path string) error
}

// NoGuard allows every path.
type NoGuard struct{}

func (NoGuard) Check(string) error { return nil }

// PathGuard protects exact paths and doublestar globs. Paths handed to
// Check are expected to be absolute with symlinks resolved.
type PathGuard struct {
	paths []string
	globs []string
}

// 🏭 NewPathGuard creates a guard over exact paths and glob patterns.
// Invalid globs are rejected here rather than silently never matching.
func NewPathGuard(paths, globs []string) (*PathGuard, error) {
	g := &PathGuard{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		g.paths = append(g.paths, canonical(p))
	}
	for _, pattern := range globs {
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, errors.Errorf("invalid protected path pattern %q", pattern)
		}
		g.globs = append(g.globs, pattern)
	}
	return g, nil
}

// 🏭 NewSelfGuard protects the running executable plus the given globs.
func NewSelfGuard(globs []string) (*PathGuard, error) {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, exe)
	}
	return NewPathGuard(paths, globs)
}

// Check implements Guard.
func (g *PathGuard) Check(path string) error {
	for _, p := range g.paths {
		if p == path {
			return errors.Errorf("%s: %w", path, ErrSelfEdit)
		}
	}
	for _, pattern := range g.globs {
		if ok, _ := doublestar.PathMatch(pattern, path); ok {
			return errors.Errorf("%s: %w (matches %q)", path, ErrSelfEdit, pattern)
		}
	}
	return nil
}

// canonical resolves p as far as the filesystem allows.
func canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

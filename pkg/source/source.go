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

// Package source resolves the match and replacement values from flags,
// files and interactive prompts.
package source

import (
	"context"
	"os"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/walteh/replace-text/pkg/match"
	"gitlab.com/tozd/go/errors"
)

// ErrUsage marks a flag combination that can never work. It is raised
// before any file is opened.
var ErrUsage = errors.Base("usage error")

// 📥 Field describes where one value (the match or the replacement) comes
// from. At most one of Literal, File and Ask may be set.
type Field struct {
	Name    string  // "match" or "replacement", used in messages and prompts
	Literal *string // value given on the command line
	File    string  // path whose whole content is the value
	Ask     bool    // prompt for the value
}

func (f Field) sources() int {
	n := 0
	if f.Literal != nil {
		n++
	}
	if f.File != "" {
		n++
	}
	if f.Ask {
		n++
	}
	return n
}

// Given reports whether any source is set.
func (f Field) Given() bool { return f.sources() > 0 }

// 🔧 Resolver turns fields into a pattern and a replacement.
type Resolver struct {
	// Prompter answers Ask fields. Nil makes Ask a usage error.
	Prompter Prompter

	// Text requires both values to be valid UTF-8.
	Text bool
}

// 🎯 Pattern resolves the match field. It must be given and non-empty.
func (r *Resolver) Pattern(ctx context.Context, f Field) (match.Pattern, error) {
	b, err := r.resolve(ctx, f)
	if err != nil {
		return match.Pattern{}, err
	}
	if b == nil {
		return match.Pattern{}, errors.Errorf("%w: one of --%[2]s, --%[2]s-file or --ask-%[2]s is required", ErrUsage, f.Name)
	}
	if len(b) == 0 {
		return match.Pattern{}, errors.Errorf("%w: --%s must not be empty", ErrUsage, f.Name)
	}
	return match.NewPattern(b)
}

// 🔁 Replacement resolves the replacement field. An unset field means
// count-only unless remove is set, which yields an empty replacement.
// An explicitly empty value is refused; removal must be asked for.
func (r *Resolver) Replacement(ctx context.Context, f Field, remove bool) (match.Replacement, error) {
	if remove && f.Given() {
		return match.NoReplacement, errors.Errorf("%w: --remove-match and --%s* are mutually exclusive", ErrUsage, f.Name)
	}
	if remove {
		return match.NewReplacement(nil), nil
	}

	b, err := r.resolve(ctx, f)
	if err != nil {
		return match.NoReplacement, err
	}
	if b == nil {
		return match.NoReplacement, nil
	}
	if len(b) == 0 {
		return match.NoReplacement, errors.Errorf("%w: --%s is empty, use --remove-match to delete matches", ErrUsage, f.Name)
	}
	return match.NewReplacement(b), nil
}

// resolve returns nil when no source is set.
func (r *Resolver) resolve(ctx context.Context, f Field) ([]byte, error) {
	switch f.sources() {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, errors.Errorf("%w: --%[2]s, --%[2]s-file and --ask-%[2]s are mutually exclusive", ErrUsage, f.Name)
	}

	var (
		b    []byte
		from string
	)

	switch {
	case f.Literal != nil:
		b, from = []byte(*f.Literal), "flag"
	case f.File != "":
		data, err := os.ReadFile(f.File)
		if err != nil {
			return nil, errors.Errorf("reading --%s-file %s: %w", f.Name, f.File, err)
		}
		b, from = data, f.File
	case f.Ask:
		if r.Prompter == nil {
			return nil, errors.Errorf("%w: --ask-%s needs an interactive input", ErrUsage, f.Name)
		}
		s, err := r.Prompter.Prompt(ctx, f.Name)
		if err != nil {
			return nil, errors.Errorf("prompting for %s: %w", f.Name, err)
		}
		b, from = []byte(s), "prompt"
	}

	if r.Text && !utf8.Valid(b) {
		return nil, errors.Errorf("%w: %s from %s is not valid UTF-8", ErrUsage, f.Name, from)
	}

	zerolog.Ctx(ctx).Debug().Str("field", f.Name).Str("from", from).Int("bytes", len(b)).Msg("value resolved")

	if b == nil {
		b = []byte{}
	}
	return b, nil
}

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

package match

import (
	"bytes"
	"context"
	"io"

	"gitlab.com/tozd/go/errors"
)

// ErrEmptyPattern is returned when a pattern of length zero is requested.
var ErrEmptyPattern = errors.Base("pattern must not be empty")

// 🎯 Pattern is the exact byte sequence a matcher searches for.
type Pattern struct {
	b []byte
}

// 🏭 NewPattern copies b into a new Pattern
func NewPattern(b []byte) (Pattern, error) {
	if len(b) == 0 {
		return Pattern{}, errors.WithStack(ErrEmptyPattern)
	}
	return Pattern{b: bytes.Clone(b)}, nil
}

// MustPattern is NewPattern for literals known to be non-empty.
func MustPattern(s string) Pattern {
	p, err := NewPattern([]byte(s))
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) Len() int { return len(p.b) }

// Bytes returns a copy of the pattern.
func (p Pattern) Bytes() []byte { return bytes.Clone(p.b) }

func (p Pattern) String() string { return string(p.b) }

// 🔄 Replacement is the payload written in place of each match. The zero
// value is "absent", which puts a matcher in count-only mode.
type Replacement struct {
	b       []byte
	present bool
}

// NoReplacement selects count-only mode.
var NoReplacement = Replacement{}

// 🏭 NewReplacement copies b into a present Replacement. An empty b removes
// every match.
func NewReplacement(b []byte) Replacement {
	if b == nil {
		b = []byte{}
	}
	return Replacement{b: bytes.Clone(b), present: true}
}

// Present reports whether matches are rewritten.
func (r Replacement) Present() bool { return r.present }

func (r Replacement) Len() int { return len(r.b) }

// Bytes returns a copy of the payload, nil when absent.
func (r Replacement) Bytes() []byte {
	if !r.present {
		return nil
	}
	return bytes.Clone(r.b)
}

// 📊 Report is the outcome of one scan.
type Report struct {
	Count    uint64 // matches found
	Modified bool   // a replacement was written for at least one match
}

// 🔌 Matcher scans in, writing the transformed stream to out. A nil out
// discards the output.
type Matcher interface {
	Scan(ctx context.Context, in io.Reader, out io.Writer) (Report, error)
}

// Options configures the matchers built by New.
type Options struct {
	Pattern     Pattern
	Replacement Replacement

	// Overlap lets count-only byte scans find matches that share bytes.
	Overlap bool
}

// Mode selects a matcher implementation.
type Mode int

const (
	ModeBytes Mode = iota // binary-safe sliding window
	ModeText              // line-oriented UTF-8
)

func (m Mode) String() string {
	switch m {
	case ModeBytes:
		return "bytes"
	case ModeText:
		return "text"
	default:
		return "unknown"
	}
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "bytes", "binary":
		return ModeBytes, nil
	case "text", "lines":
		return ModeText, nil
	default:
		return 0, errors.Errorf("unknown mode %q", s)
	}
}

// 🏭 New returns the matcher for mode.
func New(mode Mode, opts Options) (Matcher, error) {
	if opts.Pattern.Len() == 0 {
		return nil, errors.WithStack(ErrEmptyPattern)
	}
	switch mode {
	case ModeBytes:
		return NewByteMatcher(opts), nil
	case ModeText:
		return NewLineMatcher(opts), nil
	default:
		return nil, errors.Errorf("unknown mode %d", mode)
	}
}

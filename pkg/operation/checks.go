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

	"github.com/walteh/replace-text/pkg/match"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNewlineMismatch means exactly one of pattern and replacement ends
	// in a newline, which usually joins or splits lines by accident.
	ErrNewlineMismatch = errors.Base("pattern and replacement disagree on trailing newline")

	// ErrNoopReplacement means the replacement equals the pattern.
	ErrNoopReplacement = errors.Base("replacement is identical to pattern")
)

// 🔍 CheckNewline returns ErrNewlineMismatch when the pattern ends in "\n"
// and the replacement does not, or the other way round. Count-only runs
// always pass.
func CheckNewline(p match.Pattern, r match.Replacement) error {
	if !r.Present() {
		return nil
	}
	pnl := bytes.HasSuffix(p.Bytes(), []byte("\n"))
	rnl := bytes.HasSuffix(r.Bytes(), []byte("\n"))
	switch {
	case pnl && !rnl:
		return errors.Errorf("%w: pattern ends in a newline but replacement does not", ErrNewlineMismatch)
	case rnl && !pnl:
		return errors.Errorf("%w: replacement ends in a newline but pattern does not", ErrNewlineMismatch)
	}
	return nil
}

// 🔍 CheckNoop returns ErrNoopReplacement when r is present and equal to p.
func CheckNoop(p match.Pattern, r match.Replacement) error {
	if r.Present() && bytes.Equal(p.Bytes(), r.Bytes()) {
		return errors.WithStack(ErrNoopReplacement)
	}
	return nil
}

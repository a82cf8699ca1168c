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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// MaxLineSize bounds a single line in text mode.
const MaxLineSize = 64 << 20

// 🚫 DecodeError reports a line that is not valid UTF-8.
type DecodeError struct {
	Line   int   // 1-based line number
	Offset int64 // byte offset of the start of the line
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid UTF-8 on line %d (offset %d)", e.Line, e.Offset)
}

// 📜 LineMatcher is the text-mode matcher. It works on whole lines and
// keeps each line's own terminator (LF, CRLF or CR).
type LineMatcher struct {
	pattern     []byte
	replacement []byte
	replace     bool
}

// 🏭 NewLineMatcher creates a LineMatcher
func NewLineMatcher(opts Options) *LineMatcher {
	return &LineMatcher{
		pattern:     opts.Pattern.b,
		replacement: opts.Replacement.b,
		replace:     opts.Replacement.present,
	}
}

// Scan implements Matcher. Count is the number of lines that contain the
// pattern. Without a replacement nothing is written to out.
func (m *LineMatcher) Scan(ctx context.Context, in io.Reader, out io.Writer) (Report, error) {
	logger := zerolog.Ctx(ctx)

	if out == nil || !m.replace {
		out = io.Discard
	}

	var (
		rep    Report
		lineNo int
		offset int64
		w      = bufio.NewWriter(out)
	)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64<<10), MaxLineSize)
	scanner.Split(ScanLinesWithTerminator)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return rep, errors.Errorf("scan interrupted on line %d: %w", lineNo+1, err)
		}

		line := scanner.Bytes()
		lineNo++

		if !utf8.Valid(line) {
			return rep, errors.WithStack(&DecodeError{Line: lineNo, Offset: offset})
		}
		offset += int64(len(line))

		if bytes.Contains(line, m.pattern) {
			rep.Count++
			logger.Trace().Int("line", lineNo).Msg("line matched")
			if m.replace {
				line = bytes.ReplaceAll(line, m.pattern, m.replacement)
				rep.Modified = true
			}
		}

		if m.replace {
			if _, err := w.Write(line); err != nil {
				return rep, errors.Errorf("writing line %d: %w", lineNo, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return rep, errors.Errorf("reading line %d: %w", lineNo+1, err)
	}

	if err := w.Flush(); err != nil {
		return rep, errors.Errorf("flushing output: %w", err)
	}

	logger.Debug().
		Int("lines", lineNo).
		Uint64("count", rep.Count).
		Bool("modified", rep.Modified).
		Msg("line scan complete")

	return rep, nil
}

// ScanLinesWithTerminator is a bufio.SplitFunc like bufio.ScanLines that
// returns each line together with its terminator. "\r\n", "\n" and a lone
// "\r" all end a line.
func ScanLinesWithTerminator(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i, c := range data {
		switch c {
		case '\n':
			return i + 1, data[:i+1], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i+2], nil
				}
				return i + 1, data[:i+1], nil
			}
			if atEOF {
				return i + 1, data[:i+1], nil
			}
			// need one more byte to tell CR from CRLF
			return 0, nil, nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

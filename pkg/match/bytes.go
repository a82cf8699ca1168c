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
	"context"
	"io"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ctxCheckInterval is how many bytes are scanned between context checks.
const ctxCheckInterval = 64 << 10

// 🪟 ByteMatcher is the binary-safe matcher. It keeps a window exactly as
// long as the pattern and compares it on every byte once it is full.
type ByteMatcher struct {
	pattern     []byte
	replacement []byte
	replace     bool
	overlap     bool
}

// 🏭 NewByteMatcher creates a ByteMatcher
func NewByteMatcher(opts Options) *ByteMatcher {
	return &ByteMatcher{
		pattern:     opts.Pattern.b,
		replacement: opts.Replacement.b,
		replace:     opts.Replacement.present,
		overlap:     opts.Overlap,
	}
}

// Scan implements Matcher.
func (m *ByteMatcher) Scan(ctx context.Context, in io.Reader, out io.Writer) (Report, error) {
	logger := zerolog.Ctx(ctx)

	if out == nil {
		out = io.Discard
	}

	var (
		rep    Report
		offset int64
		r      = bufio.NewReader(in)
		w      = bufio.NewWriter(out)
		win    = newWindow(len(m.pattern))
	)

	for {
		if offset%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return rep, errors.Errorf("scan interrupted at offset %d: %w", offset, err)
			}
		}

		c, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rep, errors.Errorf("reading input at offset %d: %w", offset, err)
		}
		offset++

		// a full window here was already compared and did not collapse
		if win.full() {
			if err := w.WriteByte(win.shift()); err != nil {
				return rep, errors.Errorf("writing output: %w", err)
			}
		}
		win.push(c)

		if !win.full() || !win.equal(m.pattern) {
			continue
		}

		rep.Count++
		logger.Trace().
			Int64("end_offset", offset).
			Uint64("count", rep.Count).
			Msg("window matched")

		switch {
		case m.replace:
			if _, err := w.Write(m.replacement); err != nil {
				return rep, errors.Errorf("writing replacement: %w", err)
			}
			win.reset()
			rep.Modified = true
		case !m.overlap:
			if err := win.drain(w); err != nil {
				return rep, errors.Errorf("writing output: %w", err)
			}
		}
	}

	// a partial window can never match, it is flushed as is
	if err := win.drain(w); err != nil {
		return rep, errors.Errorf("flushing window: %w", err)
	}
	if err := w.Flush(); err != nil {
		return rep, errors.Errorf("flushing output: %w", err)
	}

	logger.Debug().
		Int64("bytes_read", offset).
		Uint64("count", rep.Count).
		Bool("modified", rep.Modified).
		Msg("byte scan complete")

	return rep, nil
}

// window is a ring buffer with capacity len(pattern).
type window struct {
	buf   []byte
	start int
	n     int
}

func newWindow(size int) *window {
	return &window{buf: make([]byte, size)}
}

func (w *window) full() bool { return w.n == len(w.buf) }

func (w *window) push(c byte) {
	w.buf[(w.start+w.n)%len(w.buf)] = c
	w.n++
}

func (w *window) shift() byte {
	c := w.buf[w.start]
	w.start = (w.start + 1) % len(w.buf)
	w.n--
	return c
}

func (w *window) equal(p []byte) bool {
	for i := range p {
		if w.buf[(w.start+i)%len(w.buf)] != p[i] {
			return false
		}
	}
	return true
}

func (w *window) reset() {
	w.start = 0
	w.n = 0
}

// drain writes the window oldest first and empties it.
func (w *window) drain(bw *bufio.Writer) error {
	for w.n > 0 {
		if err := bw.WriteByte(w.shift()); err != nil {
			return err
		}
	}
	w.reset()
	return nil
}

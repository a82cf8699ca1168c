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

// Package preview renders the difference between a file and what a dry run
// would write to it.
package preview

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gitlab.com/tozd/go/errors"
)

// 📊 Stats counts changed lines.
type Stats struct {
	Added   int
	Removed int
}

// 🧩 Hunk is one run of lines that are equal, added or removed.
type Hunk struct {
	Op    diffmatchpatch.Operation
	Lines []string // each line keeps its terminator, except maybe the last
}

// 🔍 Lines diffs before and after line by line.
func Lines(before, after []byte) ([]Hunk, Stats) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var (
		hunks []Hunk
		stats Stats
	)
	for _, d := range diffs {
		h := Hunk{Op: d.Type, Lines: splitLines(d.Text)}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			stats.Added += len(h.Lines)
		case diffmatchpatch.DiffDelete:
			stats.Removed += len(h.Lines)
		}
		hunks = append(hunks, h)
	}
	return hunks, stats
}

// 🖨️ Render writes a coloured line diff for path to w. Equal runs longer
// than 2*context lines are folded. Content that is not UTF-8 is summarised
// instead of printed.
func Render(w io.Writer, path string, before, after []byte, context int) (Stats, error) {
	header := color.New(color.Bold)
	if _, err := header.Fprintf(w, "--- %s\n+++ %s (dry run)\n", path, path); err != nil {
		return Stats{}, errors.Errorf("writing preview header: %w", err)
	}

	if !utf8.Valid(before) || !utf8.Valid(after) {
		_, err := fmt.Fprintf(w, "binary content: %d bytes -> %d bytes\n", len(before), len(after))
		if err != nil {
			return Stats{}, errors.Errorf("writing preview: %w", err)
		}
		return Stats{}, nil
	}

	hunks, stats := Lines(before, after)

	var buf bytes.Buffer
	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	faint := color.New(color.Faint)

	for i, h := range hunks {
		switch h.Op {
		case diffmatchpatch.DiffInsert:
			for _, l := range h.Lines {
				add.Fprint(&buf, "+"+terminated(l))
			}
		case diffmatchpatch.DiffDelete:
			for _, l := range h.Lines {
				del.Fprint(&buf, "-"+terminated(l))
			}
		case diffmatchpatch.DiffEqual:
			lead, trail := context, context
			if i == 0 {
				lead = 0
			}
			if i == len(hunks)-1 {
				trail = 0
			}
			if len(h.Lines) <= lead+trail {
				for _, l := range h.Lines {
					buf.WriteString(" " + terminated(l))
				}
				continue
			}
			for _, l := range h.Lines[:lead] {
				buf.WriteString(" " + terminated(l))
			}
			faint.Fprintf(&buf, "@@ %d unchanged lines @@\n", len(h.Lines)-lead-trail)
			for _, l := range h.Lines[len(h.Lines)-trail:] {
				buf.WriteString(" " + terminated(l))
			}
		}
	}

	if _, err := buf.WriteTo(w); err != nil {
		return stats, errors.Errorf("writing preview: %w", err)
	}
	return stats, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func terminated(l string) string {
	if strings.HasSuffix(l, "\n") {
		return l
	}
	return l + "\n"
}

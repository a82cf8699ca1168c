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

package status

import (
	"context"
	"sync"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/replace-text/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// 📊 FileStatus represents what happened to one target
type FileStatus int

const (
	StatusUnknown   FileStatus = iota
	StatusReplaced             // content changed and committed
	StatusUnchanged            // scanned with a replacement, nothing matched
	StatusCounted              // count-only scan
	StatusAppended             // AppendUnique added the pattern
	StatusPresent              // AppendUnique found the pattern already there
	StatusPreview              // dry run found changes
	StatusFailed               // processing returned an error
)

// 📝 String returns a string representation of the status
func (s FileStatus) String() string {
	switch s {
	case StatusReplaced:
		return "replaced"
	case StatusUnchanged:
		return "unchanged"
	case StatusCounted:
		return "counted"
	case StatusAppended:
		return "appended"
	case StatusPresent:
		return "present"
	case StatusPreview:
		return "preview"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📁 FileInfo is the tracked outcome for one target
type FileInfo struct {
	Path   string     // path as given
	Status FileStatus // what happened
	Count  uint64     // matches found
	Error  error      // set when Status is StatusFailed
}

// Changed reports whether the file was, or in a dry run would be, rewritten.
func (f FileInfo) Changed() bool {
	switch f.Status {
	case StatusReplaced, StatusAppended, StatusPreview:
		return true
	}
	return false
}

// 📈 Summary totals a run
type Summary struct {
	Files   int
	Matches uint64
	Changed int
	Failed  int
}

// 🎯 Manager tracks the outcome of every target in input order. It is safe
// for concurrent use.
type Manager struct {
	formatter FileFormatter

	mu    sync.RWMutex
	files map[string]FileInfo
	order []string

	total     int
	processed int
}

// 🏭 New creates a new status manager
func New(formatter FileFormatter) *Manager {
	if formatter == nil {
		formatter = NewDefaultFileFormatter()
	}
	return &Manager{
		formatter: formatter,
		files:     make(map[string]FileInfo),
	}
}

// Formatter returns the formatter used for report lines.
func (m *Manager) Formatter() FileFormatter { return m.formatter }

// 🔄 StatusOf maps a driver result to a status
func StatusOf(res operation.Result, action operation.Action, countOnly bool) FileStatus {
	switch {
	case action == operation.ActionAppend && res.Appended:
		return StatusAppended
	case action == operation.ActionAppend && res.Report.Count > 0:
		return StatusPresent
	case action == operation.ActionAppend:
		// dry run that would append
		return StatusPreview
	case countOnly:
		return StatusCounted
	case res.Committed:
		return StatusReplaced
	case res.Path == operation.StdinPath && res.Report.Modified:
		// streams are never committed, only rewritten
		return StatusReplaced
	case res.Preview != nil:
		return StatusPreview
	default:
		return StatusUnchanged
	}
}

// 📝 TrackResult records a driver result and returns what was tracked
func (m *Manager) TrackResult(ctx context.Context, res operation.Result, action operation.Action, countOnly bool) FileInfo {
	info := FileInfo{
		Path:   res.Path,
		Status: StatusOf(res, action, countOnly),
		Count:  res.Report.Count,
	}
	m.TrackFile(ctx, info)
	return info
}

// ❌ TrackError records a failed target
func (m *Manager) TrackError(ctx context.Context, path string, err error) FileInfo {
	info := FileInfo{Path: path, Status: StatusFailed, Error: err}
	m.TrackFile(ctx, info)
	return info
}

// 📝 TrackFile records info, replacing any earlier entry for its path
func (m *Manager) TrackFile(ctx context.Context, info FileInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[info.Path]; !ok {
		m.order = append(m.order, info.Path)
	}
	m.files[info.Path] = info
	m.processed++

	msg := m.formatter.FormatReport(info)
	if info.Error != nil {
		msg = m.formatter.FormatError(info.Error)
	}
	zerolog.Ctx(ctx).Debug().
		Str("path", info.Path).
		Str("status", info.Status.String()).
		Uint64("count", info.Count).
		Msg(msg)
}

// 📋 ListFiles returns every tracked file in the order first seen
func (m *Manager) ListFiles(ctx context.Context) []FileInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]FileInfo, 0, len(m.order))
	for _, p := range m.order {
		files = append(files, m.files[p])
	}
	return files
}

// 🚀 StartOperation resets progress for a run over total targets
func (m *Manager) StartOperation(ctx context.Context, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = total
	m.processed = 0
	zerolog.Ctx(ctx).Debug().Int("total", total).Msg(m.formatter.FormatProgress(0, total))
}

// 🏁 FinishOperation logs final progress
func (m *Manager) FinishOperation(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zerolog.Ctx(ctx).Debug().
		Int("processed", m.processed).
		Int("total", m.total).
		Msg(m.formatter.FormatProgress(m.processed, m.total))
}

// 📈 Summary totals everything tracked so far
func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Summary
	for _, p := range m.order {
		info := m.files[p]
		s.Files++
		s.Matches += info.Count
		if info.Changed() {
			s.Changed++
		}
		if info.Status == StatusFailed {
			s.Failed++
		}
	}
	return s
}

// 📊 RenderTable renders the tracked files and a totals row as a table
func (m *Manager) RenderTable() (string, error) {
	files := m.ListFiles(context.Background())
	sum := m.Summary()

	data := pterm.TableData{{"Path", "Status", "Matches"}}
	for _, f := range files {
		data = append(data, []string{f.Path, f.Status.String(), m.formatter.FormatCount(f.Count)})
	}
	data = append(data, []string{
		m.formatter.FormatTotals(sum),
		"",
		m.formatter.FormatCount(sum.Matches),
	})

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", errors.Errorf("rendering summary table: %w", err)
	}
	return out, nil
}

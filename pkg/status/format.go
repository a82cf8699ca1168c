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
	"fmt"
	"strconv"
)

// FileFormatter defines how per-file reports and progress are formatted
type FileFormatter interface {
	// FormatReport formats the "<count> <path>" line for one file
	FormatReport(info FileInfo) string

	// FormatCount formats a match count
	FormatCount(n uint64) string

	// FormatTotals formats the run totals
	FormatTotals(s Summary) string

	// FormatProgress formats a progress message
	FormatProgress(current, total int) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultFileFormatter provides the plain formatting used on the report
// channels
type DefaultFileFormatter struct{}

// NewDefaultFileFormatter creates a new default formatter
func NewDefaultFileFormatter() *DefaultFileFormatter {
	return &DefaultFileFormatter{}
}

// FormatReport implements FileFormatter
func (f *DefaultFileFormatter) FormatReport(info FileInfo) string {
	return fmt.Sprintf("%d %s", info.Count, info.Path)
}

// FormatCount implements FileFormatter
func (f *DefaultFileFormatter) FormatCount(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// FormatTotals implements FileFormatter
func (f *DefaultFileFormatter) FormatTotals(s Summary) string {
	msg := fmt.Sprintf("%d files, %d changed", s.Files, s.Changed)
	if s.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", s.Failed)
	}
	return msg
}

// FormatProgress implements FileFormatter
func (f *DefaultFileFormatter) FormatProgress(current, total int) string {
	var percentage float64
	if total == 0 {
		percentage = 0
		if current > 0 {
			percentage = 100
		}
	} else {
		percentage = float64(current) / float64(total) * 100
	}

	if current >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", current, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", current, total, percentage)
}

// FormatError implements FileFormatter
func (f *DefaultFileFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}

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
	"fmt"
	"sync"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/replace-text/pkg/match"
	"github.com/walteh/replace-text/pkg/operation"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name      string
		res       operation.Result
		action    operation.Action
		countOnly bool
		want      FileStatus
	}{
		{
			name: "committed",
			res:  operation.Result{Committed: true, Report: match.Report{Count: 2, Modified: true}},
			want: StatusReplaced,
		},
		{
			name: "no_match",
			res:  operation.Result{},
			want: StatusUnchanged,
		},
		{
			name:      "count_only",
			res:       operation.Result{Report: match.Report{Count: 5}},
			countOnly: true,
			want:      StatusCounted,
		},
		{
			name: "modified_stream",
			res:  operation.Result{Path: operation.StdinPath, Report: match.Report{Count: 1, Modified: true}},
			want: StatusReplaced,
		},
		{
			name: "dry_run",
			res:  operation.Result{Preview: &operation.Preview{}},
			want: StatusPreview,
		},
		{
			name:   "appended",
			res:    operation.Result{Appended: true, Committed: true},
			action: operation.ActionAppend,
			want:   StatusAppended,
		},
		{
			name:   "already_present",
			res:    operation.Result{Report: match.Report{Count: 1}},
			action: operation.ActionAppend,
			want:   StatusPresent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.res, tt.action, tt.countOnly))
		})
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	m := New(nil)

	m.StartOperation(ctx, 3)
	m.TrackResult(ctx, operation.Result{Path: "b.txt", Committed: true, Report: match.Report{Count: 2}}, operation.ActionReplace, false)
	m.TrackResult(ctx, operation.Result{Path: "a.txt"}, operation.ActionReplace, false)
	m.TrackError(ctx, "c.txt", assert.AnError)
	m.FinishOperation(ctx)

	files := m.ListFiles(ctx)
	require.Len(t, files, 3)
	assert.Equal(t, []string{"b.txt", "a.txt", "c.txt"}, []string{files[0].Path, files[1].Path, files[2].Path}, "order should follow tracking")

	assert.Equal(t, StatusFailed, files[2].Status)
	assert.ErrorIs(t, files[2].Error, assert.AnError)

	assert.Equal(t, Summary{Files: 3, Matches: 2, Changed: 1, Failed: 1}, m.Summary())
}

func TestManager_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.TrackResult(ctx, operation.Result{
				Path:   fmt.Sprintf("file-%d", i),
				Report: match.Report{Count: 1},
			}, operation.ActionReplace, true)
		}(i)
	}
	wg.Wait()

	sum := m.Summary()
	assert.Equal(t, 50, sum.Files)
	assert.Equal(t, uint64(50), sum.Matches)
	assert.Zero(t, sum.Changed)
}

func TestManager_RenderTable(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	ctx := context.Background()
	m := New(nil)
	m.TrackResult(ctx, operation.Result{Path: "notes.txt", Committed: true, Report: match.Report{Count: 4}}, operation.ActionReplace, false)
	m.TrackResult(ctx, operation.Result{Path: "other.txt"}, operation.ActionReplace, false)

	out, err := m.RenderTable()
	require.NoError(t, err)

	assert.Contains(t, out, "Path")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "replaced")
	assert.Contains(t, out, "unchanged")
	assert.Contains(t, out, "2 files, 1 changed")
}

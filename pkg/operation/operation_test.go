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
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/replace-text/pkg/match"
	"github.com/walteh/replace-text/pkg/staging"
)

var fixedTime = time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	require.NoError(t, os.Chtimes(path, fixedTime, fixedTime))
	return path
}

func newDriver(t *testing.T, opts Options) *Driver {
	t.Helper()

	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func assertNoStaging(t *testing.T, dir string) {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, staging.TempPattern))
	require.NoError(t, err)
	assert.Empty(t, matches, "no staging file should remain")
}

func assertUntouched(t *testing.T, path, content string) {
	t.Helper()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(got), "content should be unchanged")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm(), "mode should be unchanged")
	assert.True(t, fixedTime.Equal(info.ModTime()), "mtime should be unchanged")
}

func TestProcessFile(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		opts          Options
		want          string
		wantCount     uint64
		wantCommitted bool
	}{
		{
			name:    "replace_bytes",
			content: "foobarfoobaz",
			opts: Options{
				Pattern:     match.MustPattern("foo"),
				Replacement: match.NewReplacement([]byte("X")),
			},
			want:          "XbarXbaz",
			wantCount:     2,
			wantCommitted: true,
		},
		{
			name:    "remove_match",
			content: "xyxzx",
			opts: Options{
				Pattern:     match.MustPattern("x"),
				Replacement: match.NewReplacement(nil),
			},
			want:          "yz",
			wantCount:     3,
			wantCommitted: true,
		},
		{
			name:    "no_match_leaves_file",
			content: "nothing here",
			opts: Options{
				Pattern:     match.MustPattern("absent"),
				Replacement: match.NewReplacement([]byte("present")),
			},
			want: "nothing here",
		},
		{
			name:    "count_only",
			content: "aaaa",
			opts: Options{
				Pattern: match.MustPattern("aa"),
			},
			want:      "aaaa",
			wantCount: 2,
		},
		{
			name:    "count_only_overlap",
			content: "aaaa",
			opts: Options{
				Pattern: match.MustPattern("aa"),
				Overlap: true,
			},
			want:      "aaaa",
			wantCount: 3,
		},
		{
			name:    "text_mode_crlf",
			content: "one\r\ntwo\r\none\r\n",
			opts: Options{
				Pattern:     match.MustPattern("one"),
				Replacement: match.NewReplacement([]byte("1")),
				Mode:        match.ModeText,
			},
			want:          "1\r\ntwo\r\n1\r\n",
			wantCount:     2,
			wantCommitted: true,
		},
		{
			name:    "dry_run",
			content: "foo",
			opts: Options{
				Pattern:     match.MustPattern("foo"),
				Replacement: match.NewReplacement([]byte("bar")),
				DryRun:      true,
			},
			want:      "foo",
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "target.txt", tt.content)

			res, err := newDriver(t, tt.opts).ProcessFile(context.Background(), path)
			require.NoError(t, err)

			assert.Equal(t, path, res.Path)
			assert.Equal(t, tt.wantCount, res.Report.Count, "count should match")
			assert.Equal(t, tt.wantCommitted, res.Committed, "committed should match")

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			if tt.wantCommitted {
				info, err := os.Stat(path)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0o640), info.Mode().Perm(), "mode should survive the rename")
				assert.True(t, fixedTime.Equal(info.ModTime()), "mtime should survive the rename")
			} else {
				assertUntouched(t, path, tt.content)
			}
			assertNoStaging(t, dir)
		})
	}
}

func TestProcessFile_DryRunPreview(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "hello world")

	d := newDriver(t, Options{
		Pattern:     match.MustPattern("world"),
		Replacement: match.NewReplacement([]byte("there")),
		DryRun:      true,
	})

	res, err := d.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, res.Preview)
	assert.Equal(t, "hello world", string(res.Preview.Before))
	assert.Equal(t, "hello there", string(res.Preview.After))
	assert.True(t, res.Report.Modified)
	assert.False(t, res.Committed)
	assertUntouched(t, path, "hello world")
}

func TestProcessFile_Symlink(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "real.txt", "abc")
	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(target, link))

	d := newDriver(t, Options{
		Pattern:     match.MustPattern("b"),
		Replacement: match.NewReplacement([]byte("B")),
	})

	res, err := d.ProcessFile(context.Background(), link)
	require.NoError(t, err)
	assert.True(t, res.Committed)

	fi, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeSymlink, "link should still be a link")

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "aBc", string(got))
}

func TestProcessFile_Errors(t *testing.T) {
	t.Run("decode_error_leaves_file", func(t *testing.T) {
		dir := t.TempDir()
		content := "fine\nbroken \xff\nfoo\n"
		path := writeFile(t, dir, "bin.dat", content)

		d := newDriver(t, Options{
			Pattern:     match.MustPattern("foo"),
			Replacement: match.NewReplacement([]byte("bar")),
			Mode:        match.ModeText,
		})

		_, err := d.ProcessFile(context.Background(), path)
		require.Error(t, err)

		var derr *match.DecodeError
		require.ErrorAs(t, err, &derr)
		assert.Contains(t, err.Error(), path, "error should name the file")
		assertUntouched(t, path, content)
		assertNoStaging(t, dir)
	})

	t.Run("directory", func(t *testing.T) {
		d := newDriver(t, Options{Pattern: match.MustPattern("a")})
		_, err := d.ProcessFile(context.Background(), t.TempDir())
		require.ErrorIs(t, err, ErrNotRegular)
	})

	t.Run("missing", func(t *testing.T) {
		d := newDriver(t, Options{Pattern: match.MustPattern("a")})
		_, err := d.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("guarded", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "self.bin", "aaa")

		guard, err := NewPathGuard([]string{path}, nil)
		require.NoError(t, err)

		d := newDriver(t, Options{
			Pattern:     match.MustPattern("a"),
			Replacement: match.NewReplacement([]byte("b")),
			Guard:       guard,
		})

		_, err = d.ProcessFile(context.Background(), path)
		require.ErrorIs(t, err, ErrSelfEdit)
		assertUntouched(t, path, "aaa")
	})

	t.Run("noop_refused", func(t *testing.T) {
		_, err := New(Options{
			Pattern:     match.MustPattern("same"),
			Replacement: match.NewReplacement([]byte("same")),
		})
		require.ErrorIs(t, err, ErrNoopReplacement)

		_, err = New(Options{
			Pattern:     match.MustPattern("same"),
			Replacement: match.NewReplacement([]byte("same")),
			AllowNoop:   true,
		})
		require.NoError(t, err)
	})
}

// 🔧 MockMatcher is a mock implementation of the match.Matcher interface
type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) Scan(ctx context.Context, in io.Reader, out io.Writer) (match.Report, error) {
	result := m.Called(ctx, in, out)
	if write, ok := result.Get(0).(string); ok && out != nil {
		_, _ = io.Copy(io.Discard, in)
		_, _ = io.WriteString(out, write)
	}
	return result.Get(1).(match.Report), result.Error(2)
}

func TestProcessFile_SizeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "target.bin", "foofoo")

	d := newDriver(t, Options{
		Pattern:     match.MustPattern("foo"),
		Replacement: match.NewReplacement([]byte("X")),
	})

	// a broken matcher claims two matches but writes three bytes too many
	broken := &MockMatcher{}
	broken.On("Scan", mock.Anything, mock.Anything, mock.Anything).
		Return("XXXXX", match.Report{Count: 2, Modified: true}, nil)
	d.matcher = broken

	_, err := d.ProcessFile(context.Background(), path)
	require.ErrorIs(t, err, ErrSizeMismatch)
	assertUntouched(t, path, "foofoo")
	assertNoStaging(t, dir)
	broken.AssertExpectations(t)
}

func TestProcessStream(t *testing.T) {
	t.Run("replace", func(t *testing.T) {
		d := newDriver(t, Options{
			Pattern:     match.MustPattern("cat"),
			Replacement: match.NewReplacement([]byte("dog")),
		})

		var out bytes.Buffer
		res, err := d.ProcessStream(context.Background(), strings.NewReader("cat and cat"), &out, StdinPath)
		require.NoError(t, err)
		assert.Equal(t, "dog and dog", out.String())
		assert.Equal(t, uint64(2), res.Report.Count)
		assert.Equal(t, StdinPath, res.Path)
	})

	t.Run("passthrough_without_match", func(t *testing.T) {
		d := newDriver(t, Options{
			Pattern:     match.MustPattern("zzz"),
			Replacement: match.NewReplacement([]byte("y")),
		})

		var out bytes.Buffer
		_, err := d.ProcessStream(context.Background(), strings.NewReader("\x00binary\xff"), &out, StdinPath)
		require.NoError(t, err)
		assert.Equal(t, "\x00binary\xff", out.String())
	})

	t.Run("count_only_writes_nothing", func(t *testing.T) {
		d := newDriver(t, Options{Pattern: match.MustPattern("a")})

		var out bytes.Buffer
		res, err := d.ProcessStream(context.Background(), strings.NewReader("banana"), &out, StdinPath)
		require.NoError(t, err)
		assert.Empty(t, out.String())
		assert.Equal(t, uint64(3), res.Report.Count)
	})
}

func TestAppendUnique(t *testing.T) {
	dir := t.TempDir()
	without := writeFile(t, dir, "without.conf", "a=1\n")
	with := writeFile(t, dir, "with.conf", "a=1\nb=2\n")

	d := newDriver(t, Options{Pattern: match.MustPattern("b=2\n")})

	res, err := d.AppendUnique(context.Background(), without)
	require.NoError(t, err)
	assert.True(t, res.Appended)
	assert.Equal(t, uint64(0), res.Report.Count)

	got, err := os.ReadFile(without)
	require.NoError(t, err)
	assert.Equal(t, "a=1\nb=2\n", string(got))

	info, err := os.Stat(without)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	res, err = d.AppendUnique(context.Background(), with)
	require.NoError(t, err)
	assert.False(t, res.Appended)
	assert.Equal(t, uint64(1), res.Report.Count)
	assertUntouched(t, with, "a=1\nb=2\n")

	// a second run is a no-op
	res, err = d.AppendUnique(context.Background(), without)
	require.NoError(t, err)
	assert.False(t, res.Appended)
	assertNoStaging(t, dir)
}

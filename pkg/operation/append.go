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
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/walteh/replace-text/pkg/match"
	"github.com/walteh/replace-text/pkg/staging"
	"gitlab.com/tozd/go/errors"
)

// ➕ AppendUnique appends the driver's pattern to path unless the file
// already contains it. The append goes through a staging file, so it is
// atomic and keeps the file's metadata like any other edit.
func (d *Driver) AppendUnique(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}

	resolved, err := resolvePath(path)
	if err != nil {
		return res, errors.Errorf("resolving %s: %w", path, err)
	}
	res.Resolved = resolved

	if err := d.opts.Guard.Check(resolved); err != nil {
		return res, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return res, errors.Errorf("checking %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return res, errors.Errorf("%s: %w", path, ErrNotRegular)
	}

	// always a byte-exact search, whatever mode the driver runs in
	counter := match.NewByteMatcher(match.Options{Pattern: d.opts.Pattern})

	in, err := os.Open(resolved)
	if err != nil {
		return res, errors.Errorf("opening %s: %w", path, err)
	}
	defer in.Close()

	res.Report, err = counter.Scan(ctx, in, nil)
	if err != nil {
		return res, errors.Errorf("scanning %s: %w", path, err)
	}
	if res.Report.Count > 0 || d.opts.DryRun {
		return res, nil
	}

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return res, errors.Errorf("rewinding %s: %w", path, err)
	}

	stage, err := staging.Create(ctx, resolved)
	if err != nil {
		return res, errors.Errorf("staging %s: %w", path, err)
	}
	defer stage.Discard()

	n, err := io.Copy(stage, in)
	if err != nil {
		return res, errors.Errorf("copying %s: %w", path, err)
	}
	if _, err := stage.Write(d.opts.Pattern.Bytes()); err != nil {
		return res, errors.Errorf("appending to %s: %w", path, err)
	}
	if n != info.Size() || stage.Size() != n+int64(d.opts.Pattern.Len()) {
		return res, errors.Errorf("%s: copied %d of %d bytes: %w", path, n, info.Size(), ErrSizeMismatch)
	}

	if err := stage.Commit(ctx); err != nil {
		return res, errors.Errorf("committing %s: %w", path, err)
	}
	res.Committed = true
	res.Appended = true

	zerolog.Ctx(ctx).Info().Str("path", resolved).Msg("pattern appended")
	return res, nil
}

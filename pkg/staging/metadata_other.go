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

//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package staging

import (
	"context"
	"os"

	"gitlab.com/tozd/go/errors"
)

// captureMetadata only sees mode and mtime here; there is no owner and the
// access time is not portable.
func captureMetadata(path string) (metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return metadata{}, errors.Errorf("stat: %w", err)
	}

	return metadata{
		perm:  uint32(info.Mode().Perm()),
		atime: info.ModTime(),
		mtime: info.ModTime(),
	}, nil
}

func applyMetadata(ctx context.Context, path string, md metadata) error {
	if err := os.Chmod(path, os.FileMode(md.perm)); err != nil {
		return errors.Errorf("restoring mode: %w", err)
	}
	if err := os.Chtimes(path, md.atime, md.mtime); err != nil {
		return errors.Errorf("restoring times: %w", err)
	}
	return nil
}

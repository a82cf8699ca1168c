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

//go:build linux || darwin || freebsd || netbsd || openbsd

package staging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/unix"
)

func captureMetadata(path string) (metadata, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return metadata{}, errors.Errorf("stat: %w", err)
	}

	return metadata{
		perm:     uint32(st.Mode) & 0o7777,
		uid:      int(st.Uid),
		gid:      int(st.Gid),
		hasOwner: true,
		atime:    time.Unix(st.Atim.Unix()),
		mtime:    time.Unix(st.Mtim.Unix()),
	}, nil
}

// applyMetadata restores owner, then mode (chown clears setuid/setgid),
// then times.
func applyMetadata(ctx context.Context, path string, md metadata) error {
	if md.hasOwner {
		if err := unix.Lchown(path, md.uid, md.gid); err != nil {
			if !errors.Is(err, unix.EPERM) {
				return errors.Errorf("restoring owner: %w", err)
			}
			zerolog.Ctx(ctx).Warn().
				Str("path", path).
				Int("uid", md.uid).
				Int("gid", md.gid).
				Msg("not permitted to restore owner, keeping current owner")
		}
	}

	if err := unix.Chmod(path, md.perm); err != nil {
		return errors.Errorf("restoring mode: %w", err)
	}

	times := []unix.Timespec{
		unix.NsecToTimespec(md.atime.UnixNano()),
		unix.NsecToTimespec(md.mtime.UnixNano()),
	}
	if err := unix.UtimesNano(path, times); err != nil {
		return errors.Errorf("restoring times: %w", err)
	}

	return nil
}

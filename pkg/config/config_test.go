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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// 🧪 TestLoad tests loading the same settings from every format
func TestLoad(t *testing.T) {
	want := &Config{
		Mode:                "text",
		Overlap:             true,
		DisableNewlineCheck: true,
		Recursive:           true,
		Exclude:             []string{"vendor/**", "*.min.js"},
		ProtectedPaths:      []string{"**/.git/**"},
		Jobs:                4,
	}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: ".replace-text.yaml",
			content: `
mode: text
overlap: true
disable_newline_check: true
recursive: true
exclude:
  - vendor/**
  - "*.min.js"
protected_paths:
  - "**/.git/**"
jobs: 4
`,
		},
		{
			name: "hcl",
			file: ".replace-text.hcl",
			content: `
mode                  = "text"
overlap               = true
disable_newline_check = true
recursive             = true
exclude               = ["vendor/**", "*.min.js"]
protected_paths       = ["**/.git/**"]
jobs                  = 4
`,
		},
		{
			name: "json",
			file: ".replace-text.json",
			content: `{
  "mode": "text",
  "overlap": true,
  "disable_newline_check": true,
  "recursive": true,
  "exclude": ["vendor/**", "*.min.js"],
  "protected_paths": ["**/.git/**"],
  "jobs": 4
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.file, tt.content)

			cfg, err := Load(context.Background(), path)
			require.NoError(t, err)

			assert.Equal(t, want.Mode, cfg.Mode)
			assert.Equal(t, want.Overlap, cfg.Overlap)
			assert.Equal(t, want.DisableNewlineCheck, cfg.DisableNewlineCheck)
			assert.Equal(t, want.AllowNoop, cfg.AllowNoop)
			assert.Equal(t, want.Recursive, cfg.Recursive)
			assert.Equal(t, want.Exclude, cfg.Exclude)
			assert.Equal(t, want.ProtectedPaths, cfg.ProtectedPaths)
			assert.Equal(t, want.Jobs, cfg.Jobs)
			assert.Equal(t, path, cfg.Location())
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{name: "yaml_unknown_field", file: "c.yaml", content: "match: foo\n", wantErr: "parsing YAML"},
		{name: "json_unknown_field", file: "c.json", content: `{"replacement": "x"}`, wantErr: "parsing JSON"},
		{name: "hcl_unknown_field", file: "c.hcl", content: `destination = "x"`, wantErr: "decoding HCL"},
		{name: "hcl_syntax", file: "c.hcl", content: `mode = `, wantErr: "parsing HCL"},
		{name: "bad_mode", file: "c.yaml", content: "mode: regex\n", wantErr: "mode"},
		{name: "negative_jobs", file: "c.yaml", content: "jobs: -1\n", wantErr: "jobs must be positive"},
		{name: "bad_exclude", file: "c.yaml", content: "exclude: ['[x']\n", wantErr: "exclude"},
		{name: "unknown_extension", file: "c.toml", content: "", wantErr: "no parser found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.file, tt.content)

			_, err := Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "empty.yaml", "")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "bytes", cfg.Mode)
	assert.Equal(t, 1, cfg.Jobs)
}

func TestHCLParser_Env(t *testing.T) {
	p := &HCLParser{Environ: func() []string {
		return []string{"CACHE_DIR=/var/cache/app", "BROKEN"}
	}}

	cfg, err := p.Parse(context.Background(), []byte(`protected_paths = ["${env.CACHE_DIR}/**"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"/var/cache/app/**"}, cfg.ProtectedPaths)
}

func TestFind(t *testing.T) {
	t.Run("explicit_path", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "custom.yml", "jobs: 2\n")

		cfg, err := Find(context.Background(), dir, path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Jobs)
	})

	t.Run("default_name", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, ".replace-text.json", `{"recursive": true}`)

		cfg, err := Find(context.Background(), dir, "")
		require.NoError(t, err)
		assert.True(t, cfg.Recursive)
		assert.Equal(t, filepath.Join(dir, ".replace-text.json"), cfg.Location())
	})

	t.Run("yaml_wins_over_json", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, ".replace-text.json", `{"jobs": 3}`)
		writeConfig(t, dir, ".replace-text.yaml", "jobs: 5\n")

		cfg, err := Find(context.Background(), dir, "")
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Jobs)
	})

	t.Run("nothing_found", func(t *testing.T) {
		cfg, err := Find(context.Background(), t.TempDir(), "")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Empty(t, cfg.Location())
	})

	t.Run("explicit_missing", func(t *testing.T) {
		_, err := Find(context.Background(), t.TempDir(), "/does/not/exist.yaml")
		require.Error(t, err)
	})
}

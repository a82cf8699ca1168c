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
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/replace-text/pkg/match"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// DefaultNames are looked up in the working directory when no config path
// is given, first match wins.
var DefaultNames = []string{
	".replace-text.yaml",
	".replace-text.yml",
	".replace-text.hcl",
	".replace-text.json",
}

// 📚 Config holds the settings that make sense to keep per project. The
// match and replacement values are never read from here.
type Config struct {
	Mode                string   `json:"mode,omitempty" yaml:"mode,omitempty" hcl:"mode,optional"`
	Overlap             bool     `json:"overlap,omitempty" yaml:"overlap,omitempty" hcl:"overlap,optional"`
	DisableNewlineCheck bool     `json:"disable_newline_check,omitempty" yaml:"disable_newline_check,omitempty" hcl:"disable_newline_check,optional"`
	AllowNoop           bool     `json:"allow_noop,omitempty" yaml:"allow_noop,omitempty" hcl:"allow_noop,optional"`
	Recursive           bool     `json:"recursive,omitempty" yaml:"recursive,omitempty" hcl:"recursive,optional"`
	Exclude             []string `json:"exclude,omitempty" yaml:"exclude,omitempty" hcl:"exclude,optional"`
	ProtectedPaths      []string `json:"protected_paths,omitempty" yaml:"protected_paths,omitempty" hcl:"protected_paths,optional"`
	Jobs                int      `json:"jobs,omitempty" yaml:"jobs,omitempty" hcl:"jobs,optional"`

	location string
}

// 🏭 Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{Mode: match.ModeBytes.String(), Jobs: 1}
}

// Location returns the file the config was loaded from, or "".
func (cfg *Config) Location() string { return cfg.location }

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config %s: %w", path, err)
	}
	cfg.location = path

	return cfg, nil
}

// 🔍 Find loads path when it is set, otherwise the first of DefaultNames
// present in dir. No file at all yields Default().
func Find(ctx context.Context, dir, path string) (*Config, error) {
	if path != "" {
		return Load(ctx, path)
	}

	for _, name := range DefaultNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return Load(ctx, candidate)
		} else if !os.IsNotExist(err) {
			return nil, errors.Errorf("checking %s: %w", candidate, err)
		}
	}

	zerolog.Ctx(ctx).Debug().Str("dir", dir).Msg("no config file found, using defaults")
	return Default(), nil
}

// 🔍 Validate checks if the configuration is valid and fills defaults
func (cfg *Config) Validate() error {
	if cfg.Mode == "" {
		cfg.Mode = match.ModeBytes.String()
	}
	mode, err := match.ParseMode(cfg.Mode)
	if err != nil {
		return errors.Errorf("mode: %w", err)
	}
	cfg.Mode = mode.String()

	switch {
	case cfg.Jobs == 0:
		cfg.Jobs = 1
	case cfg.Jobs < 0:
		return errors.Errorf("jobs must be positive, got %d", cfg.Jobs)
	}

	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("exclude: invalid pattern %q", pattern)
		}
	}
	for _, pattern := range cfg.ProtectedPaths {
		if !doublestar.ValidatePathPattern(pattern) {
			return errors.Errorf("protected_paths: invalid pattern %q", pattern)
		}
	}

	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	src := cfg.location
	if src == "" {
		src = "defaults"
	}
	return fmt.Sprintf("%s: mode=%s jobs=%d recursive=%t exclude=%d protected=%d",
		src, cfg.Mode, cfg.Jobs, cfg.Recursive, len(cfg.Exclude), len(cfg.ProtectedPaths))
}

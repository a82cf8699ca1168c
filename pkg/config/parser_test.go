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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 🧪 TestParserRegistration tests the parser registration system
func TestParserRegistration(t *testing.T) {
	originalParsers := parsers
	defer func() {
		parsers = originalParsers
	}()

	parsers = nil

	mockParser := &struct {
		Parser
	}{}

	Register(mockParser)
	assert.Len(t, parsers, 1, "should have 1 parser registered")
	assert.Equal(t, mockParser, parsers[0], "registered parser should match")
}

// 🧪 TestParserSelection tests parser selection by file extension
func TestParserSelection(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     any
	}{
		{name: "yaml_file", filename: ".replace-text.yaml", want: &YAMLParser{}},
		{name: "yml_file", filename: "config.yml", want: &YAMLParser{}},
		{name: "hcl_file", filename: ".replace-text.hcl", want: &HCLParser{}},
		{name: "json_file", filename: "Config.JSON", want: &JSONParser{}},
		{name: "unknown_file", filename: "config.toml", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetParser(tt.filename)
			if tt.want == nil {
				assert.Nil(t, got, "no parser should match")
				return
			}
			assert.IsType(t, tt.want, got, "parser type should match")
		})
	}
}

// 🧪 TestJSONParser tests empty input and error positions
func TestJSONParser(t *testing.T) {
	p := &JSONParser{}

	cfg, err := p.Parse(context.Background(), []byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg, "empty input should be an empty config")

	_, err = p.Parse(context.Background(), []byte("{\n  \"jobs\": 2,\n  \"mode\" \"text\"\n}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing JSON at line 3,")
}

func TestPosition(t *testing.T) {
	data := []byte("ab\ncd\nef")

	tests := []struct {
		offset   int64
		wantLine int
		wantCol  int
	}{
		{offset: 0, wantLine: 1, wantCol: 1},
		{offset: 2, wantLine: 1, wantCol: 3},
		{offset: 3, wantLine: 2, wantCol: 1},
		{offset: 7, wantLine: 3, wantCol: 2},
		{offset: 100, wantLine: 3, wantCol: 3},
	}

	for _, tt := range tests {
		line, col := position(data, tt.offset)
		assert.Equal(t, tt.wantLine, line, "line at offset %d", tt.offset)
		assert.Equal(t, tt.wantCol, col, "column at offset %d", tt.offset)
	}
}

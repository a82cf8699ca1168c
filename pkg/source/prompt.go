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

package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"
)

// 💬 Prompter asks the user for a value.
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
}

// PtermPrompter reads a value from an interactive terminal.
type PtermPrompter struct{}

// 💬 Prompt shows label in pterm's interactive text input and returns
// what was typed
func (PtermPrompter) Prompt(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := pterm.DefaultInteractiveTextInput.Show(label)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", label, err)
	}
	return s, nil
}

// 📝 LinePrompter writes "label: " to Out and reads one line from In. The
// line terminator is dropped. Used when standard input is not a terminal.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// 🏗️ NewLinePrompter creates a prompter over in. A nil out discards the
// labels.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	if out == nil {
		out = io.Discard
	}
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// 💬 Prompt reads the next line. A last line without a terminator is
// accepted; an exhausted input is an error.
func (p *LinePrompter) Prompt(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, "%s: ", label)

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Errorf("reading %s: %w", label, err)
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// Rest returns the input the prompts have not consumed, buffered bytes
// included.
func (p *LinePrompter) Rest() io.Reader { return p.in }

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/Strikerman10/gptAPI/internal/session"
)

const (
	// DefaultTerminalWidth is the fallback width when detection fails.
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width used for wrapping.
	MinTerminalWidth = 40
)

// isTerminalReader reports whether r is a terminal that liner can drive.
func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// terminalWidth returns the width of stdout, clamped to MinTerminalWidth.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// pipeReader reads REPL lines from a pipe or file through the same
// buffered reader the credential prompts use, so no input is lost between
// them.
type pipeReader struct {
	p *linePrompter
}

func (r pipeReader) Prompt(prompt string) (string, error) {
	s, err := r.p.readLine(prompt)
	if errors.Is(err, session.ErrAborted) {
		return "", io.EOF
	}
	return s, err
}

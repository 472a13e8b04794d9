// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/Strikerman10/gptAPI/internal/session"
)

// =============================================================================
// CREDENTIAL PROMPTS
// =============================================================================

// linePrompter asks for credentials on the terminal. It reads through liner
// when the REPL owns the terminal, through x/term for hidden passwords when
// stdin is a TTY, and line by line otherwise.
type linePrompter struct {
	in   *bufio.Reader
	out  io.Writer
	fd   int
	tty  bool
	line *liner.State
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	p := &linePrompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// withLiner routes prompts through an active liner session.
func (p *linePrompter) withLiner(line *liner.State) *linePrompter {
	p.line = line
	return p
}

// Credentials implements session.Prompter.
func (p *linePrompter) Credentials(ctx context.Context) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	username, err := p.readLine("Username: ")
	if err != nil {
		return "", "", err
	}
	password, err := p.readPassword("Password: ")
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(username), password, nil
}

// Confirm implements session.Prompter. Anything but y or yes is a no.
func (p *linePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	answer, err := p.readLine(question + " [y/N] ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Notify implements session.Prompter.
func (p *linePrompter) Notify(msg string) {
	fmt.Fprintln(p.out, msg)
}

func (p *linePrompter) readLine(prompt string) (string, error) {
	if p.line != nil {
		s, err := p.line.Prompt(prompt)
		return s, promptErr(err)
	}
	fmt.Fprint(p.out, prompt)
	s, err := p.in.ReadString('\n')
	if err != nil && (s == "" || !errors.Is(err, io.EOF)) {
		return "", promptErr(err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *linePrompter) readPassword(prompt string) (string, error) {
	switch {
	case p.line != nil:
		s, err := p.line.PasswordPrompt(prompt)
		return s, promptErr(err)
	case p.tty:
		fmt.Fprint(p.out, prompt)
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", promptErr(err)
		}
		return string(b), nil
	default:
		return p.readLine(prompt)
	}
}

// promptErr turns end of input and ctrl+c into session.ErrAborted.
func promptErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
		return session.ErrAborted
	}
	return err
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrNotCommand is returned by Execute for input without a leading slash.
var ErrNotCommand = errors.New("not a slash command")

// UnknownCommandError names a slash command that is not registered.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return "unknown command " + e.Name + " (try /help)"
}

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult is one parsed input line.
type ParseResult struct {
	IsCommand bool

	// Command is nil when CommandName is not registered.
	Command     *Command
	CommandName string

	// Args are the quote-aware tokens of RawArgs.
	Args    []string
	RawArgs string
}

// =============================================================================
// PARSER
// =============================================================================

// Parser resolves slash commands against a registry.
type Parser struct {
	registry *Registry
}

func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse parses user input. IsCommand is false if the input doesn't start
// with a slash.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)

	var result ParseResult
	if !IsCommand(input) {
		return result
	}
	result.IsCommand = true

	name := ExtractCommandName(input)
	result.CommandName = name
	result.RawArgs = strings.TrimSpace(input[len(name):])
	result.Args = splitCommandLine(result.RawArgs)
	result.Command = p.registry.Get(name)
	return result
}

// splitCommandLine tokenizes on unquoted whitespace. Single and double
// quotes group words; inside quotes a backslash escapes a quote or another
// backslash. An empty quoted string is kept as an empty token.
func splitCommandLine(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingle, inDouble, quoted bool

	flush := func() {
		if current.Len() > 0 || quoted {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		quoted = false
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			quoted = true

		case r == '"' && !inSingle:
			inDouble = !inDouble
			quoted = true

		case r == '\\' && i+1 < len(runes) && (inDouble || inSingle):
			next := runes[i+1]
			if next == '"' || next == '\'' || next == '\\' {
				current.WriteRune(next)
				i++
			} else {
				current.WriteRune(r)
			}

		case unicode.IsSpace(r) && !inSingle && !inDouble:
			flush()

		default:
			current.WriteRune(r)
		}
	}
	flush()

	return tokens
}

// IsCommand reports whether input is a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ExtractCommandName returns the first word of a slash command, slash
// included, or "" for ordinary input.
func ExtractCommandName(input string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return ""
	}
	end := strings.IndexFunc(input, unicode.IsSpace)
	if end == -1 {
		return input
	}
	return input[:end]
}

// ValidateArgs checks args against cmd's definitions: required arguments are
// present, enum values are known and nothing is left over. A trailing Rest
// argument has already been joined by Execute.
func ValidateArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}

	for i, def := range cmd.Args {
		if i >= len(args) {
			if def.Required {
				return &ValidationError{Command: cmd.Name, Arg: def.Name, Message: "missing " + def.Description}
			}
			continue
		}
		if def.Type == ArgTypeEnum && len(def.Values) > 0 && !containsFold(def.Values, args[i]) {
			return &ValidationError{
				Command: cmd.Name,
				Arg:     def.Name,
				Message: "want one of " + strings.Join(def.Values, ", "),
				Got:     args[i],
			}
		}
	}

	if len(args) > len(cmd.Args) {
		return &ValidationError{Command: cmd.Name, Message: "too many arguments", Got: strings.Join(args[len(cmd.Args):], " ")}
	}
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ValidationError reports arguments that do not fit a command.
type ValidationError struct {
	Command string
	Arg     string
	Message string
	Got     string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Command)
	if e.Arg != "" {
		b.WriteString(" <" + e.Arg + ">")
	}
	b.WriteString(": " + e.Message)
	if e.Got != "" {
		b.WriteString(fmt.Sprintf(" (got %q)", e.Got))
	}
	return b.String()
}

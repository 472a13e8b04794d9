// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Strikerman10/gptAPI/internal/model"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completion is one candidate for the token being typed.
type Completion struct {
	Value       string
	Description string
}

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// ConversationsFn returns the conversations in list order. Optional.
	ConversationsFn func() []model.Conversation
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns candidates for the last token of input.
func (c *Completer) Complete(input string) []Completion {
	if !IsCommand(input) {
		return nil
	}
	input = strings.TrimLeft(input, " \t")

	parts := splitCommandLine(input)
	trailingSpace := strings.HasSuffix(input, " ")
	if len(parts) == 1 && !trailingSpace {
		return c.completeCommands(parts[0])
	}
	if len(parts) == 0 {
		return c.completeCommands("/")
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}

	argIndex := len(parts) - 2
	partial := parts[len(parts)-1]
	if trailingSpace {
		argIndex++
		partial = ""
	}
	return c.completeArg(cmd, argIndex, partial)
}

// Lines returns whole-line completions, the shape line editors expect.
func (c *Completer) Lines(input string) []string {
	completions := c.Complete(input)
	if len(completions) == 0 {
		return nil
	}

	head := input
	if idx := strings.LastIndexAny(input, " \t"); idx >= 0 {
		head = input[:idx+1]
	} else {
		head = ""
	}

	lines := make([]string, 0, len(completions))
	for _, comp := range completions {
		lines = append(lines, head+comp.Value)
	}
	return lines
}

// completeCommands returns command names and aliases starting with partial.
func (c *Completer) completeCommands(partial string) []Completion {
	partial = strings.ToLower(partial)

	var out []Completion
	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(cmd.Name, partial) {
			out = append(out, Completion{Value: cmd.Name, Description: cmd.Description})
			continue
		}
		// Only offer an alias when the primary name doesn't match.
		for _, alias := range cmd.Aliases {
			if len(partial) > 1 && strings.HasPrefix(alias, partial) {
				out = append(out, Completion{Value: alias, Description: cmd.Description})
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	arg := cmd.Args[argIndex]
	switch arg.Type {
	case ArgTypeEnum:
		lower := strings.ToLower(partial)
		var out []Completion
		for _, v := range arg.Values {
			if strings.HasPrefix(strings.ToLower(v), lower) {
				out = append(out, Completion{Value: v})
			}
		}
		return out

	case ArgTypeConversation:
		if c.ConversationsFn == nil {
			return nil
		}
		var out []Completion
		for i, conv := range c.ConversationsFn() {
			pos := strconv.Itoa(i + 1)
			if strings.HasPrefix(pos, partial) {
				out = append(out, Completion{Value: pos, Description: conv.DisplayTitle()})
			}
		}
		return out

	default:
		return nil
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Strikerman10/gptAPI/internal/export"
	"github.com/Strikerman10/gptAPI/internal/ui/styles"
)

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
		Args: []ArgDef{
			{Name: "command", Type: ArgTypeString, Description: "command name"},
		},
		Category: "General",
		Handler: func(_ context.Context, _ *Env, args []string) (Result, error) {
			if len(args) > 0 {
				name := args[0]
				if !strings.HasPrefix(name, "/") {
					name = "/" + name
				}
				cmd := r.Get(name)
				if cmd == nil {
					return Result{}, &UnknownCommandError{Name: name}
				}
				text := cmd.Name + ": " + cmd.Description
				if cmd.Usage != "" {
					text += "\nusage: " + cmd.Usage
				}
				if len(cmd.Aliases) > 0 {
					text += "\naliases: " + strings.Join(cmd.Aliases, ", ")
				}
				return Result{Output: text}, nil
			}
			return Result{Output: strings.TrimRight(r.HelpText(), "\n")}, nil
		},
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit gptapi",
		Category:    "General",
		Handler: func(context.Context, *Env, []string) (Result, error) {
			return Result{Quit: true}, nil
		},
	})

	// Conversation commands
	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new conversation",
		Category:    "Conversation",
		Handler:     handleNew,
	})

	r.Register(&Command{
		Name:        "/list",
		Aliases:     []string{"/ls"},
		Description: "List conversations",
		Category:    "Conversation",
		Handler:     handleList,
	})

	r.Register(&Command{
		Name:        "/switch",
		Aliases:     []string{"/open", "/s"},
		Description: "Switch to a conversation",
		Usage:       "/switch <n|id>",
		Args: []ArgDef{
			{Name: "conversation", Required: true, Type: ArgTypeConversation, Description: "list position or ID"},
		},
		Category: "Conversation",
		Handler:  handleSwitch,
	})

	r.Register(&Command{
		Name:        "/delete",
		Aliases:     []string{"/rm"},
		Description: "Delete a conversation (default: the active one)",
		Usage:       "/delete [n|id]",
		Args: []ArgDef{
			{Name: "conversation", Type: ArgTypeConversation, Description: "list position or ID"},
		},
		Category: "Conversation",
		Handler:  handleDelete,
	})

	r.Register(&Command{
		Name:        "/rename",
		Description: "Rename the active conversation",
		Usage:       "/rename <title>",
		Args: []ArgDef{
			{Name: "title", Required: true, Rest: true, Description: "new title"},
		},
		Category: "Conversation",
		Handler:  handleRename,
	})

	r.Register(&Command{
		Name:        "/retry",
		Aliases:     []string{"/r"},
		Description: "Ask again for the last reply",
		Category:    "Conversation",
		Handler:     handleRetry,
	})

	r.Register(&Command{
		Name:        "/export",
		Description: "Export the active conversation to a file",
		Usage:       "/export [markdown|json|yaml] [dir]",
		Args: []ArgDef{
			{Name: "format", Type: ArgTypeEnum, Values: []string{"markdown", "md", "json", "yaml", "yml"}, Description: "export format"},
			{Name: "dir", Type: ArgTypeString, Description: "output directory"},
		},
		Category: "Conversation",
		Handler:  handleExport,
	})

	// Settings
	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Show or set the model",
		Usage:       "/model [name]",
		Args: []ArgDef{
			{Name: "name", Type: ArgTypeString, Description: "model name"},
		},
		Category: "Settings",
		Handler:  handleModel,
	})

	r.Register(&Command{
		Name:        "/palette",
		Description: "Show or set the color palette",
		Usage:       "/palette [name]",
		Args: []ArgDef{
			{Name: "name", Type: ArgTypeEnum, Values: styles.PaletteNames(), Description: "palette name"},
		},
		Category: "Settings",
		Handler:  handlePalette,
	})

	r.Register(&Command{
		Name:        "/mode",
		Description: "Show or set light/dark mode",
		Usage:       "/mode [light|dark]",
		Args: []ArgDef{
			{Name: "mode", Type: ArgTypeEnum, Values: []string{"light", "dark"}, Description: "light or dark"},
		},
		Category: "Settings",
		Handler:  handleMode,
	})

	// Account
	r.Register(&Command{
		Name:        "/whoami",
		Description: "Show the signed-in user",
		Category:    "Account",
		Handler:     handleWhoami,
	})

	r.Register(&Command{
		Name:        "/logout",
		Description: "Sign out and forget the session",
		Category:    "Account",
		Handler:     handleLogout,
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleNew(_ context.Context, env *Env, _ []string) (Result, error) {
	env.Controller.NewChat()
	return Result{Output: "Started a new conversation."}, nil
}

func handleList(_ context.Context, env *Env, _ []string) (Result, error) {
	convs, active := env.Controller.Store().Snapshot()
	return Result{Output: FormatConversationList(convs, active)}, nil
}

func handleSwitch(_ context.Context, env *Env, args []string) (Result, error) {
	conv, err := ResolveConversation(env.Controller.Store().List(), args[0])
	if err != nil {
		return Result{}, err
	}
	if err := env.Controller.SelectChat(conv.ID); err != nil {
		return Result{}, err
	}
	return Result{Output: "Switched to " + conv.DisplayTitle()}, nil
}

func handleDelete(_ context.Context, env *Env, args []string) (Result, error) {
	var id, title string
	if len(args) > 0 {
		conv, err := ResolveConversation(env.Controller.Store().List(), args[0])
		if err != nil {
			return Result{}, err
		}
		id, title = conv.ID, conv.DisplayTitle()
	} else {
		conv, ok := env.Controller.Store().Active()
		if !ok {
			return Result{}, ErrNoConversation
		}
		id, title = conv.ID, conv.DisplayTitle()
	}
	if err := env.Controller.DeleteChat(id); err != nil {
		return Result{}, err
	}
	return Result{Output: "Deleted " + title}, nil
}

func handleRename(_ context.Context, env *Env, args []string) (Result, error) {
	id := env.Controller.Store().ActiveID()
	if id == "" {
		return Result{}, ErrNoConversation
	}
	title := strings.TrimSpace(args[0])
	if title == "" {
		return Result{}, errors.New("title is empty")
	}
	if err := env.Controller.RenameChat(id, title); err != nil {
		return Result{}, err
	}
	return Result{Output: "Renamed to " + title}, nil
}

func handleRetry(_ context.Context, env *Env, _ []string) (Result, error) {
	id := env.Controller.Store().ActiveID()
	if id == "" {
		return Result{}, ErrNoConversation
	}
	idx, err := env.Controller.LastReplyIndex(id)
	if err != nil {
		return Result{}, err
	}
	turn, err := env.Controller.BeginRetry(id, idx)
	if err != nil {
		return Result{}, err
	}
	return Result{Turn: turn}, nil
}

func handleExport(_ context.Context, env *Env, args []string) (Result, error) {
	conv, ok := env.Controller.Store().Active()
	if !ok {
		return Result{}, ErrNoConversation
	}

	format := export.FormatMarkdown
	if len(args) > 0 {
		format = args[0]
	}
	opts := export.DefaultOptions()
	if env.ExportDir != "" {
		opts.OutputDir = env.ExportDir
	}
	if len(args) > 1 {
		opts.OutputDir = args[1]
	}

	exporter, err := export.New(format, opts)
	if err != nil {
		return Result{}, err
	}
	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: "Exported to " + path}, nil
}

func handleModel(_ context.Context, env *Env, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{Output: "Model: " + env.Controller.Model()}, nil
	}
	if err := env.Controller.SetModel(args[0]); err != nil {
		return Result{}, err
	}
	return Result{Output: "Model set to " + env.Controller.Model()}, nil
}

func handlePalette(_ context.Context, env *Env, args []string) (Result, error) {
	if env.Appearance == nil {
		return Result{}, errors.New("themes are not available here")
	}
	if len(args) == 0 {
		palette, _ := env.Appearance.Current()
		return Result{Output: fmt.Sprintf("Palette: %s (available: %s)", palette, strings.Join(styles.PaletteNames(), ", "))}, nil
	}
	if err := env.Appearance.SetPalette(args[0]); err != nil {
		return Result{}, err
	}
	palette, _ := env.Appearance.Current()
	return Result{Output: "Palette set to " + palette}, nil
}

func handleMode(_ context.Context, env *Env, args []string) (Result, error) {
	if env.Appearance == nil {
		return Result{}, errors.New("themes are not available here")
	}
	if len(args) == 0 {
		_, mode := env.Appearance.Current()
		return Result{Output: "Mode: " + mode}, nil
	}
	if err := env.Appearance.SetMode(args[0]); err != nil {
		return Result{}, err
	}
	_, mode := env.Appearance.Current()
	return Result{Output: "Mode set to " + mode}, nil
}

func handleWhoami(_ context.Context, env *Env, _ []string) (Result, error) {
	if env.Session == nil || !env.Session.IsAuthenticated() {
		return Result{Output: "Not signed in."}, nil
	}
	return Result{Output: "Signed in as " + env.Session.CurrentUserID()}, nil
}

func handleLogout(_ context.Context, env *Env, _ []string) (Result, error) {
	if env.Session == nil {
		return Result{}, errors.New("no session")
	}
	if err := env.Session.Logout(); err != nil {
		return Result{}, err
	}
	return Result{Output: "Signed out.", Quit: true}, nil
}

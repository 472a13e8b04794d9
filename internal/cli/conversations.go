// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Strikerman10/gptAPI/internal/commands"
	"github.com/Strikerman10/gptAPI/internal/export"
	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/storage"
	"github.com/Strikerman10/gptAPI/internal/syncer"
)

// =============================================================================
// LOCAL READS
// =============================================================================

// readLocal returns the conversations cached on this device, active first.
// It never signs in or contacts the Worker.
func (rt *runtime) readLocal() ([]model.Conversation, string, error) {
	dir, err := rt.cfg.DataDir()
	if err != nil {
		return nil, "", err
	}
	cache, err := storage.Open(storage.Options{Backend: rt.cfg.Storage.Backend, Dir: dir})
	if err != nil {
		return nil, "", fmt.Errorf("open local cache: %w", err)
	}
	defer cache.Close()

	convs, err := cache.LoadConversations()
	if err != nil {
		return nil, "", err
	}
	active, err := cache.ActiveID()
	if err != nil {
		return nil, "", err
	}
	convs, active = syncer.Reconcile(convs, active)
	return convs, active, nil
}

// conversationSummary is the --json form of one list entry.
type conversationSummary struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Messages int    `json:"messages"`
	Active   bool   `json:"active"`
	Pending  bool   `json:"pending,omitempty"`
}

func newListCmd(rt *runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations cached on this device",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			convs, active, err := rt.readLocal()
			if err != nil {
				return err
			}
			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), commands.FormatConversationList(convs, active))
				return nil
			}
			out := make([]conversationSummary, 0, len(convs))
			for i, c := range convs {
				out = append(out, conversationSummary{
					Position: i + 1,
					ID:       c.ID,
					Title:    c.DisplayTitle(),
					Messages: len(c.Messages),
					Active:   c.ID == active,
					Pending:  c.HasPending(),
				})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show [conversation]",
		Short: "Print a conversation as markdown",
		Long: `Print a cached conversation. The conversation is a list position,
an ID or a unique ID prefix; without one the active conversation is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := rt.pickLocal(args)
			if err != nil {
				return err
			}
			exp, err := export.New(export.FormatMarkdown, export.DefaultOptions())
			if err != nil {
				return err
			}
			data, err := exp.Export(conv)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newExportCmd(rt *runtime) *cobra.Command {
	var (
		format string
		outDir string
		stdout bool
	)
	cmd := &cobra.Command{
		Use:   "export [conversation]",
		Short: "Export a conversation to markdown, JSON or YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := rt.pickLocal(args)
			if err != nil {
				return err
			}
			opts := export.DefaultOptions()
			if outDir != "" {
				opts.OutputDir = outDir
			}
			exp, err := export.New(format, opts)
			if err != nil {
				return &UsageError{Err: err}
			}
			if stdout {
				data, err := exp.Export(conv)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			path, err := export.ExportToFile(conv, exp, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "markdown, json or yaml")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: current directory)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write to stdout instead of a file")
	return cmd
}

func (rt *runtime) pickLocal(args []string) (model.Conversation, error) {
	convs, active, err := rt.readLocal()
	if err != nil {
		return model.Conversation{}, err
	}
	if len(convs) == 0 {
		return model.Conversation{}, commands.ErrNoConversation
	}
	ref := active
	if len(args) > 0 {
		ref = args[0]
	}
	return commands.ResolveConversation(convs, ref)
}

// =============================================================================
// CHANGES
// =============================================================================

func newImportCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import conversations from a JSON export",
		Long: `Import conversations written by "gptapi export --format json". A
conversation whose ID already exists is replaced; others are added at the
top of the list. The result is synced to your account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			convs, err := export.DecodeJSON(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			ctx := cmd.Context()
			app, err := rt.openSignedIn(ctx, newLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.Load(ctx); err != nil {
				return err
			}

			added, replaced := app.Controller.Import(convs)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d conversations (%d new, %d replaced)\n", added+replaced, added, replaced)
			return nil
		},
	}
}

func newDeleteCmd(rt *runtime) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "delete <conversation>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation here and in the cloud",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prompter := newLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			app, err := rt.openSignedIn(ctx, prompter)
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.Load(ctx); err != nil {
				return err
			}

			conv, err := commands.ResolveConversation(app.Controller.Store().List(), args[0])
			if err != nil {
				return err
			}
			if !force {
				ok, err := prompter.Confirm(ctx, fmt.Sprintf("Delete %q (%d messages)?", conv.DisplayTitle(), len(conv.Messages)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := app.Controller.DeleteChat(conv.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", conv.DisplayTitle())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Strikerman10/gptAPI/internal/config"
	"github.com/Strikerman10/gptAPI/internal/ui/styles"
)

// =============================================================================
// THEME
// =============================================================================

func newThemeCmd(rt *runtime) *cobra.Command {
	var (
		mode string
		list bool
	)
	cmd := &cobra.Command{
		Use:   "theme [palette]",
		Short: "Show or change the remembered palette and mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, name := range styles.PaletteNames() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			app, err := openApp(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if len(args) > 0 {
				if err := app.Prefs.SetPalette(args[0]); err != nil {
					return &UsageError{Err: err}
				}
			}
			if mode != "" {
				if err := app.Prefs.SetMode(mode); err != nil {
					return &UsageError{Err: err}
				}
			}
			palette, current := app.Prefs.Current()
			fmt.Fprintf(out, "Palette: %s\nMode: %s\n", palette, current)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "light or dark")
	cmd.Flags().BoolVar(&list, "list", false, "list available palettes")
	return cmd
}

// =============================================================================
// CONFIG
// =============================================================================

func newConfigCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit the configuration file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprint(cmd.OutOrStdout(), rt.cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), rt.cfgPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every settable key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.Keys(), "\n"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one effective value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := rt.cfg.Get(args[0])
				if err != nil {
					return &UsageError{Err: err}
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one value in the configuration file",
			Long: `Change one value and write the file back. Environment overrides
and command-line flags are not written.`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfigValue(rt.cfgPath, args[0], args[1])
			},
		},
	)
	return cmd
}

// setConfigValue edits the file at path as written, so values that came
// from the environment are not persisted.
func setConfigValue(path, key, value string) error {
	if path == "" {
		return errors.New("no configuration file path")
	}
	isJSON := strings.HasSuffix(path, ".json")

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		load := config.LoadTOML
		if isJSON {
			load = config.LoadJSON
		}
		if err := load(cfg, path); err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Err: err}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return &UsageError{Err: err}
	}

	if isJSON {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gptapi %s\n  commit: %s\n  built:  %s\n", Version, GitCommit, BuildDate)
		},
	}
}

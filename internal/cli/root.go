// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Strikerman10/gptAPI/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// runtime is the state shared by the subcommands of one invocation.
type runtime struct {
	// Global flags
	configPath string
	verbose    bool
	offline    bool
	skipLogin  bool

	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	closeLog func() error
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "gptapi",
		Short: "Terminal chat client for the gptAPI Worker",
		Long: `gptapi is a multi-conversation chat client for the gptAPI Worker.

Conversations are cached on this device and synced to your account, so they
follow you between machines. Run without a subcommand to open the
full-screen interface.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, rt)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&rt.configPath, "config", "c", "", "config file (default ~/.gptapi/config.toml)")
	flags.BoolVarP(&rt.verbose, "verbose", "v", false, "debug logging, also to stderr outside the TUI")
	flags.BoolVar(&rt.offline, "offline", false, "do not sync with the cloud")
	flags.BoolVar(&rt.skipLogin, "skip-login", false, "do not ask for credentials (replies will fail)")

	root.AddCommand(
		newTUICmd(rt),
		newChatCmd(rt),
		newRegisterCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
		newListCmd(rt),
		newShowCmd(rt),
		newExportCmd(rt),
		newImportCmd(rt),
		newDeleteCmd(rt),
		newThemeCmd(rt),
		newConfigCmd(rt),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// SETUP
// =============================================================================

// init loads the configuration and sets up logging.
func (rt *runtime) init(cmd *cobra.Command) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	cfg, path, err := rt.loadConfig()
	if cfg == nil {
		return &UsageError{Err: err}
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v (using defaults)\n", err)
	}
	if rt.offline {
		cfg.Sync.Disabled = true
	}
	rt.cfg, rt.cfgPath = cfg, path

	level, err := config.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	var console io.Writer
	if rt.verbose {
		level = slog.LevelDebug
		if !isTUI(cmd) {
			console = cmd.ErrOrStderr()
		}
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		logPath = ""
	}
	rt.logger, rt.closeLog = config.SetupLogger(logPath, level, console)
	slog.SetDefault(rt.logger)
	rt.logger.Debug("starting", "command", cmd.CommandPath(), "version", Version, "config", path)
	return nil
}

// loadConfig reads --config when given, otherwise the default TOML or JSON
// file. The returned path is where `config set` writes.
func (rt *runtime) loadConfig() (*config.Config, string, error) {
	if rt.configPath != "" {
		if _, err := os.Stat(rt.configPath); errors.Is(err, os.ErrNotExist) {
			cfg := config.Default()
			cfg.ApplyEnvOverrides()
			return cfg, rt.configPath, nil
		}
		cfg, err := config.LoadFromPath(rt.configPath)
		if err != nil {
			var verr config.ValidateErrors
			if errors.As(err, &verr) {
				return nil, rt.configPath, err
			}
			cfg = config.Default()
			cfg.ApplyEnvOverrides()
			return cfg, rt.configPath, err
		}
		return cfg, rt.configPath, nil
	}

	path, err := config.ConfigPathTOML()
	if err != nil {
		return nil, "", err
	}
	if jsonPath, jerr := config.ConfigPathJSON(); jerr == nil {
		if _, serr := os.Stat(path); errors.Is(serr, os.ErrNotExist) {
			if _, serr := os.Stat(jsonPath); serr == nil {
				path = jsonPath
			}
		}
	}
	cfg, err := config.Load()
	return cfg, path, err
}

func (rt *runtime) close() {
	if rt.closeLog != nil {
		if err := rt.closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	}
}

// isTUI reports whether cmd takes over the terminal.
func isTUI(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Account commands never ask for a login of their own and leave the
// conversation cache untouched.

func newRegisterCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account on the Worker and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			app, err := openApp(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			username, password, err := newLinePrompter(cmd.InOrStdin(), out).Credentials(ctx)
			if err != nil {
				return err
			}
			if err := app.Session.Register(ctx, username, password); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			if err := app.Session.Login(ctx, username, password); err != nil {
				return fmt.Errorf("registered, but login failed: %w", err)
			}
			fmt.Fprintf(out, "Registered and signed in as %s\n", app.Session.CurrentUserID())
			return nil
		},
	}
}

func newLoginCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the user on this device",
		Long: `Sign in with a username and password. When the Worker does not know
the credentials you are offered to register them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			app, err := openApp(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Session.EnsureLogin(ctx, newLinePrompter(cmd.InOrStdin(), out)); err != nil {
				return err
			}
			fmt.Fprintf(out, "Signed in as %s\n", app.Session.CurrentUserID())
			return nil
		},
	}
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Session.CurrentUserID() == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if err := app.Session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the remembered user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if id := app.Session.CurrentUserID(); id != "" {
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		},
	}
}

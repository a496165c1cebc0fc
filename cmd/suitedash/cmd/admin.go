package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"suitedash/internal/credentials"
	"suitedash/internal/session"
)

func newAuthCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Check API credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify that the credentials reach the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, stdout, cmd.ErrOrStderr(), "", "", func(ctx context.Context, a *app) error {
				s := session.New(a.client)
				if err := s.Start(ctx); err != nil {
					return err
				}
				return printSession(a, s.Status(), -1)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Clear the response cache and verify the credentials again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, stdout, cmd.ErrOrStderr(), "", "", func(ctx context.Context, a *app) error {
				s := session.New(a.client)
				n, err := s.RefreshData(ctx)
				if err != nil {
					return err
				}
				return printSession(a, s.Status(), n)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})
	return authCmd
}

// printSession reports an authenticated session. cleared is negative when
// no cache sweep ran.
func printSession(a *app, st session.Status, cleared int) error {
	if a.jsonOutput() {
		out := map[string]any{"authenticated": st.Authenticated}
		if cleared >= 0 {
			out["cleared"] = cleared
		}
		return writeJSON(a.stdout, out)
	}
	if cleared >= 0 {
		_, _ = fmt.Fprintf(a.stdout, "Cleared %d cached responses\n", cleared)
	}
	_, _ = fmt.Fprintln(a.stdout, "Authenticated with SuiteDash")
	return nil
}

// newCredentialsCmd creates the 'credentials' subcommand for credential management
func newCredentialsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	credentialsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage SuiteDash API credentials",
		Long:  "Store, inspect and remove the SuiteDash public ID and secret key in the system keyring.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	handler := func() *credentials.CLIHandler {
		stdin := cfg.Stdin
		term := cfg.Terminal
		if stdin == nil {
			stdin = os.Stdin
			if term == nil {
				term = credentials.StdinTerminal()
			}
		}
		return credentials.NewCLIHandler(newCredentialManager(cfg), stdin, stdout, term)
	}

	setCmd := &cobra.Command{
		Use:   "set [public-id]",
		Short: "Store credentials in system keyring",
		Long:  "Store the public ID and secret key in the system keyring (macOS Keychain, Windows Credential Manager, or Linux Secret Service).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			publicID := ""
			if len(args) == 1 {
				publicID = args[0]
			}
			prompt, _ := cmd.Flags().GetBool("prompt")
			return handler().Set(cmd.Context(), publicID, prompt)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	setCmd.Flags().Bool("prompt", false, "Prompt for the secret key (required for security)")

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show where credentials resolve from",
		Long:  "Resolve credentials from the priority chain (keyring > environment > config) and display the source of each.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			return handler().Get(cmd.Context(), conf.API.PublicID, conf.OutputFormat == "json")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove credentials from system keyring",
		Long:  "Remove stored credentials from the system keyring. Environment variables and the config file are not affected.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return handler().Delete(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	credentialsCmd.AddCommand(setCmd, getCmd, deleteCmd)
	return credentialsCmd
}
